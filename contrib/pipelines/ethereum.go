// Package pipelines provides pre-configured pipelines.
package pipelines

import (
	"context"
	"io"
	"regexp"

	"go.nownabe.dev/blockloader"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
)

// Config configures a pre-configured pipeline.
type Config struct {
	Name    string
	Pattern string

	// Table is the destination, "project.dataset.table".
	Table string

	// Project runs the load jobs. Defaults to the project of Table.
	Project string

	StagingBucket string
	StagingObject string

	// SourceRoot makes the pipeline read datasets from local disk instead of
	// Cloud Storage.
	SourceRoot string

	// Format is "csv" (default) or "xls".
	Format string

	// Encoding is the WHATWG name of the source encoding. Defaults to UTF-8.
	Encoding string

	// CredentialsFile is a service account key file.
	// Application default credentials are used when empty.
	CredentialsFile string

	Notifier blockloader.Notifier
}

// Clients are the external services a pipeline talks to.
type Clients struct {
	Extractor blockloader.Extractor
	Store     blockloader.BlobStore
	Warehouse blockloader.Warehouse
}

// Close closes every client which holds connections.
func (c Clients) Close() error {
	var first error
	for _, v := range []interface{}{c.Extractor, c.Store, c.Warehouse} {
		cl, ok := v.(io.Closer)
		if !ok {
			continue
		}
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewClients builds Cloud Storage and BigQuery clients for cfg.
// Callers should Close the returned Clients.
func NewClients(ctx context.Context, cfg Config) (Clients, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	table, err := blockloader.ParseTableRef(cfg.Table)
	if err != nil {
		return Clients{}, err
	}
	project := cfg.Project
	if project == "" {
		project = table.Project
	}

	store, err := blockloader.NewGCSBlobStore(ctx, opts...)
	if err != nil {
		return Clients{}, err
	}

	wh, err := blockloader.NewBigQueryWarehouse(ctx, project, opts...)
	if err != nil {
		store.Close()
		return Clients{}, err
	}

	var ex blockloader.Extractor
	if cfg.SourceRoot != "" {
		ex = &blockloader.FileExtractor{Root: cfg.SourceRoot}
	} else {
		gcs, err := blockloader.NewGCSExtractor(ctx, opts...)
		if err != nil {
			store.Close()
			wh.Close()
			return Clients{}, err
		}
		ex = gcs
	}

	return Clients{Extractor: ex, Store: store, Warehouse: wh}, nil
}

// EthereumBlocks builds a pipeline loading the Ethereum block dataset
// (block_data.csv) into a table with blockloader.BlockSchema.
func EthereumBlocks(cfg Config, c Clients) (*blockloader.Pipeline, error) {
	if cfg.StagingBucket == "" {
		return nil, xerrors.New("staging bucket is required")
	}

	table, err := blockloader.ParseTableRef(cfg.Table)
	if err != nil {
		return nil, err
	}

	var pattern *regexp.Regexp
	if cfg.Pattern != "" {
		pattern, err = regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, xerrors.Errorf("invalid pattern %q: %w", cfg.Pattern, err)
		}
	}

	enc, err := blockloader.LookupEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	var parser blockloader.Parser
	switch cfg.Format {
	case "", "csv":
		parser = blockloader.CSVParser()
	case "xls":
		parser = blockloader.XLSParser()
	default:
		return nil, xerrors.Errorf("unsupported format %q", cfg.Format)
	}

	name := cfg.Name
	if name == "" {
		name = "ethereum-blocks"
	}

	return &blockloader.Pipeline{
		Name:    name,
		Pattern: pattern,
		Source: &blockloader.ObjectSource{
			Extractor: c.Extractor,
			Encoding:  enc,
			Parser:    parser,
		},
		Schema:        blockloader.BlockSchema,
		Stager:        &blockloader.Stager{Store: c.Store, Bucket: cfg.StagingBucket},
		Loader:        &blockloader.Loader{Warehouse: c.Warehouse},
		Notifier:      cfg.Notifier,
		StagingObject: cfg.StagingObject,
		Destination:   table,
	}, nil
}
