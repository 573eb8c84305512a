package blockloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
)

// Extractor opens a file of a dataset.
type Extractor interface {
	Extract(ctx context.Context, datasetID, filePath string) (io.ReadCloser, error)
}

// GCSExtractor reads datasets stored on Cloud Storage.
// datasetID is the bucket and filePath the object name.
type GCSExtractor struct {
	storage *storage.Client
}

// NewGCSExtractor builds a GCSExtractor.
func NewGCSExtractor(ctx context.Context, opts ...option.ClientOption) (*GCSExtractor, error) {
	s, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build storage client: %w", err)
	}

	return &GCSExtractor{storage: s}, nil
}

// Extract opens gs://datasetID/filePath.
func (e *GCSExtractor) Extract(ctx context.Context, datasetID, filePath string) (io.ReadCloser, error) {
	l := log.Ctx(ctx)

	r, err := e.storage.Bucket(datasetID).Object(filePath).NewReader(ctx)
	if err != nil {
		l.Error().Msg(fmt.Sprintf("failed to initialize object reader: %v", err))
		return nil, xerrors.Errorf("failed to get reader of gs://%s/%s: %w", datasetID, filePath, err)
	}
	l.Debug().Msgf("opened gs://%s/%s (%d bytes)", datasetID, filePath, r.Attrs.Size)

	return r, nil
}

// Close closes the underlying client.
func (e *GCSExtractor) Close() error {
	return e.storage.Close()
}

// FileExtractor reads datasets unpacked on local disk.
// datasetID is a directory below Root and filePath a file in it.
type FileExtractor struct {
	Root string
}

// Extract opens Root/datasetID/filePath.
func (e *FileExtractor) Extract(_ context.Context, datasetID, filePath string) (io.ReadCloser, error) {
	p := filepath.Join(e.Root, datasetID, filePath)

	f, err := os.Open(p)
	if err != nil {
		return nil, xerrors.Errorf("failed to open %s: %w", p, err)
	}

	return f, nil
}
