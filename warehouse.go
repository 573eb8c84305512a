package blockloader

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
	"google.golang.org/api/option"
)

// WriteMode tells the warehouse what to do with existing table contents.
type WriteMode string

// WriteReplace atomically replaces the whole table.
const WriteReplace WriteMode = "REPLACE"

// TableRef identifies a BigQuery table.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

// ParseTableRef parses "project.dataset.table" or "dataset.table".
// The legacy "project:dataset.table" form is accepted too.
func ParseTableRef(s string) (TableRef, error) {
	parts := strings.Split(strings.Replace(s, ":", ".", 1), ".")

	var t TableRef
	switch len(parts) {
	case 2:
		t = TableRef{Dataset: parts[0], Table: parts[1]}
	case 3:
		t = TableRef{Project: parts[0], Dataset: parts[1], Table: parts[2]}
	default:
		return TableRef{}, xerrors.Errorf("invalid table name %q", s)
	}

	for _, p := range parts {
		if p == "" {
			return TableRef{}, xerrors.Errorf("invalid table name %q", s)
		}
	}

	return t, nil
}

func (t TableRef) String() string {
	if t.Project == "" {
		return fmt.Sprintf("%s.%s", t.Dataset, t.Table)
	}
	return fmt.Sprintf("%s.%s.%s", t.Project, t.Dataset, t.Table)
}

// LoadRequest describes a bulk load of a staged CSV file.
type LoadRequest struct {
	SourceURI       string
	Table           TableRef
	Schema          *Schema
	SkipLeadingRows int64
	WriteMode       WriteMode
}

// Warehouse accepts bulk load requests.
type Warehouse interface {
	BulkLoad(context.Context, LoadRequest) (Job, error)
}

// Job is a submitted load job.
type Job interface {
	ID() string

	// Wait blocks until the job is done and returns the number of loaded rows.
	Wait(context.Context) (int64, error)
}

// BigQueryWarehouse runs load jobs on BigQuery.
type BigQueryWarehouse struct {
	client *bigquery.Client
}

// NewBigQueryWarehouse builds a BigQueryWarehouse running jobs in project.
func NewBigQueryWarehouse(ctx context.Context, project string, opts ...option.ClientOption) (*BigQueryWarehouse, error) {
	bq, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to build bigquery client for %s: %w", project, err)
	}

	return &BigQueryWarehouse{client: bq}, nil
}

// BulkLoad starts a load job from a CSV file on Cloud Storage. The schema is
// always given explicitly and never auto-detected.
func (w *BigQueryWarehouse) BulkLoad(ctx context.Context, req LoadRequest) (Job, error) {
	l := log.Ctx(ctx)

	ref := bigquery.NewGCSReference(req.SourceURI)
	ref.SourceFormat = bigquery.CSV
	ref.SkipLeadingRows = req.SkipLeadingRows
	ref.Schema = req.Schema.BigQuerySchema()
	ref.AutoDetect = false
	// Staged STRING values may hold line breaks inside quotes.
	ref.AllowQuotedNewlines = true

	var ds *bigquery.Dataset
	if req.Table.Project == "" {
		ds = w.client.Dataset(req.Table.Dataset)
	} else {
		ds = w.client.DatasetInProject(req.Table.Project, req.Table.Dataset)
	}

	loader := ds.Table(req.Table.Table).LoaderFrom(ref)
	loader.CreateDisposition = bigquery.CreateIfNeeded

	switch req.WriteMode {
	case WriteReplace:
		loader.WriteDisposition = bigquery.WriteTruncate
	default:
		return nil, xerrors.Errorf("unsupported write mode %q", req.WriteMode)
	}

	job, err := loader.Run(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to run bigquery load job: %w", err)
	}
	l.Debug().Msgf("started load job %s from %s into %s", job.ID(), req.SourceURI, req.Table)

	return &bigqueryJob{job: job}, nil
}

// Close closes the underlying client.
func (w *BigQueryWarehouse) Close() error {
	return w.client.Close()
}

type bigqueryJob struct {
	job *bigquery.Job
}

func (j *bigqueryJob) ID() string {
	return j.job.ID()
}

func (j *bigqueryJob) Wait(ctx context.Context) (int64, error) {
	status, err := j.job.Wait(ctx)
	if err != nil {
		return 0, xerrors.Errorf("failed to wait job: %w", err)
	}

	if status.Err() != nil {
		msgs := make([]string, 0, len(status.Errors))
		for _, e := range status.Errors {
			msgs = append(msgs, e.Error())
		}
		if len(msgs) == 0 {
			msgs = append(msgs, status.Err().Error())
		}
		return 0, xerrors.Errorf("%s: %w", strings.Join(msgs, "; "), status.Err())
	}

	if status.Statistics == nil {
		return 0, xerrors.New("job finished without statistics")
	}
	stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics)
	if !ok {
		return 0, xerrors.Errorf("unexpected job statistics %T", status.Statistics.Details)
	}

	return stats.OutputRows, nil
}
