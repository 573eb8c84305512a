package blockloader

import (
	"context"
	"regexp"

	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// Pipeline moves one dataset file into one warehouse table.
//
// A run is strictly sequential: fetch, normalize, coerce, stage and load.
// Any failure stops the run and is returned as is. There are no retries.
type Pipeline struct {
	// Name is the pipeline's name used in logs and notifications.
	Name string

	// Pattern selects the storage events this pipeline handles.
	Pattern *regexp.Regexp

	Source   DatasetSource
	Schema   *Schema
	Stager   *Stager
	Loader   *Loader
	Notifier Notifier

	// StagingObject is the object name of the staged file.
	// It defaults to "<table>.csv" so reruns overwrite the same object.
	StagingObject string

	// Destination is the table replaced on every run.
	Destination TableRef
}

func (p *Pipeline) match(name string) bool {
	return p.Pattern != nil && p.Pattern.MatchString(name)
}

func (p *Pipeline) schema() *Schema {
	if p.Schema == nil {
		return BlockSchema
	}
	return p.Schema
}

func (p *Pipeline) stagingObject() string {
	if p.StagingObject == "" {
		return p.Destination.Table + ".csv"
	}
	return p.StagingObject
}

// Run executes the pipeline for datasetID/filePath and notifies the result.
func (p *Pipeline) Run(ctx context.Context, datasetID, filePath string) (*LoadResult, error) {
	ctx = withStartedTime(ctx)
	l := log.Ctx(ctx).With().Str("pipeline", p.Name).Logger()
	ctx = l.WithContext(ctx)

	res, err := p.run(ctx, datasetID, filePath)
	if err != nil {
		l.Error().Msgf("run failed: %v", err)
	}

	if p.Notifier != nil {
		r := &Result{
			Pipeline:  p.Name,
			EventID:   eventIDFrom(ctx),
			DatasetID: datasetID,
			FilePath:  filePath,
			Load:      res,
			Error:     err,
		}
		if t, ok := startedTimeFrom(ctx); ok {
			r.StartedAt = t
		}
		if nerr := p.Notifier.Notify(ctx, r); nerr != nil {
			l.Error().Msgf("failed to notify: %v", nerr)
		}
	}

	return res, err
}

func (p *Pipeline) run(ctx context.Context, datasetID, filePath string) (*LoadResult, error) {
	l := log.Ctx(ctx)
	schema := p.schema()

	raw, err := p.Source.Fetch(ctx, datasetID, filePath)
	if err != nil {
		return nil, xerrors.Errorf("failed to fetch %s/%s: %w", datasetID, filePath, err)
	}
	l.Info().Str("stage", "extract").Msgf("extracted %d rows", len(raw.Rows))

	norm, err := Normalize(raw, schema)
	if err != nil {
		return nil, xerrors.Errorf("failed to normalize: %w", err)
	}
	l.Info().Str("stage", "normalize").Msgf("normalized %d rows, dropped %d", len(norm.Rows), len(raw.Rows)-len(norm.Rows))

	typed, err := Coerce(norm, schema)
	if err != nil {
		return nil, xerrors.Errorf("failed to coerce: %w", err)
	}
	l.Info().Str("stage", "coerce").Msgf("coerced %d rows to %d fields", len(typed.Rows), schema.Len())

	artifact, err := p.Stager.Stage(ctx, typed, p.stagingObject())
	if err != nil {
		return nil, xerrors.Errorf("failed to stage: %w", err)
	}
	l.Info().Str("stage", "stage").Msgf("staged %d rows to %s", artifact.RowCount, artifact.Location)

	res, err := p.Loader.Load(ctx, artifact, p.Destination)
	if err != nil {
		return nil, xerrors.Errorf("failed to load: %w", err)
	}
	l.Info().Str("stage", "load").Msgf("loaded %d rows into %s", res.RowCount, res.Table)

	return res, nil
}
