package blockloader

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LoadResult is the outcome of a successful load.
type LoadResult struct {
	Table     TableRef
	RowCount  int64
	WriteMode WriteMode
}

// Loader loads staged artifacts into a warehouse.
type Loader struct {
	Warehouse Warehouse
}

// Load replaces target with the contents of artifact and waits for the job.
// It fails with *LoadJobError when the job fails and with
// *LoadRowCountMismatchError when the warehouse loaded a different number of
// rows than were staged.
func (l *Loader) Load(ctx context.Context, artifact *StagedArtifact, target TableRef) (*LoadResult, error) {
	lg := log.Ctx(ctx)

	job, err := l.Warehouse.BulkLoad(ctx, LoadRequest{
		SourceURI:       artifact.Location,
		Table:           target,
		Schema:          artifact.Schema,
		SkipLeadingRows: 1,
		WriteMode:       WriteReplace,
	})
	if err != nil {
		lg.Error().Msgf("failed to submit load job: %v", err)
		return nil, &LoadJobError{Diagnostic: err.Error(), Err: err}
	}

	loaded, err := job.Wait(ctx)
	if err != nil {
		lg.Error().Msgf("load job %s failed: %v", job.ID(), err)
		return nil, &LoadJobError{JobID: job.ID(), Diagnostic: err.Error(), Err: err}
	}

	if loaded != int64(artifact.RowCount) {
		return nil, &LoadRowCountMismatchError{Table: target, Staged: artifact.RowCount, Loaded: loaded}
	}

	return &LoadResult{Table: target, RowCount: loaded, WriteMode: WriteReplace}, nil
}
