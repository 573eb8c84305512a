package blockloader

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/functions/metadata"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// BlockLoader runs pipelines which load datasets into BigQuery tables.
type BlockLoader interface {
	AddPipeline(context.Context, *Pipeline) error
	MustAddPipeline(context.Context, *Pipeline)

	// Handle runs every pipeline whose pattern matches the event's object.
	Handle(context.Context, Event) error

	// Run runs the named pipeline for datasetID/filePath.
	Run(ctx context.Context, name, datasetID, filePath string) (*LoadResult, error)
}

// New builds a new BlockLoader.
func New(opts ...Option) (BlockLoader, error) {
	l := &blockloader{
		pipelines: []*Pipeline{},
		logLevel:  zerolog.InfoLevel,
		logOutput: os.Stderr,
	}

	for _, o := range opts {
		if err := o.apply(l); err != nil {
			return nil, xerrors.Errorf("failed to apply option: %w", err)
		}
	}

	var out io.Writer = l.logOutput
	if l.prettyLogging {
		out = zerolog.ConsoleWriter{Out: l.logOutput, TimeFormat: time.RFC3339}
	}
	l.logger = zerolog.New(out).Level(l.logLevel).With().Timestamp().Logger()

	return l, nil
}

type blockloader struct {
	pipelines []*Pipeline
	mu        sync.RWMutex

	logger        zerolog.Logger
	logLevel      zerolog.Level
	logOutput     io.Writer
	prettyLogging bool
}

// AddPipeline registers p. Two pipelines must not share a name or a
// destination table, so a table is never replaced by two concurrent loads.
func (l *blockloader) AddPipeline(_ context.Context, p *Pipeline) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.Source == nil || p.Stager == nil || p.Loader == nil {
		return xerrors.Errorf("pipeline %q needs a source, a stager and a loader", p.Name)
	}
	if p.Destination.Dataset == "" || p.Destination.Table == "" {
		return xerrors.Errorf("pipeline %q has no destination table", p.Name)
	}

	for _, q := range l.pipelines {
		if q.Name == p.Name {
			return xerrors.Errorf("pipeline %q is already registered", p.Name)
		}
		if q.Destination == p.Destination {
			return xerrors.Errorf("pipelines %q and %q both load into %s", q.Name, p.Name, p.Destination)
		}
	}

	l.pipelines = append(l.pipelines, p)

	return nil
}

func (l *blockloader) MustAddPipeline(ctx context.Context, p *Pipeline) {
	if err := l.AddPipeline(ctx, p); err != nil {
		panic(err)
	}
}

func (l *blockloader) Handle(ctx context.Context, e Event) error {
	logger := l.logger.With().Str("object", e.FullPath()).Logger()

	// Metadata is only present when invoked by Cloud Functions.
	if md, err := metadata.FromContext(ctx); err == nil {
		logger = logger.With().Str("event_id", md.EventID).Logger()
		ctx = withEventID(ctx, md.EventID)
	}
	ctx = logger.WithContext(ctx)

	logger.Info().Msg("loader started")
	defer logger.Info().Msg("loader finished")

	var eg errgroup.Group
	for _, p := range l.matching(e.Name) {
		p := p
		logger.Debug().Msgf("pipeline %s matches", p.Name)

		eg.Go(func() error {
			_, err := p.Run(ctx, e.Bucket, e.Name)
			return err
		})
	}

	return eg.Wait()
}

func (l *blockloader) matching(name string) []*Pipeline {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ps []*Pipeline
	for _, p := range l.pipelines {
		if p.match(name) {
			ps = append(ps, p)
		}
	}

	return ps
}

func (l *blockloader) Run(ctx context.Context, name, datasetID, filePath string) (*LoadResult, error) {
	ctx = l.logger.WithContext(ctx)

	var found *Pipeline
	l.mu.RLock()
	for _, p := range l.pipelines {
		if p.Name == name {
			found = p
			break
		}
	}
	l.mu.RUnlock()

	if found == nil {
		return nil, xerrors.Errorf("pipeline %q is not registered", name)
	}

	return found.Run(ctx, datasetID, filePath)
}
