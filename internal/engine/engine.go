package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/tasktree/internal/depgraph"
	"github.com/roach88/tasktree/internal/history"
	"github.com/roach88/tasktree/internal/logging"
	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/statussync"
	"github.com/roach88/tasktree/internal/store"
)

// Engine composes the store, history recorder, dependency graph, and status
// synchronizer. Each collaborator receives the operation's *store.Tx
// explicitly; nothing holds a session between calls.
//
// Thread-safety: Engine has no mutable state and is safe for concurrent use.
// Concurrent writers serialize on the store's write lock.
type Engine struct {
	store    *store.Store
	recorder *history.Recorder
	graph    *depgraph.Graph
	sync     *statussync.Synchronizer
	logger   zerolog.Logger
}

type options struct {
	clock  history.Clock
	ids    history.IDGenerator
	logger *zerolog.Logger
	actor  string
}

// Option configures an Engine.
type Option func(*options)

// WithClock sets the source of row and history timestamps.
func WithClock(c history.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator sets the source of history entry IDs.
func WithIDGenerator(g history.IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

// WithLogger sets the engine's logger.
// Default: the "engine" component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithActor sets the actor recorded when the context carries none.
func WithActor(actor string) Option {
	return func(o *options) { o.actor = actor }
}

// New creates an Engine over an open store.
func New(st *store.Store, opts ...Option) *Engine {
	o := options{
		clock: history.SystemClock{},
		ids:   history.UUIDv7Generator{},
		actor: history.DefaultActor,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.Component("engine")
	if o.logger != nil {
		logger = *o.logger
	}

	rec := history.NewRecorder(
		history.WithClock(o.clock),
		history.WithIDGenerator(o.ids),
		history.WithDefaultActor(o.actor),
	)
	graph := depgraph.New(rec.Now)
	return &Engine{
		store:    st,
		recorder: rec,
		graph:    graph,
		sync:     statussync.New(rec, graph, logger),
		logger:   logger,
	}
}

// run executes fn as one unit of work and logs its outcome.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, tx *store.Tx) error) error {
	err := e.store.WithUnitOfWork(ctx, fn)
	if err != nil {
		e.logger.Debug().Ctx(ctx).
			Str("op", op).
			Str("code", string(model.CodeOf(err))).
			Err(err).
			Msg("rolled back")
		return err
	}
	e.logger.Debug().Ctx(ctx).Str("op", op).Msg("committed")
	return nil
}

// view executes fn as a read-only unit of work. Query operations use it so
// they never take the write lock.
func (e *Engine) view(ctx context.Context, op string, fn func(ctx context.Context, tx *store.Tx) error) error {
	err := e.store.WithReadUnitOfWork(ctx, fn)
	if err != nil {
		e.logger.Debug().Ctx(ctx).
			Str("op", op).
			Str("code", string(model.CodeOf(err))).
			Err(err).
			Msg("read failed")
	}
	return err
}

// now returns the timestamp for row writes. It reads the same clock as the
// recorder so row and history times line up.
func (e *Engine) now() time.Time {
	return e.recorder.Now()
}
