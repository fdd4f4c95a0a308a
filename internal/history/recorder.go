package history

import (
	"context"
	"time"

	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
)

// Recorder appends history entries through the caller's transaction.
type Recorder struct {
	clock        Clock
	ids          IDGenerator
	defaultActor string
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock sets the timestamp source.
func WithClock(c Clock) Option {
	return func(r *Recorder) { r.clock = c }
}

// WithIDGenerator sets the entry ID source.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Recorder) { r.ids = g }
}

// WithDefaultActor sets the actor used when the context carries none.
func WithDefaultActor(actor string) Option {
	return func(r *Recorder) {
		if actor != "" {
			r.defaultActor = actor
		}
	}
}

// NewRecorder creates a Recorder with a UTC wall clock and UUIDv7 IDs.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		clock:        SystemClock{},
		ids:          UUIDv7Generator{},
		defaultActor: DefaultActor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the recorder's current time. Mutations stamp rows with the
// same clock so history timestamps and row timestamps agree.
func (r *Recorder) Now() time.Time {
	return r.clock.Now()
}

// Record fills ID, Timestamp, and Actor and appends the entry through tx.
// Callers must have finished validation: an entry is only written for a
// mutation that is about to commit.
func (r *Recorder) Record(ctx context.Context, tx *store.Tx, entry model.HistoryEntry) (model.HistoryEntry, error) {
	if !entry.SubjectKind.Valid() {
		return model.HistoryEntry{}, model.Errorf(model.CodeInvariantViolation, "history: unknown subject kind %q", entry.SubjectKind)
	}
	if !entry.Action.Valid() {
		return model.HistoryEntry{}, model.Errorf(model.CodeInvariantViolation, "history: unknown action %q", entry.Action)
	}
	if entry.ListKey == "" {
		return model.HistoryEntry{}, model.NewError(model.CodeInvariantViolation, "history: entry has no list key")
	}
	if entry.SubjectKind == model.SubjectItem && entry.ItemKey == "" {
		return model.HistoryEntry{}, model.NewError(model.CodeInvariantViolation, "history: item entry has no item key")
	}

	entry.ID = r.ids.Generate()
	entry.Timestamp = r.clock.Now()
	entry.Actor = ActorFromContext(ctx)
	if entry.Actor == "" {
		entry.Actor = r.defaultActor
	}
	return tx.InsertHistory(ctx, entry)
}

// RecordDetails is Record with a structured details payload rendered as
// canonical JSON.
func (r *Recorder) RecordDetails(ctx context.Context, tx *store.Tx, entry model.HistoryEntry, details model.Details) (model.HistoryEntry, error) {
	s, err := model.MarshalDetails(details)
	if err != nil {
		return model.HistoryEntry{}, model.WrapError(model.CodeInvariantViolation, "history: encode details", err)
	}
	entry.Details = s
	return r.Record(ctx, tx, entry)
}
