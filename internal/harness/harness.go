package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/roach88/tasktree/internal/engine"
	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
	"github.com/roach88/tasktree/internal/testutil"
)

// Harness executes one scenario against a private store.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger zerolog.Logger
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger zerolog.Logger
}

// WithLogger routes engine and harness logs to l. Runs are silent by default.
func WithLogger(l zerolog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each run opens a fresh database under a temporary directory that is removed
// afterwards. A non-nil error means the scenario could not be executed (bad
// arguments, a failing setup step, a store failure); expectation failures are
// reported through Result.Errors instead.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	dir, err := os.MkdirTemp("", "tasktree-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	engOpts := []engine.Option{
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(testutil.NewSequentialIDs("h")),
		engine.WithLogger(cfg.logger),
	}
	if scenario.Actor != "" {
		engOpts = append(engOpts, engine.WithActor(scenario.Actor))
	}

	h := &Harness{
		store:  st,
		engine: engine.New(st, engOpts...),
		logger: cfg.logger.With().Str("cmp", "harness").Str("scenario", scenario.Name).Logger(),
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}
	if err := h.collectState(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to collect final state: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, h.engine, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSetup runs setup steps. Any failure aborts the run.
func (h *Harness) executeSetup(ctx context.Context, setup []Step, result *Result) error {
	for i, step := range setup {
		ev, err := h.step(ctx, step, result)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
		if ev.Outcome != OutcomeOK {
			return fmt.Errorf("setup step %d (%s) failed: %s: %s", i, step.Op, ev.Outcome, ev.Message)
		}
	}
	return nil
}

// executeFlow runs flow steps and checks each against its expect clause.
func (h *Harness) executeFlow(ctx context.Context, flow []Step, result *Result) error {
	for i, step := range flow {
		ev, err := h.step(ctx, step, result)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Op, err)
		}

		want := OutcomeOK
		if step.Expect != nil && step.Expect.Error != "" {
			want = step.Expect.Error
		}
		if ev.Outcome != want {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected outcome %s, got %s %s", i, step.Op, want, ev.Outcome, ev.Message))
			continue
		}
		if step.Expect != nil && step.Expect.Result != nil {
			if diff := subsetDiff(step.Expect.Result, ev.Result); diff != "" {
				result.AddError(fmt.Sprintf("flow[%d] %s: result mismatch: %s", i, step.Op, diff))
			}
		}
	}
	return nil
}

// step runs one operation and appends it to the trace.
func (h *Harness) step(ctx context.Context, step Step, result *Result) (TraceEvent, error) {
	fn, ok := operations[step.Op]
	if !ok {
		return TraceEvent{}, fmt.Errorf("unknown op %q", step.Op)
	}

	out, err := fn(ctx, h.engine, stepArgs(step.Args))
	var argErr *argError
	if errors.As(err, &argErr) {
		return TraceEvent{}, argErr
	}

	outcome, message := OutcomeOK, ""
	var generic any
	if err != nil {
		code := model.CodeOf(err)
		if code == "" {
			return TraceEvent{}, err
		}
		outcome, message = string(code), err.Error()
	} else if out != nil {
		if generic, err = toGeneric(out); err != nil {
			return TraceEvent{}, err
		}
	}

	h.logger.Debug().Str("op", step.Op).Str("outcome", outcome).Msg("step executed")
	return result.AddTrace(step.Op, step.Args, outcome, message, generic), nil
}

// collectState reads the full history and every list's items into result.
func (h *Harness) collectState(ctx context.Context, result *Result) error {
	q := model.HistoryQuery{Limit: model.MaxHistoryLimit}
	for {
		page, err := h.engine.History(ctx, q)
		if err != nil {
			return err
		}
		result.History = append(result.History, page.Entries...)
		if len(page.Entries) < page.Limit {
			break
		}
		q.Offset += len(page.Entries)
	}

	lists, err := h.engine.ListLists(ctx)
	if err != nil {
		return err
	}
	for _, l := range lists {
		items, err := h.engine.ListItems(ctx, l.Key)
		if err != nil {
			return err
		}
		result.Lists = append(result.Lists, ListState{List: l, Items: items})
	}
	return nil
}
