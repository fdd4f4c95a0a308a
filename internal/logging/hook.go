package logging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/roach88/tasktree/internal/history"
)

// ContextHook adds the acting user from the event's context.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil || ctx == context.Background() {
		return
	}
	if actor := history.ActorFromContext(ctx); actor != "" {
		e.Str("actor", actor)
	}
}
