package history

import "context"

// DefaultActor is recorded when neither the context nor the recorder names one.
const DefaultActor = "system"

type actorKey struct{}

// WithActor returns a context that attributes recorded entries to actor.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached by WithActor, or "" if none.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok {
		return actor
	}
	return ""
}
