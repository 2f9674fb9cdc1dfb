package audit

import "context"

// Actor identifies who triggered an audited action.
//
// HTTP handlers resolve the operator and the real client IP and attach them
// to the request context with WithActor.
type Actor struct {
	UserID string
	Role   string
	IP     string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	if a == (Actor{}) {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFromContext(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{}
}
