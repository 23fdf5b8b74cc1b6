package inventory

import "context"

// Actor identidad del llamador, tal como la entrega el colaborador de autenticación.
type Actor struct {
	UserID string
	Role   string
}

type actorKey struct{}

// WithActor adjunta el actor al contexto.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom devuelve el actor del contexto (vacío si no hay).
func ActorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}
