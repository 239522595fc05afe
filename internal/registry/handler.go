package registry

import "context"

// QueryHandler resolves a ConnectedRegistryQuery into the history of the pair.
//
// Implementations must:
//   - accept any handle text, including empty strings;
//   - report an unknown or never-connected pair as a RegisterFor with no
//     entries, never as an error;
//   - return entries ordered by RegisteredAt ascending;
//   - not mutate stored state;
//   - be safe for concurrent use.
//
// A non-nil error means the backing collaborator failed; callers must not use
// the returned RegisterFor in that case.
type QueryHandler interface {
	Handle(ctx context.Context, q ConnectedRegistryQuery) (RegisterFor, error)
}

// QueryHandlerFunc adapts an ordinary function to the QueryHandler interface.
type QueryHandlerFunc func(ctx context.Context, q ConnectedRegistryQuery) (RegisterFor, error)

// Handle calls f(ctx, q).
func (f QueryHandlerFunc) Handle(ctx context.Context, q ConnectedRegistryQuery) (RegisterFor, error) {
	return f(ctx, q)
}

// NullQueryHandler reports an empty history for every pair. It is used when
// no storage backend is wired in.
type NullQueryHandler struct{}

// Handle implements QueryHandler.
func (NullQueryHandler) Handle(_ context.Context, q ConnectedRegistryQuery) (RegisterFor, error) {
	return EmptyRegister(q), nil
}
