// internal/session/context.go
package session

import "context"

type ctxKey struct{}

// WithID attaches the session id to the context so downstream provider calls
// can resolve the caller's auth token.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session id attached by WithID, if any.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// TokenSource adapts the store into the per-call token lookup used by the
// capability providers. Requests without a session get no bearer token.
func (s *Store) TokenSource() func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		id, ok := IDFromContext(ctx)
		if !ok {
			return "", nil
		}
		sess, err := s.Get(ctx, id)
		if err != nil {
			return "", err
		}
		return sess.AuthToken, nil
	}
}
