package chatnet

import "context"

type callerKey struct{}

// WithCaller attaches the authenticated user's identifier to ctx
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// CallerFromContext returns the authenticated user's identifier for the running transaction
func CallerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(callerKey{}).(string)
	return id, ok && id != ""
}
