package tools

import "context"

type ctxKey int

const sessionCtxKey ctxKey = iota

// WithSession tags a context with the session a tool call belongs to.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionCtxKey, sessionID)
}

// SessionFrom returns the session a tool call belongs to, or empty.
func SessionFrom(ctx context.Context) string {
	if v, ok := ctx.Value(sessionCtxKey).(string); ok {
		return v
	}
	return ""
}
