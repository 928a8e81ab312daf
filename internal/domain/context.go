package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const sessionKey contextKey = "shopify_session"

// WithSession stores the authenticated Shopify session in the context
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the authenticated session, or nil
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok {
		return s
	}
	return nil
}
