// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// CallerKey is the context key for the calling principal.
// Exported so it can be used consistently across packages.
type CallerKey struct{}

// WithCaller returns a context with the caller principal embedded.
func WithCaller(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, CallerKey{}, principal)
}

// CallerFromContext returns the caller principal from context, or empty string if not set.
func CallerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CallerKey{}).(string); ok {
		return v
	}
	return ""
}
