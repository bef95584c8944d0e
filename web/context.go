package web

import "context"

type contextKey string

const (
	principalKey contextKey = "principal"
	tierKey      contextKey = "tier"
	emailKey     contextKey = "email"
	requestIDKey contextKey = "request_id"
)

// PrincipalFromContext returns the authenticated principal id, if any.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalKey).(string)
	return v, ok && v != ""
}

// TierFromContext returns the caller's tier as asserted by the
// identity layer.
func TierFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tierKey).(string)
	return v, ok && v != ""
}

// EmailFromContext returns the caller's email, if the identity layer
// supplied one.
func EmailFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	return v, ok && v != ""
}

// RequestIDFromContext returns the request id assigned by the
// middleware.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	return v, ok && v != ""
}
