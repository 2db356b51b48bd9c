package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	capsuleIDKey contextKey = "capsule_id"
	userIDKey    contextKey = "user_id"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCapsuleID annotates context with the capsule being operated on.
func WithCapsuleID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, capsuleIDKey, id)
}

// CapsuleIDFromContext returns the capsule identifier if present.
func CapsuleIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(capsuleIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithUserID annotates context with the acting user.
func WithUserID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the acting user identifier if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(userIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
