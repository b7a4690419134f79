package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of request-scoped values set by the API layer.
type ContextKey string

const (
	// UserIDContextKey holds the authenticated user's uuid.UUID.
	UserIDContextKey ContextKey = "userID"

	// ManagerContextKey holds whether the authenticated user is a manager.
	ManagerContextKey ContextKey = "isManager"

	// TraceIDKey holds the request trace ID.
	TraceIDKey ContextKey = "traceID"
)

// TraceIDLength is the length of a trace ID in hex characters.
const TraceIDLength = 32

// SetTraceID returns ctx with a new random trace ID.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, newTraceID())
}

// GetTraceID returns the trace ID in ctx, or "".
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// WithUser returns ctx carrying the authenticated user's identity.
func WithUser(ctx context.Context, userID uuid.UUID, isManager bool) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	return context.WithValue(ctx, ManagerContextKey, isManager)
}

// UserID returns the authenticated user's ID, if any.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// IsManager reports whether the authenticated user is a manager.
func IsManager(ctx context.Context) bool {
	m, _ := ctx.Value(ManagerContextKey).(bool)
	return m
}

// newTraceID is a random v4 UUID without dashes.
func newTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
