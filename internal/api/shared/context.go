package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/logger"
)

// ContextKey is the type of request context keys set by the API layer.
type ContextKey string

const (
	// UserIDContextKey holds the authenticated user's uuid.UUID.
	UserIDContextKey ContextKey = "userID"

	// RoleContextKey holds the authenticated user's domain.Role.
	RoleContextKey ContextKey = "role"

	// TraceIDKey holds the request trace ID.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of random bytes in a trace ID (32 hex characters).
	TraceIDLength = 16
)

// fallbackCounter separates fallback trace IDs generated in the same nanosecond.
var fallbackCounter atomic.Uint32

// SetTraceID adds a new trace ID to the context. The ID is also registered
// with the logger package so services can stamp it on audit events.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, generateTraceID(rand.Reader))
}

// WithTraceID adds traceID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	ctx = context.WithValue(ctx, TraceIDKey, traceID)
	return logger.WithTraceID(ctx, traceID)
}

// GetTraceID returns the trace ID of the context, or "".
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// WithUser adds the authenticated user's ID and role to the context.
func WithUser(ctx context.Context, userID uuid.UUID, role domain.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	return context.WithValue(ctx, RoleContextKey, role)
}

// UserID returns the authenticated user's ID. ok is false when the request
// was not authenticated.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// Role returns the authenticated user's role, or "" when there is none.
func Role(ctx context.Context) domain.Role {
	role, _ := ctx.Value(RoleContextKey).(domain.Role)
	return role
}

// generateTraceID reads TraceIDLength random bytes from src. When src fails
// a time based ID is returned instead of a static value.
func generateTraceID(src io.Reader) string {
	b := make([]byte, TraceIDLength)
	if n, err := io.ReadFull(src, b); err != nil {
		slog.Error("failed to generate random trace ID, using time based fallback",
			"error", err,
			"bytes_read", n)
		return generateFallbackTraceID()
	}
	return hex.EncodeToString(b)
}

func generateFallbackTraceID() string {
	b := make([]byte, TraceIDLength)
	binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint32(b[8:12], fallbackCounter.Add(1))
	binary.BigEndian.PutUint32(b[12:], uint32(time.Now().Unix()))
	return hex.EncodeToString(b)
}
