package context

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID attaches a correlation ID to the context. The ID
// follows a request from the inbound HTTP layer through every outbound
// authority call and into the audit trail.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// GetCorrelationID returns the correlation ID from the context, or ""
// when none is present.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
