package middleware

import (
	"context"

	"github.com/google/uuid"
)

// CorrelationIDHeader is the Kafka message header carrying a correlation
// id across the wire, so a chain of inbound event -> outbound event keeps
// one id from end to end.
const CorrelationIDHeader = "x-correlation-id"

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID returns a context carrying id, overriding any prior
// value.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the id stored by WithCorrelationID, or
// "" if none was set.
func CorrelationIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}

// NewCorrelationID generates a fresh id, used when an inbound message
// carries none.
func NewCorrelationID() string {
	return uuid.New().String()
}
