package middleware

import (
	"context"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
)

// WrapHandler wraps an inbound Kafka handler with start/end logging and a
// per-message logger carrying the correlation id already stored in ctx by
// the caller, matching the request-logging shape the teacher applied to
// HTTP handlers.
func WrapHandler(log logger.Logger, topic string, handle func(ctx context.Context, payload []byte) error) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		correlationID := CorrelationIDFromContext(ctx)
		reqLogger := log.WithCorrelationID(correlationID)

		start := time.Now()
		reqLogger.Info("message received", "topic", topic, "bytes", len(payload))

		err := handle(ctx, payload)

		fields := []interface{}{"topic", topic, "latency_ms", time.Since(start).Milliseconds()}
		if err != nil {
			reqLogger.Error("message handling failed", append(fields, "error", err)...)
		} else {
			reqLogger.Info("message handled", fields...)
		}
		return err
	}
}
