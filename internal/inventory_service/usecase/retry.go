package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/entity"
)

// retryOptimistic retries fn up to maxAttempts times, sleeping an
// exponentially growing backoff (base, 2*base, 4*base, ...) between
// attempts, but only when fn fails with entity.ErrOptimisticConflict —
// every other error is returned immediately. Callers run this inside
// WithLock, so the lock stays held across attempts; a conflict under the
// lock is rare (a sweeper pass racing the use case) and resolves by
// reloading the aggregate on the next attempt.
func retryOptimistic(ctx context.Context, maxAttempts int, backoffBase time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	backoff := backoffBase
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, entity.ErrOptimisticConflict) {
			return lastErr
		}
		if attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}
