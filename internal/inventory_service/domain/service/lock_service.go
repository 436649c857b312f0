package service

import (
	"context"
	"errors"
	"time"
)

// ErrLockAcquisition is returned when a lock could not be acquired within
// waitTimeout. Callers treat it as transient and may retry with backoff;
// the core never blocks forever waiting on a product lock.
var ErrLockAcquisition = errors.New("failed to acquire distributed lock")

// LockToken identifies a held lease so that Unlock only ever releases a
// lease the caller owns (fencing), never an unrelated holder's lease
// acquired after an unexpected expiry.
type LockToken struct {
	Key   string
	Value string
}

// DistributedLockService is the outbound port for per-key mutual
// exclusion across every process running the core. Implementations may
// run an in-process watchdog goroutine to extend the lease while fn is
// still running (lock.watchdog.enabled); WithLock is the only API the
// rest of the core depends on.
type DistributedLockService interface {
	// WithLock acquires key within waitTimeout, holds it for at most
	// leaseTimeout unless renewed, invokes fn, and unconditionally
	// releases on every exit path (success, error, panic). Releases are
	// idempotent and fenced by the token obtained at acquisition.
	WithLock(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration, fn func(ctx context.Context) error) error

	// TryLock acquires key for manual, multi-step control (used by
	// handlers spanning more than one logical operation). Returns a zero
	// LockToken and ErrLockAcquisition on failure.
	TryLock(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration) (LockToken, error)

	// Unlock releases a token obtained from TryLock. Idempotent: a second
	// Unlock of an already-released or expired token is a no-op.
	Unlock(ctx context.Context, token LockToken) error
}

// ProductLockKey formats the canonical key used for all Stock-affecting
// operations on a product.
func ProductLockKey(productId string) string {
	return "lock:product:" + productId
}
