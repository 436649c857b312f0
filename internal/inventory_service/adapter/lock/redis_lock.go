// Package lock implements the distributed lock port against Redis,
// following the connection-setup shape used for Redis elsewhere in the
// service family (redis.NewClient + an explicit Ping on construction).
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hydr0g3nz/ecom_inventory_service/internal/inventory_service/domain/service"
	"github.com/hydr0g3nz/ecom_inventory_service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings backing the lock.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// unlockScript deletes key only if its value still matches the caller's
// token, so a lease that expired and was reacquired by someone else is
// never released out from under them (fencing).
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// renewScript extends key's TTL only if its value still matches the
// caller's token, used by the watchdog to keep a lease alive while fn is
// still running.
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`

// RedisLockService implements service.DistributedLockService with
// SET NX PX for acquisition, a Lua script for fenced release, and an
// optional watchdog goroutine that renews the lease at half its TTL
// while the protected function is still running.
type RedisLockService struct {
	client          *redis.Client
	watchdogEnabled bool
	log             logger.Logger
}

// NewRedisLockService connects to Redis and verifies reachability with a
// Ping before returning, the same way the rest of the service family
// brings up a Redis client.
func NewRedisLockService(cfg Config, watchdogEnabled bool, log logger.Logger) (*RedisLockService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisLockService{client: client, watchdogEnabled: watchdogEnabled, log: log}, nil
}

// TryLock attempts SET key value NX PX leaseTimeout, polling every 50ms
// until waitTimeout elapses.
func (r *RedisLockService) TryLock(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration) (service.LockToken, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(waitTimeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, leaseTimeout).Result()
		if err != nil {
			return service.LockToken{}, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			return service.LockToken{Key: key, Value: token}, nil
		}
		if time.Now().After(deadline) {
			return service.LockToken{}, service.ErrLockAcquisition
		}
		select {
		case <-ctx.Done():
			return service.LockToken{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Unlock runs unlockScript, a no-op if token's value no longer matches
// (already expired and possibly reacquired by another holder).
func (r *RedisLockService) Unlock(ctx context.Context, token service.LockToken) error {
	if token.Key == "" {
		return nil
	}
	err := r.client.Eval(ctx, unlockScript, []string{token.Key}, token.Value).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %q: %w", token.Key, err)
	}
	return nil
}

// WithLock acquires key, starts a watchdog renewer (if enabled), invokes
// fn, and unconditionally stops the watchdog and releases the lock
// before returning — including on panic, which it re-raises after
// cleanup so the lock never leaks.
func (r *RedisLockService) WithLock(ctx context.Context, key string, waitTimeout, leaseTimeout time.Duration, fn func(ctx context.Context) error) error {
	token, err := r.TryLock(ctx, key, waitTimeout, leaseTimeout)
	if err != nil {
		return err
	}

	stopWatchdog := func() {}
	if r.watchdogEnabled {
		stopWatchdog = r.startWatchdog(ctx, token, leaseTimeout)
	}

	defer func() {
		stopWatchdog()
		if unlockErr := r.Unlock(context.Background(), token); unlockErr != nil {
			r.log.Error("failed to release lock", "key", key, "error", unlockErr)
		}
	}()

	return fn(ctx)
}

// startWatchdog renews token's lease at half of leaseTimeout until the
// returned stop function is called, so a slow-but-still-running fn never
// loses its lock to expiry mid-operation.
func (r *RedisLockService) startWatchdog(ctx context.Context, token service.LockToken, leaseTimeout time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(leaseTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				renewCtx, cancel := context.WithTimeout(context.Background(), leaseTimeout/2)
				err := r.client.Eval(renewCtx, renewScript, []string{token.Key}, token.Value, leaseTimeout.Milliseconds()).Err()
				cancel()
				if err != nil && !errors.Is(err, redis.Nil) {
					r.log.Warn("failed to renew lock lease", "key", token.Key, "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

// Close closes the underlying Redis client.
func (r *RedisLockService) Close() error {
	return r.client.Close()
}
