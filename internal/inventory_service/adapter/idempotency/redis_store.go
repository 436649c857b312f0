// Package idempotency implements the inbound dedup port against Redis.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements service.IdempotencyStore. Dedup scope is
// per-topic: the Redis key combines topic and eventId so the same
// eventId reused (however unlikely) on a different topic is tracked
// independently.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client rather than dialing its
// own; the lock adapter (adapter/lock) opens a separate client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func dedupKey(topic, eventId string) string {
	return "idempotency:" + topic + ":" + eventId
}

// AlreadyProcessed reports whether eventId on topic has a live dedup key.
func (s *RedisStore) AlreadyProcessed(ctx context.Context, topic, eventId string) (bool, error) {
	n, err := s.client.Exists(ctx, dedupKey(topic, eventId)).Result()
	if err != nil {
		return false, fmt.Errorf("check processed %s/%s: %w", topic, eventId, err)
	}
	return n > 0, nil
}

// Mark sets the dedup key with SETNX semantics: concurrent callers racing
// to mark the same (topic, eventId) only ever see one succeed, which is
// enough for at-most-once dedup even though neither gets told which one
// "won" here (AlreadyProcessed is the check for that).
func (s *RedisStore) Mark(ctx context.Context, topic, eventId string, ttl time.Duration) error {
	if err := s.client.SetNX(ctx, dedupKey(topic, eventId), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("mark processed %s/%s: %w", topic, eventId, err)
	}
	return nil
}
