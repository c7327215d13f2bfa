package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper stores processed idempotency keys in Redis so all instances
// reject a replayed change-request, not just the one that saw it first.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(projectID, key string) string {
	return fmt.Sprintf("chat:%s:%s", projectID, key)
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, projectID, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(projectID, key), 1, r.ttl).Result()
}

// Remove deletes a previously recorded key. It is used when downstream
// processing fails so the caller may retry the change-request.
func (r *RedisDeduper) Remove(ctx context.Context, projectID, key string) error {
	return r.client.Del(ctx, r.key(projectID, key)).Err()
}
