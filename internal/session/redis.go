package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "campus:scope:"

// RedisBackend stores scopes in Redis. Every write refreshes the key TTL so
// abandoned scopes are reclaimed by Redis.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend constructs a RedisBackend. A zero ttl disables expiry.
func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

// Storage returns the storage for scope.
func (b *RedisBackend) Storage(scope string) Storage {
	return redisStorage{backend: b, scope: scope}
}

// Scopes scans for scopes holding a session record.
func (b *RedisBackend) Scopes(ctx context.Context) ([]string, error) {
	suffix := ":" + SessionKey
	var scopes []string
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+"*"+suffix, 100).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimSuffix(strings.TrimPrefix(iter.Val(), redisKeyPrefix), suffix)
		if key != "" {
			scopes = append(scopes, key)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("session: scan scopes: %w", err)
	}
	return scopes, nil
}

// Drop deletes every key of scope.
func (b *RedisBackend) Drop(ctx context.Context, scope string) error {
	var keys []string
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+scope+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("session: scan scope: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session: drop scope: %w", err)
	}
	return nil
}

func (b *RedisBackend) key(scope, key string) string {
	return redisKeyPrefix + scope + ":" + key
}

type redisStorage struct {
	backend *RedisBackend
	scope   string
}

func (s redisStorage) Get(ctx context.Context, key string) (string, error) {
	value, err := s.backend.client.Get(ctx, s.backend.key(s.scope, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoValue
		}
		return "", err
	}
	return value, nil
}

func (s redisStorage) Set(ctx context.Context, key, value string) error {
	return s.backend.client.Set(ctx, s.backend.key(s.scope, key), value, s.backend.ttl).Err()
}

// Replace runs GET and SET under WATCH so a concurrent delete or overwrite of
// key aborts the write.
func (s redisStorage) Replace(ctx context.Context, key, old, value string) (bool, error) {
	full := s.backend.key(s.scope, key)
	replaced := false
	err := s.backend.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, full).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if current != old {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, value, s.backend.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		replaced = true
		return nil
	}, full)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return replaced, nil
}

func (s redisStorage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, s.backend.key(s.scope, key))
	}
	if err := s.backend.client.Del(ctx, full...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
