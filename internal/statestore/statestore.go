// Package statestore is the typed key/value façade over the external state
// store: a short ASCII key maps to a UTF-8 string or integer value, with
// last-writer-wins sets and idempotent deletes.
package statestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Nomadcxx/movieindexd/internal/logging"
	"github.com/Nomadcxx/movieindexd/internal/retry"
)

// Store is the contract every process-runner, query-builder, and reset
// tool consumes. All three methods are individually retried.
type Store interface {
	// Get returns the value for key, and false if the key is absent —
	// missing or binary-undecodable are both "absent".
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore is the only Store implementation this daemon ships; it wraps
// a *redis.Client.
type RedisStore struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisStore constructs a RedisStore from an already-connected client.
func NewRedisStore(client *redis.Client, logger *logging.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var absent bool

	err := retry.Do(ctx, s.logger, "statestore", "get "+key, func(ctx context.Context) error {
		v, err := s.client.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			absent = true
			return nil
		case err != nil:
			return err
		default:
			value = v
			return nil
		}
	})
	if err != nil {
		return "", false, fmt.Errorf("statestore get %q: %w", key, err)
	}
	return value, !absent, nil
}

// Set implements Store. Last-writer-wins: a plain SET with no condition.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	err := retry.Do(ctx, s.logger, "statestore", "set "+key, func(ctx context.Context) error {
		return s.client.Set(ctx, key, value, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("statestore set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store. Idempotent: deleting keys that don't exist is
// not an error (this is Redis DEL's native behavior already).
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := retry.Do(ctx, s.logger, "statestore", "delete", func(ctx context.Context) error {
		return s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("statestore delete %v: %w", keys, err)
	}
	return nil
}
