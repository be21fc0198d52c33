// Package cache implements the key-value store the service persists its state in.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redis "github.com/go-redis/redis/v8"
)

// ErrMiss is returned by GetJSON when nothing is stored under the key.
var ErrMiss = errors.New("cache: key not found")

// DecodeError reports a stored value that is not valid JSON for the requested type.
// The backend itself answered; only the content is unusable.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unmarshaling cached JSON for %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type Cache interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	GetJSON(ctx context.Context, key string, value any) error
	SetJSON(ctx context.Context, key string, value any) error
}

type RedisCache struct {
	conn *redis.Client
}

func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisCache{conn: client}, nil
}

// Set stores a value in the cache.
func (rc *RedisCache) Set(ctx context.Context, key string, value any) error {
	return rc.conn.Set(ctx, key, value, 0).Err()
}

// Get retrieves a value from the cache. A missing key yields an empty string.
func (rc *RedisCache) Get(ctx context.Context, key string) (any, error) {
	value, err := rc.conn.Get(ctx, key).Result()
	if err == nil || errors.Is(err, redis.Nil) {
		return value, nil
	}

	return nil, err
}

// Delete removes the key. Deleting a missing key is not an error.
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	return rc.conn.Del(ctx, key).Err()
}

// GetJSON retrieves a JSON string and unmarshals it into the given value.
func (rc *RedisCache) GetJSON(ctx context.Context, key string, value any) error {
	v, err := rc.Get(ctx, key)
	if err != nil {
		return err
	}
	return decode(key, v, value)
}

// SetJSON stores a struct as a JSON string.
func (rc *RedisCache) SetJSON(ctx context.Context, key string, value any) error {
	t, err := Encode(key, value)
	if err != nil {
		return err
	}
	return rc.Set(ctx, key, t)
}

// Close releases the connection pool.
func (rc *RedisCache) Close() error {
	return rc.conn.Close()
}

// Encode marshals value into the JSON string stored under key.
func Encode(key string, value any) (string, error) {
	t, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshaling JSON for cache key %q: %w", key, err)
	}
	return string(t), nil
}

func decode(key string, v, value any) error {
	s, ok := v.(string)
	if !ok {
		return &DecodeError{Key: key, Err: fmt.Errorf("value is not a string: %T", v)}
	}
	if s == "" {
		return ErrMiss
	}

	if err := json.Unmarshal([]byte(s), value); err != nil {
		return &DecodeError{Key: key, Err: err}
	}
	return nil
}
