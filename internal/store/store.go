// Package store is the repository seam for persisted application state.
// Every blob is a JSON document under a fixed key in a cache.Cache.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lildude/trailcoach/internal/cache"
	"github.com/sirupsen/logrus"
)

const (
	KeyProfile       = "profile"
	KeyPlan          = "plan"
	KeyNutritionLog  = "nutrition_log"
	KeyNutritionPlan = "nutrition_plan"
)

type Store struct {
	cache cache.Cache
	log   logrus.FieldLogger
}

func New(c cache.Cache, log logrus.FieldLogger) *Store {
	return &Store{cache: c, log: log}
}

// Cache exposes the underlying key-value store.
func (s *Store) Cache() cache.Cache {
	return s.cache
}

// Load returns the value stored under key, or fallback when it is absent or unreadable.
// Unreadable values are logged, never returned as errors.
func Load[T any](ctx context.Context, s *Store, key string, fallback T) T {
	var v T
	err := s.cache.GetJSON(ctx, key, &v)
	switch {
	case err == nil:
		return v
	case errors.Is(err, cache.ErrMiss):
	default:
		s.log.WithError(err).WithField("key", key).Warn("unable to read stored value, using fallback")
	}
	return fallback
}

// Lookup is Load without a fallback: ok is false when nothing usable is stored.
// A value that does not decode is logged and reported as absent; a failing
// backend is returned as err so callers never mistake an outage for "nothing stored".
func Lookup[T any](ctx context.Context, s *Store, key string) (v T, ok bool, err error) {
	err = s.cache.GetJSON(ctx, key, &v)
	var de *cache.DecodeError
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, cache.ErrMiss):
		err = nil
	case errors.As(err, &de):
		s.log.WithError(err).WithField("key", key).Warn("unable to read stored value")
		err = nil
	default:
		err = fmt.Errorf("reading %q: %w", key, err)
	}
	var zero T
	return zero, false, err
}

// Save overwrites the value stored under key.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	return s.cache.SetJSON(ctx, key, value)
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}
