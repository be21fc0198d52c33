// Package tokens persists provider credentials.
package tokens

import (
	"context"
	"fmt"

	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/store"
)

type Store struct {
	s *store.Store
}

func New(s *store.Store) *Store {
	return &Store{s: s}
}

// Key returns the storage key for a provider's tokens, e.g. "stravaTokens".
func Key(id model.ProviderID) string {
	return fmt.Sprintf("%sTokens", id)
}

// Get returns the stored payload. A payload that does not parse is treated as
// absent; a failing backend is an error.
func (t *Store) Get(ctx context.Context, id model.ProviderID) (*model.TokenPayload, bool, error) {
	p, ok, err := store.Lookup[model.TokenPayload](ctx, t.s, Key(id))
	if err != nil {
		return nil, false, fmt.Errorf("loading %s tokens: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (t *Store) Set(ctx context.Context, id model.ProviderID, payload *model.TokenPayload) error {
	if payload == nil {
		return fmt.Errorf("storing %s tokens: nil payload", id)
	}
	if err := t.s.Save(ctx, Key(id), payload); err != nil {
		return fmt.Errorf("storing %s tokens: %w", id, err)
	}
	return nil
}

func (t *Store) Clear(ctx context.Context, id model.ProviderID) error {
	if err := t.s.Remove(ctx, Key(id)); err != nil {
		return fmt.Errorf("clearing %s tokens: %w", id, err)
	}
	return nil
}
