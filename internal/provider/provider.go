// Package provider defines the contract every activity provider implements and the
// normalization rules shared between them.
package provider

import (
	"context"
	"fmt"

	"github.com/lildude/trailcoach/internal/model"
)

// Provider is the capability set of one activity provider.
type Provider interface {
	ID() model.ProviderID
	// AuthURL builds the authorization URL the browser is redirected to.
	AuthURL(state string) (string, error)
	// Exchange trades an authorization code for tokens and persists them.
	Exchange(ctx context.Context, code string) (*model.TokenPayload, error)
	// Refresh trades the refresh token in payload for a new access token and persists it.
	Refresh(ctx context.Context, payload *model.TokenPayload) (*model.TokenPayload, error)
	// Activities returns the trailing window of activities in the common shape.
	// It returns an empty slice, not an error, when no token is stored.
	Activities(ctx context.Context) ([]model.Activity, error)
}

// TokenStore persists token payloads per provider. Get reports ok=false with a
// nil error when nothing usable is stored.
type TokenStore interface {
	Get(ctx context.Context, id model.ProviderID) (*model.TokenPayload, bool, error)
	Set(ctx context.Context, id model.ProviderID, payload *model.TokenPayload) error
	Clear(ctx context.Context, id model.ProviderID) error
}

// Registry selects a provider by its identifier.
type Registry struct {
	order     []model.ProviderID
	providers map[model.ProviderID]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[model.ProviderID]Provider, len(providers))}
	for _, p := range providers {
		r.order = append(r.order, p.ID())
		r.providers[p.ID()] = p
	}
	return r
}

func (r *Registry) Get(id model.ProviderID) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", id)
	}
	return p, nil
}

// All returns the providers in registration order.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}
