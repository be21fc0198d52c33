package provider

import (
	"fmt"

	"github.com/lildude/trailcoach/internal/model"
)

// ConfigurationError reports a required setting that is not configured.
type ConfigurationError struct {
	Provider model.ProviderID
	Setting  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Provider, e.Setting)
}

// AuthExchangeError reports a failed authorization code exchange.
type AuthExchangeError struct {
	Provider   model.ProviderID
	StatusCode int
	Err        error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("%s: exchanging authorization code (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *AuthExchangeError) Unwrap() error { return e.Err }

// TokenRefreshError reports a failed refresh token exchange.
type TokenRefreshError struct {
	Provider   model.ProviderID
	StatusCode int
	Err        error
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("%s: refreshing token (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// ActivityFetchError reports a failed activity list request.
type ActivityFetchError struct {
	Provider   model.ProviderID
	StatusCode int
	Err        error
}

func (e *ActivityFetchError) Error() string {
	return fmt.Sprintf("%s: fetching activities (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ActivityFetchError) Unwrap() error { return e.Err }
