package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/lildude/trailcoach/internal/model"
	"golang.org/x/oauth2"
)

// RefreshMargin is how close to expiry a token may get before it is refreshed.
const RefreshMargin = 60 * time.Second

// OAuth holds the authorization-code flow shared by the OAuth2 providers.
type OAuth struct {
	Provider model.ProviderID
	Config   *oauth2.Config
	Tokens   TokenStore
	// HTTPClient is used for token requests when set.
	HTTPClient *http.Client
	// Now is overridden in tests.
	Now func() time.Time
}

func (o *OAuth) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *OAuth) ctx(ctx context.Context) context.Context {
	if o.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	}
	return ctx
}

func (o *OAuth) ID() model.ProviderID { return o.Provider }

// AuthURL returns the authorization URL carrying state, which the provider
// echoes back on the redirect.
func (o *OAuth) AuthURL(state string) (string, error) {
	if err := o.check(); err != nil {
		return "", err
	}
	return o.Config.AuthCodeURL(state), nil
}

func (o *OAuth) check() error {
	switch {
	case o.Config == nil || o.Config.ClientID == "":
		return &ConfigurationError{Provider: o.Provider, Setting: "client id"}
	case o.Config.RedirectURL == "":
		return &ConfigurationError{Provider: o.Provider, Setting: "redirect uri"}
	case o.Config.Endpoint.AuthURL == "":
		return &ConfigurationError{Provider: o.Provider, Setting: "auth url"}
	case o.Config.Endpoint.TokenURL == "":
		return &ConfigurationError{Provider: o.Provider, Setting: "token url"}
	}
	return nil
}

// Exchange trades code for tokens and stores the result.
func (o *OAuth) Exchange(ctx context.Context, code string) (*model.TokenPayload, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, &AuthExchangeError{Provider: o.Provider, Err: errors.New("empty authorization code")}
	}
	tok, err := o.Config.Exchange(o.ctx(ctx), code)
	if err != nil {
		return nil, &AuthExchangeError{Provider: o.Provider, StatusCode: retrieveStatus(err), Err: err}
	}
	p := PayloadFromToken(tok, "")
	if err := o.Tokens.Set(ctx, o.Provider, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Refresh forces a refresh token exchange and stores the result.
func (o *OAuth) Refresh(ctx context.Context, payload *model.TokenPayload) (*model.TokenPayload, error) {
	if payload == nil || payload.RefreshToken == "" {
		return nil, &TokenRefreshError{Provider: o.Provider, Err: errors.New("no refresh token")}
	}
	// An empty access token makes the token source go to the token endpoint.
	tok, err := o.Config.TokenSource(o.ctx(ctx), &oauth2.Token{RefreshToken: payload.RefreshToken}).Token()
	if err != nil {
		return nil, &TokenRefreshError{Provider: o.Provider, StatusCode: retrieveStatus(err), Err: err}
	}
	p := PayloadFromToken(tok, payload.RefreshToken)
	if err := o.Tokens.Set(ctx, o.Provider, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Expiring reports whether payload expires within RefreshMargin of now.
// A payload with no expiry never expires.
func (o *OAuth) Expiring(payload *model.TokenPayload) bool {
	if payload.ExpiresAt == 0 {
		return false
	}
	return time.Unix(payload.ExpiresAt, 0).Sub(o.now()) < RefreshMargin
}

// AccessToken returns a usable access token, refreshing first when the stored one
// is about to expire. A failed refresh falls back to the stale token so the
// provider's API decides. ok is false when nothing is stored, or, with a non-nil
// err, when the token store could not be read.
func (o *OAuth) AccessToken(ctx context.Context) (token string, ok bool, err error) {
	payload, found, err := o.Tokens.Get(ctx, o.Provider)
	if err != nil {
		return "", false, err
	}
	if !found || payload.AccessToken == "" {
		return "", false, nil
	}
	if o.Expiring(payload) && payload.RefreshToken != "" {
		fresh, rerr := o.Refresh(ctx, payload)
		if rerr != nil {
			return payload.AccessToken, true, rerr
		}
		payload = fresh
	}
	return payload.AccessToken, true, nil
}

// PayloadFromToken converts an oauth2 token into the stored shape. Providers that
// report an absolute expires_at win over the library's computed expiry. The
// previous refresh token is kept when the response omits one.
func PayloadFromToken(tok *oauth2.Token, previousRefresh string) *model.TokenPayload {
	p := &model.TokenPayload{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if p.RefreshToken == "" {
		p.RefreshToken = previousRefresh
	}
	if at, ok := epoch(tok.Extra("expires_at")); ok {
		p.ExpiresAt = at
	} else if !tok.Expiry.IsZero() {
		p.ExpiresAt = tok.Expiry.Unix()
	}
	return p
}

func epoch(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0
	case int64:
		return n, n > 0
	case json.Number:
		i, err := n.Int64()
		return i, err == nil && i > 0
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil && i > 0
	}
	return 0, false
}

func retrieveStatus(err error) int {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode
	}
	return 0
}
