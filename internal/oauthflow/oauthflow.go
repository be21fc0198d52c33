// Package oauthflow tracks one browser's progress through a provider authorization.
package oauthflow

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/provider"
)

type State string

const (
	Idle             State = "idle"
	AwaitingRedirect State = "awaiting_redirect"
	ExchangingCode   State = "exchanging_code"
	Connected        State = "connected"
	Failed           State = "failed"
)

var ErrInvalidTransition = errors.New("invalid oauth flow transition")

// Flow is the per-browser state. It is small enough to live in a cookie session.
// Nonce is the single-use value the provider must echo back in state.
type Flow struct {
	Provider model.ProviderID `json:"provider,omitempty"`
	State    State            `json:"state"`
	Nonce    string           `json:"nonce,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// New returns an idle flow.
func New() *Flow {
	return &Flow{State: Idle}
}

func (f *Flow) transition(to State, allowed ...State) error {
	for _, s := range allowed {
		if f.State == s {
			f.State = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.State, to)
}

// Begin starts authorizing id. A flow that already finished may be restarted.
func (f *Flow) Begin(id model.ProviderID, nonce string) error {
	if nonce == "" {
		return fmt.Errorf("%w: empty nonce", ErrInvalidTransition)
	}
	if err := f.transition(AwaitingRedirect, Idle, AwaitingRedirect, Connected, Failed); err != nil {
		return err
	}
	f.Provider = id
	f.Nonce = nonce
	f.Error = ""
	return nil
}

// Exchange moves to ExchangingCode for id. Only a redirect answering this
// flow's Begin is accepted: same provider, same nonce. The nonce is spent
// either way.
func (f *Flow) Exchange(id model.ProviderID, nonce string) error {
	if f.State != AwaitingRedirect {
		f.Fail("Authorization was not started from this browser.")
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.State, ExchangingCode)
	}
	want := f.Nonce
	f.Nonce = ""
	if f.Provider != id {
		f.Fail(fmt.Sprintf("expected a redirect from %s, got %s", f.Provider.Label(), id.Label()))
		return fmt.Errorf("%w: provider mismatch", ErrInvalidTransition)
	}
	if nonce == "" || subtle.ConstantTimeCompare([]byte(nonce), []byte(want)) != 1 {
		f.Fail(fmt.Sprintf("%s authorization could not be verified.", id.Label()))
		return fmt.Errorf("%w: state mismatch", ErrInvalidTransition)
	}
	return f.transition(ExchangingCode, AwaitingRedirect)
}

func (f *Flow) Succeed() error {
	if err := f.transition(Connected, ExchangingCode); err != nil {
		return err
	}
	f.Error = ""
	return nil
}

// Fail records msg. Any state may fail.
func (f *Flow) Fail(msg string) {
	f.State = Failed
	f.Nonce = ""
	f.Error = msg
}

// Reset returns the flow to Idle.
func (f *Flow) Reset() {
	*f = Flow{State: Idle}
}

// Callback is the parsed provider redirect.
type Callback struct {
	Provider model.ProviderID
	Nonce    string
	Code     string
	Error    string
}

// StateParam builds the state value the provider echoes back on the redirect.
func StateParam(id model.ProviderID, nonce string) string {
	return string(id) + "." + nonce
}

// ParseCallback reads the redirect query once. The provider comes from state
// ("<provider>.<nonce>"), or from an explicit provider parameter.
func ParseCallback(q url.Values) (Callback, error) {
	raw := q.Get("state")
	if raw == "" {
		raw = q.Get("provider")
	}
	name, nonce, _ := strings.Cut(raw, ".")
	id, err := model.ParseProviderID(name)
	if err != nil {
		return Callback{}, err
	}
	return Callback{Provider: id, Nonce: nonce, Code: q.Get("code"), Error: q.Get("error")}, nil
}

// Machine drives flows against the configured providers.
type Machine struct {
	providers *provider.Registry
}

func NewMachine(providers *provider.Registry) *Machine {
	return &Machine{providers: providers}
}

// Begin moves f to AwaitingRedirect and returns the URL to send the browser to.
func (m *Machine) Begin(f *Flow, id model.ProviderID) (string, error) {
	p, err := m.providers.Get(id)
	if err != nil {
		return "", err
	}
	nonce := uuid.NewString()
	u, err := p.AuthURL(StateParam(id, nonce))
	if err != nil {
		f.Fail(err.Error())
		return "", err
	}
	if err := f.Begin(id, nonce); err != nil {
		return "", err
	}
	return u, nil
}

// Complete handles the provider redirect, exchanging the code for tokens. On
// return f is either Connected or Failed, unless the transition itself was illegal.
func (m *Machine) Complete(ctx context.Context, f *Flow, q url.Values) (model.ProviderID, error) {
	cb, err := ParseCallback(q)
	if err != nil {
		f.Fail(err.Error())
		return "", err
	}
	p, err := m.providers.Get(cb.Provider)
	if err != nil {
		f.Fail(err.Error())
		return cb.Provider, err
	}
	if cb.Error != "" {
		f.Provider = cb.Provider
		f.Fail(fmt.Sprintf("%s authorization denied: %s", cb.Provider.Label(), cb.Error))
		return cb.Provider, errors.New(f.Error)
	}
	if cb.Code == "" {
		f.Provider = cb.Provider
		f.Fail(fmt.Sprintf("%s authorization returned no code", cb.Provider.Label()))
		return cb.Provider, errors.New(f.Error)
	}
	if err := f.Exchange(cb.Provider, cb.Nonce); err != nil {
		return cb.Provider, err
	}
	if _, err := p.Exchange(ctx, cb.Code); err != nil {
		f.Fail(fmt.Sprintf("%s authorization failed.", cb.Provider.Label()))
		return cb.Provider, err
	}
	return cb.Provider, f.Succeed()
}
