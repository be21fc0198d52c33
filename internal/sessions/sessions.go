// Package sessions keeps per-browser OAuth flow state in a signed cookie.
package sessions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/lildude/trailcoach/internal/oauthflow"
)

const (
	sessionName = "trailcoach-session"
	flowKey     = "oauth_flow"
)

var ErrNoKey = errors.New("SESSION_KEY environment variable not set")

type Store struct {
	store *sessions.CookieStore
}

// NewStore returns a cookie store signed with key. Cookies are marked Secure when secure is set.
func NewStore(key string, secure bool) (*Store, error) {
	if key == "" {
		return nil, ErrNoKey
	}
	cs := sessions.NewCookieStore([]byte(key))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 8, // 8 hours
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{store: cs}, nil
}

// GetSession retrieves a session from the request.
func (s *Store) GetSession(r *http.Request) (*sessions.Session, error) {
	return s.store.Get(r, sessionName)
}

// SaveSession saves the session.
func (s *Store) SaveSession(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	return s.store.Save(r, w, session)
}

// Flow returns the OAuth flow carried by the request, or a new idle flow.
// A session that fails to decode, e.g. after a key rotation, starts over.
func (s *Store) Flow(r *http.Request) (*sessions.Session, *oauthflow.Flow) {
	session, err := s.GetSession(r)
	if err != nil && session == nil {
		session = sessions.NewSession(s.store, sessionName)
		session.Options = s.store.Options
		session.IsNew = true
	}
	f := oauthflow.New()
	if raw, ok := session.Values[flowKey].(string); ok {
		if err := json.Unmarshal([]byte(raw), f); err != nil {
			f = oauthflow.New()
		}
	}
	return session, f
}

// SaveFlow writes f into session and saves it.
func (s *Store) SaveFlow(r *http.Request, w http.ResponseWriter, session *sessions.Session, f *oauthflow.Flow) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	session.Values[flowKey] = string(b)
	return s.SaveSession(r, w, session)
}
