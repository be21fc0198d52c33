package sessions

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/oauthflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreRequiresKey(t *testing.T) {
	_, err := NewStore("", false)
	assert.ErrorIs(t, err, ErrNoKey)
}

func TestFlowRoundTrip(t *testing.T) {
	s, err := NewStore("0123456789abcdef0123456789abcdef", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/strava", nil)
	session, f := s.Flow(req)
	assert.Equal(t, oauthflow.Idle, f.State)

	require.NoError(t, f.Begin(model.Strava, "5f0c6a2e-nonce"))
	rr := httptest.NewRecorder()
	require.NoError(t, s.SaveFlow(req, rr, session, f))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/api/auth/callback", nil)
	next.AddCookie(cookies[0])
	_, got := s.Flow(next)
	assert.Equal(t, oauthflow.AwaitingRedirect, got.State)
	assert.Equal(t, model.Strava, got.Provider)
	assert.Equal(t, "5f0c6a2e-nonce", got.Nonce)
}

func TestFlowBadCookie(t *testing.T) {
	s, err := NewStore("0123456789abcdef0123456789abcdef", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionName, Value: "tampered"})
	session, f := s.Flow(req)
	require.NotNil(t, session)
	assert.Equal(t, oauthflow.Idle, f.State)
}
