package garmin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/lildude/trailcoach/internal/config"
	"github.com/lildude/trailcoach/internal/logger"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/provider"
)

const (
	apiBase       = "https://garmin.example/api"
	activitiesURL = apiBase + "/wellness-api/rest/activities"
	tokenURL      = "https://garmin.example/oauth/token"
)

type memTokens map[model.ProviderID]*model.TokenPayload

func (m memTokens) Get(_ context.Context, id model.ProviderID) (*model.TokenPayload, bool, error) {
	p, ok := m[id]
	return p, ok, nil
}

func (m memTokens) Set(_ context.Context, id model.ProviderID, p *model.TokenPayload) error {
	m[id] = p
	return nil
}

func (m memTokens) Clear(_ context.Context, id model.ProviderID) error {
	delete(m, id)
	return nil
}

type brokenTokens struct{ memTokens }

func (brokenTokens) Get(context.Context, model.ProviderID) (*model.TokenPayload, bool, error) {
	return nil, false, errors.New("dial tcp: i/o timeout")
}

func settings() config.ProviderSettings {
	return config.ProviderSettings{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example/callback",
		AuthURL:      "https://garmin.example/oauth",
		TokenURL:     tokenURL,
		APIBase:      apiBase,
		Scope:        "activities",
	}
}

func setup(t *testing.T, s config.ProviderSettings) (*Client, memTokens, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	tokens := memTokens{}
	c, err := New(s, tokens, &http.Client{Transport: mt}, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(1704196800, 0)
	c.Now = func() time.Time { return now }
	return c, tokens, mt
}

func TestAuthURL(t *testing.T) {
	c, _, _ := setup(t, settings())
	got, err := c.AuthURL("garmin.n0nce")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "https://garmin.example/oauth?") {
		t.Errorf("unexpected url %q", got)
	}
	for _, want := range []string{
		"client_id=client-id",
		"redirect_uri=" + url.QueryEscape("https://app.example/callback"),
		"state=garmin.n0nce",
		"scope=activities",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("url %q missing %q", got, want)
		}
	}
}

func TestAuthURLMissingSettings(t *testing.T) {
	s := settings()
	s.AuthURL = ""
	c, _, _ := setup(t, s)
	_, err := c.AuthURL("garmin.n0nce")
	var ce *provider.ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestExchangeSendsForm(t *testing.T) {
	c, tokens, mt := setup(t, settings())
	var form url.Values
	mt.RegisterResponder(http.MethodPost, tokenURL, func(req *http.Request) (*http.Response, error) {
		if err := req.ParseForm(); err != nil {
			return nil, err
		}
		form = req.PostForm
		return httpmock.NewStringResponse(200, `{"access_token":"token","refresh_token":"refresh","expires_in":3600}`), nil
	})

	got, err := c.Exchange(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for k, want := range map[string]string{
		"client_id":     "client-id",
		"client_secret": "client-secret",
		"code":          "the-code",
		"grant_type":    "authorization_code",
		"redirect_uri":  "https://app.example/callback",
	} {
		if form.Get(k) != want {
			t.Errorf("form %s = %q, want %q", k, form.Get(k), want)
		}
	}
	if got.AccessToken != "token" || got.RefreshToken != "refresh" || got.ExpiresAt == 0 {
		t.Errorf("unexpected payload %+v", got)
	}
	if tokens[model.Garmin] == nil {
		t.Error("tokens not stored")
	}
}

func TestActivities(t *testing.T) {
	c, tokens, mt := setup(t, settings())
	tokens[model.Garmin] = &model.TokenPayload{AccessToken: "token", RefreshToken: "refresh", ExpiresAt: 1704196800 + 3600}

	var gotQuery url.Values
	mt.RegisterResponder(http.MethodGet, activitiesURL, func(req *http.Request) (*http.Response, error) {
		gotQuery = req.URL.Query()
		return httpmock.NewStringResponse(200, `[
			{"activityId":1,"activityName":"Trail Session","activityType":"trail run","distanceInMeters":12500,"durationInSeconds":3600,"elevationGainInMeters":540,"startTimeLocal":"2024-01-01T10:00:00Z","calories":612},
			{"activityId":"g-2","activityName":"Walk up","activityType":"HIKING_HIKE"}
		]`), nil
	})

	got, err := c.Activities(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.Get("startTimeInSeconds") != "1701604800" || gotQuery.Get("endTimeInSeconds") != "1704196800" {
		t.Errorf("unexpected window %v", gotQuery)
	}
	want := []model.Activity{
		{ID: "1", Name: "Trail Session", Type: model.TrailRun, Distance: 12.5, Duration: 60, ElevationGain: 540, Date: "2024-01-01", Calories: 612, Source: model.Garmin},
		{ID: "g-2", Name: "Walk up", Type: model.Hike, Source: model.Garmin},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d activities, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("activity %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestActivitiesMissingAPIBase(t *testing.T) {
	s := settings()
	s.APIBase = ""
	c, tokens, _ := setup(t, s)

	got, err := c.Activities(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("no token should give an empty list, got %v, %v", got, err)
	}

	tokens[model.Garmin] = &model.TokenPayload{AccessToken: "token"}
	_, err = c.Activities(context.Background())
	var ce *provider.ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestActivitiesError(t *testing.T) {
	c, tokens, mt := setup(t, settings())
	tokens[model.Garmin] = &model.TokenPayload{AccessToken: "token"}
	mt.RegisterResponder(http.MethodGet, activitiesURL, httpmock.NewStringResponder(503, ``))

	_, err := c.Activities(context.Background())
	var fe *provider.ActivityFetchError
	if !errors.As(err, &fe) || fe.StatusCode != 503 {
		t.Errorf("expected ActivityFetchError with 503, got %v", err)
	}
}

func TestActivitiesTokenStoreDown(t *testing.T) {
	c, _, mt := setup(t, settings())
	c.Tokens = brokenTokens{}

	got, err := c.Activities(context.Background())
	var fe *provider.ActivityFetchError
	if !errors.As(err, &fe) || fe.Provider != model.Garmin {
		t.Fatalf("expected ActivityFetchError, got %v, %v", got, err)
	}
	if mt.GetTotalCallCount() != 0 {
		t.Error("no request should be made when tokens cannot be read")
	}
}

func TestActivityIDUnmarshal(t *testing.T) {
	for in, want := range map[string]ActivityID{
		`123`:           "123",
		`"abc"`:         "abc",
		`9007199254741`: "9007199254741",
	} {
		var id ActivityID
		if err := json.Unmarshal([]byte(in), &id); err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if id != want {
			t.Errorf("%s: got %q, want %q", in, id, want)
		}
	}
	var id ActivityID
	if err := json.Unmarshal([]byte(`{}`), &id); err == nil {
		t.Error("expected error for object id")
	}
}
