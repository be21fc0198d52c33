// Package strava fetches and normalizes activities from the Strava API.
package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lildude/trailcoach/internal/client"
	"github.com/lildude/trailcoach/internal/config"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/provider"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const perPage = 100

// Activity holds only the fields we read from the athlete activities list.
type Activity struct {
	ID                 int64   `json:"id"`
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	SportType          string  `json:"sport_type"`
	Distance           float64 `json:"distance"`
	MovingTime         float64 `json:"moving_time"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
	StartDate          string  `json:"start_date"`
	StartDateLocal     string  `json:"start_date_local"`
	Calories           float64 `json:"calories"`
}

// Normalize maps a Strava activity onto the common shape.
func (a Activity) Normalize() model.Activity {
	kind := a.Type
	if kind == "" {
		kind = a.SportType
	}
	start := a.StartDateLocal
	if start == "" {
		start = a.StartDate
	}
	return model.Activity{
		ID:            strconv.FormatInt(a.ID, 10),
		Name:          a.Name,
		Type:          provider.ClassifyActivityType(kind),
		Distance:      provider.Kilometres(a.Distance),
		Duration:      provider.Minutes(a.MovingTime),
		ElevationGain: provider.Whole(a.TotalElevationGain),
		Date:          provider.CalendarDate(start),
		Calories:      provider.Whole(a.Calories),
		Source:        model.Strava,
	}
}

// OAuthConfig builds the OAuth2 configuration for Strava.
func OAuthConfig(s config.ProviderSettings) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.AuthURL,
			TokenURL:  s.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: s.RedirectURI,
		Scopes:      []string{s.Scope},
	}
}

// Client is the Strava provider.
type Client struct {
	provider.OAuth

	api *client.Client
	log logrus.FieldLogger
}

var _ provider.Provider = (*Client)(nil)

// New returns a Strava provider. hc is used for both token and API requests.
func New(s config.ProviderSettings, tokens provider.TokenStore, hc *http.Client, log logrus.FieldLogger) (*Client, error) {
	base := s.APIBase
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing strava api base: %w", err)
	}
	return &Client{
		OAuth: provider.OAuth{
			Provider:   model.Strava,
			Config:     OAuthConfig(s),
			Tokens:     tokens,
			HTTPClient: hc,
		},
		api: client.NewClient(u, hc),
		log: log.WithField("provider", model.Strava),
	}, nil
}

// Activities returns the last 30 days of activities, newest window first as Strava returns them.
func (c *Client) Activities(ctx context.Context) ([]model.Activity, error) {
	token, ok, err := c.AccessToken(ctx)
	switch {
	case !ok && err != nil:
		return nil, &provider.ActivityFetchError{Provider: model.Strava, Err: err}
	case !ok:
		return []model.Activity{}, nil
	case err != nil:
		c.log.WithError(err).Warn("token refresh failed, using stored token")
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}
	before := now()
	after := before.Add(-provider.Window)
	path := fmt.Sprintf("athlete/activities?after=%d&before=%d&per_page=%d", after.Unix(), before.Unix(), perPage)

	req, err := c.api.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating strava activities request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var list []Activity
	if _, err := c.api.Do(req, &list); err != nil {
		return nil, &provider.ActivityFetchError{Provider: model.Strava, StatusCode: client.StatusCode(err), Err: err}
	}

	out := make([]model.Activity, 0, len(list))
	for _, a := range list {
		out = append(out, a.Normalize())
	}
	c.log.WithField("count", len(out)).Debug("fetched activities")
	return out, nil
}
