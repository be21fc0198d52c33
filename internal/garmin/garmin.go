// Package garmin fetches and normalizes activities from the Garmin wellness API.
package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lildude/trailcoach/internal/client"
	"github.com/lildude/trailcoach/internal/config"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/provider"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ActivityID accepts both the numeric and string forms Garmin uses.
type ActivityID string

func (id *ActivityID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ActivityID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("activityId: %w", err)
	}
	*id = ActivityID(n.String())
	return nil
}

type Activity struct {
	ActivityID            ActivityID `json:"activityId"`
	ActivityName          string     `json:"activityName"`
	ActivityType          string     `json:"activityType"`
	DistanceInMeters      float64    `json:"distanceInMeters"`
	DurationInSeconds     float64    `json:"durationInSeconds"`
	ElevationGainInMeters float64    `json:"elevationGainInMeters"`
	StartTimeLocal        string     `json:"startTimeLocal"`
	Calories              float64    `json:"calories"`
}

// Normalize maps a Garmin activity onto the common shape.
func (a Activity) Normalize() model.Activity {
	return model.Activity{
		ID:            string(a.ActivityID),
		Name:          a.ActivityName,
		Type:          provider.ClassifyActivityType(a.ActivityType),
		Distance:      provider.Kilometres(a.DistanceInMeters),
		Duration:      provider.Minutes(a.DurationInSeconds),
		ElevationGain: provider.Whole(a.ElevationGainInMeters),
		Date:          provider.CalendarDate(a.StartTimeLocal),
		Calories:      provider.Whole(a.Calories),
		Source:        model.Garmin,
	}
}

// OAuthConfig builds the OAuth2 configuration for Garmin. Credentials are
// posted form-encoded in the request body.
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

// Client is the Garmin provider.
type Client struct {
	provider.OAuth

	api *client.Client
	log logrus.FieldLogger
}

var _ provider.Provider = (*Client)(nil)

func New(s config.ProviderSettings, tokens provider.TokenStore, hc *http.Client, log logrus.FieldLogger) (*Client, error) {
	c := &Client{
		OAuth: provider.OAuth{
			Provider:   model.Garmin,
			Config:     OAuthConfig(s),
			Tokens:     tokens,
			HTTPClient: hc,
		},
		log: log.WithField("provider", model.Garmin),
	}
	if s.APIBase != "" {
		u, err := url.Parse(strings.TrimRight(s.APIBase, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing garmin api base: %w", err)
		}
		c.api = client.NewClient(u, hc)
	}
	return c, nil
}

func (c *Client) Activities(ctx context.Context) ([]model.Activity, error) {
	token, ok, err := c.AccessToken(ctx)
	switch {
	case !ok && err != nil:
		return nil, &provider.ActivityFetchError{Provider: model.Garmin, Err: err}
	case !ok:
		return []model.Activity{}, nil
	case err != nil:
		c.log.WithError(err).Warn("token refresh failed, using stored token")
	}
	if c.api == nil {
		return nil, &provider.ConfigurationError{Provider: model.Garmin, Setting: "api base"}
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}
	end := now()
	start := end.Add(-provider.Window)
	path := fmt.Sprintf("wellness-api/rest/activities?startTimeInSeconds=%d&endTimeInSeconds=%d", start.Unix(), end.Unix())

	req, err := c.api.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating garmin activities request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var list []Activity
	if _, err := c.api.Do(req, &list); err != nil {
		return nil, &provider.ActivityFetchError{Provider: model.Garmin, StatusCode: client.StatusCode(err), Err: err}
	}

	out := make([]model.Activity, 0, len(list))
	for _, a := range list {
		out = append(out, a.Normalize())
	}
	c.log.WithField("count", len(out)).Debug("fetched activities")
	return out, nil
}
