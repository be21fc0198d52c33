package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lildude/trailcoach/internal/aggregator"
	"github.com/lildude/trailcoach/internal/cache"
	"github.com/lildude/trailcoach/internal/calendarevent"
	"github.com/lildude/trailcoach/internal/logger"
	"github.com/lildude/trailcoach/internal/metrics"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/plan"
	"github.com/lildude/trailcoach/internal/provider"
	"github.com/lildude/trailcoach/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	acts []model.Activity
}

func (f *fakeProvider) ID() model.ProviderID      { return model.Strava }
func (f *fakeProvider) AuthURL(string) (string, error) { return "", nil }
func (f *fakeProvider) Exchange(context.Context, string) (*model.TokenPayload, error) {
	return nil, nil
}

func (f *fakeProvider) Refresh(context.Context, *model.TokenPayload) (*model.TokenPayload, error) {
	return nil, nil
}

func (f *fakeProvider) Activities(context.Context) ([]model.Activity, error) { return f.acts, nil }

type noTokens struct{}

func (noTokens) Get(context.Context, model.ProviderID) (*model.TokenPayload, bool, error) {
	return nil, false, nil
}
func (noTokens) Set(context.Context, model.ProviderID, *model.TokenPayload) error  { return nil }
func (noTokens) Clear(context.Context, model.ProviderID) error                     { return nil }

type fakeCalendar struct {
	events []calendarevent.Event
}

func (f *fakeCalendar) Events(context.Context, time.Time, time.Time) ([]calendarevent.Event, error) {
	return f.events, nil
}

func setup(t *testing.T, cal calendarevent.EventLister, acts []model.Activity) *Handler {
	t.Helper()
	h, _ := setupRedis(t, cal, acts)
	return h
}

func setupRedis(t *testing.T, cal calendarevent.EventLister, acts []model.Activity) (*Handler, *miniredis.Miniredis) {
	t.Helper()
	r := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), fmt.Sprintf("redis://%s", r.Addr()))
	require.NoError(t, err)
	log := logger.Discard()
	agg := aggregator.New(context.Background(), provider.NewRegistry(&fakeProvider{acts: acts}), noTokens{}, metrics.NewTestManager(), log)
	return &Handler{
		Plans:      plan.New(store.New(c, log), nil, cal, log),
		Aggregator: agg,
	}, r
}

func TestCurrent(t *testing.T) {
	h := setup(t, nil, nil)
	rr := httptest.NewRecorder()
	h.Current(rr, httptest.NewRequest(http.MethodGet, "/api/plan", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var p model.WeeklyPlan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "Base Building & Aerobic Capacity", p.Focus)
	assert.NoError(t, p.Validate())
}

func TestCurrentStoreDown(t *testing.T) {
	h, r := setupRedis(t, nil, nil)
	r.Close()

	for path, fn := range map[string]http.HandlerFunc{
		"/api/plan":           h.Current,
		"/api/plan/adherence": h.Adherence,
	} {
		rr := httptest.NewRecorder()
		fn(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
	}
}

func TestRegenerateWithProfile(t *testing.T) {
	h := setup(t, nil, nil)
	rr := httptest.NewRecorder()
	body := `{"name":"Ana","raceDistance":100,"raceDate":"2030-06-01","fitnessLevel":"Intermediate"}`
	h.Regenerate(rr, httptest.NewRequest(http.MethodPost, "/api/plan/regenerate", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ana", h.Plans.Profile(context.Background()).Name)

	rr = httptest.NewRecorder()
	h.Regenerate(rr, httptest.NewRequest(http.MethodPost, "/api/plan/regenerate", strings.NewReader(`{bad`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.Regenerate(rr, httptest.NewRequest(http.MethodPost, "/api/plan/regenerate", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestImport(t *testing.T) {
	h := setup(t, nil, nil)
	rr := httptest.NewRecorder()
	h.Import(rr, httptest.NewRequest(http.MethodPost, "/api/plan/import", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	h = setup(t, &fakeCalendar{events: []calendarevent.Event{
		{Summary: "Long Run 30km", Start: time.Date(2024, 1, 6, 7, 0, 0, 0, time.Local)},
	}}, nil)
	rr = httptest.NewRecorder()
	h.Import(rr, httptest.NewRequest(http.MethodPost, "/api/plan/import?weekOf=2024-01-03", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var p model.WeeklyPlan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "2024-01-01", p.Sessions[0].Date)
	assert.Equal(t, model.SessionLongRun, p.Sessions[5].Type)
	assert.Equal(t, 30.0, p.Sessions[5].DistanceTarget)

	rr = httptest.NewRecorder()
	h.Import(rr, httptest.NewRequest(http.MethodPost, "/api/plan/import?weekOf=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdherence(t *testing.T) {
	dates := plan.WeekDates(time.Now())
	h := setup(t, nil, []model.Activity{
		{ID: "1", Date: dates[1], Distance: 10, ElevationGain: 100, Type: model.TrailRun, Source: model.Strava},
	})
	h.Aggregator.Sync(context.Background())

	rr := httptest.NewRecorder()
	h.Adherence(rr, httptest.NewRequest(http.MethodGet, "/api/plan/adherence", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got adherenceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Entries, 7)
	assert.Equal(t, "on_track", string(got.Entries[1].Status))
	require.NotNil(t, got.Plan.Sessions[1].Completed)
	assert.True(t, *got.Plan.Sessions[1].Completed)
	assert.Equal(t, 10.0, got.Summary.VolumeKm)
	assert.Equal(t, 100, got.Summary.VerticalM)
	assert.Equal(t, 20, got.Summary.Adherence)
}
