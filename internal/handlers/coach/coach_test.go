package coach

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
	"github.com/lildude/trailcoach/internal/cache"
	"github.com/lildude/trailcoach/internal/logger"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCoach struct {
	focus, query, background string
}

func (f *fakeCoach) NutritionPlan(_ context.Context, focus string) []model.NutritionPlanDay {
	f.focus = focus
	return []model.NutritionPlanDay{{Day: "Rest Day"}}
}

func (f *fakeCoach) AnalyzeMeal(_ context.Context, foodLog string) model.Meal {
	return model.Meal{ID: "m1", Name: foodLog, Calories: 100, Type: model.Snack, Time: "10:00"}
}

func (f *fakeCoach) Advice(_ context.Context, query, background string) string {
	f.query, f.background = query, background
	return "Hydrate."
}

func setup(t *testing.T, now time.Time) (*Handler, *fakeCoach, *miniredis.Miniredis) {
	t.Helper()
	r := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), fmt.Sprintf("redis://%s", r.Addr()))
	require.NoError(t, err)
	fc := &fakeCoach{}
	return &Handler{
		Coach: fc,
		Store: store.New(c, logger.Discard()),
		Now:   func() time.Time { return now },
	}, fc, r
}

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rr
}

func TestNutritionPlan(t *testing.T) {
	h, fc, r := setup(t, time.Now())

	rr := post(h.NutritionPlan, "/api/ai/nutrition-plan", `{"focus":"carb loading"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "carb loading", fc.focus)
	assert.JSONEq(t, `[{"day":"Rest Day","meals":null}]`, rr.Body.String())

	stored, err := r.Get(store.KeyNutritionPlan)
	require.NoError(t, err)
	assert.Contains(t, stored, "Rest Day")

	rr = post(h.NutritionPlan, "/api/ai/nutrition-plan", `nope`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAnalyzeNutrition(t *testing.T) {
	h, _, _ := setup(t, time.Now())

	rr := post(h.AnalyzeNutrition, "/api/ai/analyze-nutrition", `{"foodLog":"banana"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	var m model.Meal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	assert.Equal(t, "banana", m.Name)

	rr = post(h.AnalyzeNutrition, "/api/ai/analyze-nutrition", `{"foodLog":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdvice(t *testing.T) {
	h, fc, _ := setup(t, time.Now())

	rr := post(h.Advice, "/api/ai/coach-advice", `{"query":"How much water?","context":"hot race"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"advice":"Hydrate."}`, rr.Body.String())
	assert.Equal(t, "hot race", fc.background)

	rr = post(h.Advice, "/api/ai/coach-advice", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNutritionLog(t *testing.T) {
	day1 := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	h, _, _ := setup(t, day1)

	rr := httptest.NewRecorder()
	h.Nutrition(rr, httptest.NewRequest(http.MethodGet, "/api/nutrition", nil))
	var got model.NutritionDay
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, model.NewNutritionDay("2024-01-03"), got)

	rr = post(h.AddMeal, "/api/nutrition", `{"name":"Oats","calories":400,"protein":12,"carbs":60,"fats":8,"time":"07:30","type":"Breakfast"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Meals, 1)
	assert.NotEmpty(t, got.Meals[0].ID)
	assert.Equal(t, 3200.0, got.Targets.Calories)

	rr = post(h.AddMeal, "/api/nutrition", `{"name":"Oats","type":"Brunch"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	h.Now = func() time.Time { return day1.AddDate(0, 0, 1) }
	rr = httptest.NewRecorder()
	h.Nutrition(rr, httptest.NewRequest(http.MethodGet, "/api/nutrition", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "2024-01-04", got.Date)
	assert.Empty(t, got.Meals, "a new day starts with an empty log")
}

func TestAddMealStoreDown(t *testing.T) {
	h, _, r := setup(t, time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC))
	meal := `{"name":"Oats","calories":400,"type":"Breakfast"}`
	require.Equal(t, http.StatusCreated, post(h.AddMeal, "/api/nutrition", meal).Code)

	r.Close()
	rr := post(h.AddMeal, "/api/nutrition", `{"name":"Gel","calories":100,"type":"Snack"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	require.NoError(t, r.Restart())
	rr = httptest.NewRecorder()
	h.Nutrition(rr, httptest.NewRequest(http.MethodGet, "/api/nutrition", nil))
	var got model.NutritionDay
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Meals, 1, "the stored log is not replaced")
	assert.Equal(t, "Oats", got.Meals[0].Name)
}
