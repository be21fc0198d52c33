// Package coach implements the AI coaching and nutrition handlers.
package coach

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lildude/trailcoach/internal/handlers/respond"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/store"
)

// Coach answers with an offline fallback instead of failing.
type Coach interface {
	NutritionPlan(ctx context.Context, focus string) []model.NutritionPlanDay
	AnalyzeMeal(ctx context.Context, foodLog string) model.Meal
	Advice(ctx context.Context, query, background string) string
}

type Handler struct {
	Coach Coach
	Store *store.Store
	Now   func() time.Time
}

func (h *Handler) today() string {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return now().Format(time.DateOnly)
}

type nutritionPlanRequest struct {
	Focus string `json:"focus"`
}

// NutritionPlan suggests meals for a training focus and keeps the latest suggestion.
func (h *Handler) NutritionPlan(w http.ResponseWriter, r *http.Request) {
	var req nutritionPlanRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Focus) == "" {
		req.Focus = "general endurance"
	}
	days := h.Coach.NutritionPlan(r.Context(), req.Focus)
	if err := h.Store.Save(r.Context(), store.KeyNutritionPlan, days); err != nil {
		slog.Error("unable to store nutrition plan", "error", err)
	}
	respond.JSON(w, http.StatusOK, days)
}

type analyzeRequest struct {
	FoodLog string `json:"foodLog"`
}

// AnalyzeNutrition estimates a meal from free text. It does not log the meal.
func (h *Handler) AnalyzeNutrition(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FoodLog) == "" {
		respond.Error(w, http.StatusBadRequest, "foodLog is required")
		return
	}
	respond.JSON(w, http.StatusOK, h.Coach.AnalyzeMeal(r.Context(), req.FoodLog))
}

type adviceRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

func (h *Handler) Advice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respond.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"advice": h.Coach.Advice(r.Context(), req.Query, req.Context)})
}

// log returns today's nutrition log. A log from an earlier day is replaced by an empty one.
func (h *Handler) log(ctx context.Context) (model.NutritionDay, error) {
	today := h.today()
	day, ok, err := store.Lookup[model.NutritionDay](ctx, h.Store, store.KeyNutritionLog)
	if err != nil {
		return model.NutritionDay{}, err
	}
	if !ok || day.Date != today {
		return model.NewNutritionDay(today), nil
	}
	if day.Meals == nil {
		day.Meals = []model.Meal{}
	}
	return day, nil
}

// Nutrition returns today's nutrition log.
func (h *Handler) Nutrition(w http.ResponseWriter, r *http.Request) {
	day, err := h.log(r.Context())
	if err != nil {
		slog.Error("unable to load nutrition log", "error", err)
		respond.Error(w, http.StatusServiceUnavailable, "Nutrition log is unavailable.")
		return
	}
	respond.JSON(w, http.StatusOK, day)
}

// AddMeal appends a meal to today's log.
func (h *Handler) AddMeal(w http.ResponseWriter, r *http.Request) {
	var m model.Meal
	if !respond.Decode(w, r, &m) {
		return
	}
	if strings.TrimSpace(m.Name) == "" || !m.Type.Valid() {
		respond.Error(w, http.StatusBadRequest, "meal needs a name and a type of Breakfast, Lunch, Dinner or Snack")
		return
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	day, err := h.log(r.Context())
	if err != nil {
		slog.Error("unable to load nutrition log", "error", err)
		respond.Error(w, http.StatusServiceUnavailable, "Nutrition log is unavailable.")
		return
	}
	day.Meals = append(day.Meals, m)
	if err := h.Store.Save(r.Context(), store.KeyNutritionLog, day); err != nil {
		slog.Error("unable to store nutrition log", "error", err)
		respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	respond.JSON(w, http.StatusCreated, day)
}
