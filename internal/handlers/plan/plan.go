// Package plan implements the training plan handlers.
package plan

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lildude/trailcoach/internal/adherence"
	"github.com/lildude/trailcoach/internal/aggregator"
	"github.com/lildude/trailcoach/internal/handlers/respond"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/plan"
	"github.com/lildude/trailcoach/internal/summary"
)

type Handler struct {
	Plans      *plan.Service
	Aggregator *aggregator.Aggregator
}

// Current returns the stored plan, generating one the first time.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// current loads the plan. A plan that was generated but not saved is still served.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (model.WeeklyPlan, bool) {
	p, err := h.Plans.Current(r.Context())
	switch {
	case errors.Is(err, plan.ErrUnavailable):
		slog.Error("unable to load plan", "error", err)
		respond.Error(w, http.StatusServiceUnavailable, "Plan storage is unavailable.")
		return p, false
	case err != nil:
		slog.Error("unable to store plan", "error", err)
	}
	return p, true
}

// Regenerate replaces the plan. A profile in the body is saved first; an empty
// body regenerates from the stored profile.
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	profile := h.Plans.Profile(r.Context())
	if r.Body != nil && r.ContentLength != 0 {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body) > 0 {
			var posted model.UserProfile
			if err := json.Unmarshal(body, &posted); err != nil {
				respond.Error(w, http.StatusBadRequest, "invalid request body")
				return
			}
			profile = posted
			if err := h.Plans.SaveProfile(r.Context(), profile); err != nil {
				slog.Error("unable to save profile", "error", err)
			}
		}
	}

	p, err := h.Plans.Regenerate(r.Context(), profile)
	if err != nil {
		slog.Error("unable to store plan", "error", err)
	}
	respond.JSON(w, http.StatusOK, p)
}

// Import builds the plan from the configured calendar feed. weekOf (YYYY-MM-DD)
// selects the week; it defaults to the current one.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	weekOf := time.Now()
	if v := r.URL.Query().Get("weekOf"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, time.Local)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "weekOf must be YYYY-MM-DD")
			return
		}
		weekOf = d
	}

	p, err := h.Plans.ImportCalendar(r.Context(), weekOf)
	switch {
	case errors.Is(err, plan.ErrNoCalendar):
		respond.Error(w, http.StatusServiceUnavailable, "No training calendar is configured.")
		return
	case err != nil:
		slog.Error("calendar import failed", "error", err)
		respond.Error(w, http.StatusBadGateway, "Unable to import the training calendar.")
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

type adherenceResponse struct {
	Plan    model.WeeklyPlan  `json:"plan"`
	Entries []adherence.Entry `json:"entries"`
	Summary summary.Weekly    `json:"summary"`
}

// Adherence grades the current plan against the last synced timeline.
func (h *Handler) Adherence(w http.ResponseWriter, r *http.Request) {
	p, ok := h.current(w, r)
	if !ok {
		return
	}
	acts := h.Aggregator.Activities()
	entries := adherence.Report(p, acts)

	graded := p
	graded.Sessions = make([]model.TrainingSession, len(entries))
	for i, e := range entries {
		graded.Sessions[i] = e.Session
	}
	respond.JSON(w, http.StatusOK, adherenceResponse{
		Plan:    graded,
		Entries: entries,
		Summary: summary.Compute(acts, entries),
	})
}
