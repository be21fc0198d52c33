// Package profile implements the athlete profile handlers.
package profile

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/lildude/trailcoach/internal/handlers/respond"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/plan"
)

type Handler struct {
	Plans *plan.Service
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Plans.Profile(r.Context()))
}

// Put overwrites the profile. It does not regenerate the plan.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var p model.UserProfile
	if !respond.Decode(w, r, &p) {
		return
	}
	if strings.TrimSpace(p.Name) == "" || p.RaceDistance < 0 {
		respond.Error(w, http.StatusBadRequest, "name is required and raceDistance must not be negative")
		return
	}
	if err := h.Plans.SaveProfile(r.Context(), p); err != nil {
		slog.Error("unable to save profile", "error", err)
		respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	respond.JSON(w, http.StatusOK, p)
}
