// Package activities implements the activity timeline handlers.
package activities

import (
	"log/slog"
	"net/http"

	"github.com/lildude/trailcoach/internal/aggregator"
	"github.com/lildude/trailcoach/internal/handlers/respond"
)

type Handler struct {
	Aggregator *aggregator.Aggregator
}

// Sync fetches every provider and returns the merged timeline with per-provider status.
// A provider failure is reported in the status, never as an HTTP error.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	res := h.Aggregator.Sync(r.Context())
	slog.Info("synced activities", "count", len(res.Activities))
	respond.JSON(w, http.StatusOK, res)
}

// List returns the timeline from the last sync.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.Aggregator.Activities())
}
