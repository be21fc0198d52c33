// Package auth implements the provider connection handlers.
package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/lildude/trailcoach/internal/aggregator"
	"github.com/lildude/trailcoach/internal/handlers/respond"
	"github.com/lildude/trailcoach/internal/model"
	"github.com/lildude/trailcoach/internal/oauthflow"
	"github.com/lildude/trailcoach/internal/provider"
	"github.com/lildude/trailcoach/internal/sessions"
)

type Handler struct {
	Machine     *oauthflow.Machine
	Sessions    *sessions.Store
	Aggregator  *aggregator.Aggregator
	FrontendURL string
}

// Begin redirects the browser to the provider's authorization page.
func (h *Handler) Begin(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseProviderID(mux.Vars(r)["provider"])
	if err != nil {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}

	session, flow := h.Sessions.Flow(r)
	u, err := h.Machine.Begin(flow, id)
	if err != nil {
		var ce *provider.ConfigurationError
		if errors.As(err, &ce) {
			slog.Error("provider not configured", "provider", id, "error", err)
			respond.Error(w, http.StatusServiceUnavailable, id.Label()+" is not configured.")
			return
		}
		slog.Error("unable to start authorization", "provider", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	if err := h.Sessions.SaveFlow(r, w, session, flow); err != nil {
		slog.Error("unable to save session", "error", err)
		respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	slog.Info("redirecting to provider auth", "provider", id)
	http.Redirect(w, r, u, http.StatusFound)
}

// Callback is the OAuth redirect target. It always sends the browser back to the frontend,
// with connected=<provider> on success or error=<message> on failure.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	session, flow := h.Sessions.Flow(r)
	id, err := h.Machine.Complete(r.Context(), flow, r.URL.Query())

	q := url.Values{}
	if err != nil {
		slog.Error("authorization failed", "provider", id, "error", err)
		msg := flow.Error
		if msg == "" {
			msg = "Authorization failed."
		}
		if id != "" {
			// A redirect this browser never asked for says nothing about the integration.
			if !errors.Is(err, oauthflow.ErrInvalidTransition) {
				h.Aggregator.SetError(id, msg)
			}
			q.Set("provider", string(id))
		}
		q.Set("error", msg)
	} else {
		slog.Info("successfully authenticated", "provider", id)
		h.Aggregator.SetConnected(id, true)
		q.Set("connected", string(id))
	}

	if err := h.Sessions.SaveFlow(r, w, session, flow); err != nil {
		slog.Error("unable to save session", "error", err)
	}
	http.Redirect(w, r, h.FrontendURL+"/?"+q.Encode(), http.StatusFound)
}

// Disconnect forgets the provider's tokens.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseProviderID(mux.Vars(r)["provider"])
	if err != nil {
		respond.Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err := h.Aggregator.Disconnect(r.Context(), id); err != nil {
		slog.Error("unable to disconnect", "provider", id, "error", err)
		respond.Error(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	session, flow := h.Sessions.Flow(r)
	if flow.Provider == id {
		flow.Reset()
		if err := h.Sessions.SaveFlow(r, w, session, flow); err != nil {
			slog.Error("unable to save session", "error", err)
		}
	}
	respond.JSON(w, http.StatusOK, h.Aggregator.State())
}

// Integrations reports every provider's connection state.
func (h *Handler) Integrations(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, h.Aggregator.State())
}
