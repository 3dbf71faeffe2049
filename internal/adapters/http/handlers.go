package http

import (
	"context"
	"net/http"

	"github.com/deptrai/longthanhland-sub000/internal/application"
)

// Handler is the HTTP adapter entrypoint for the settlement service.
// Keeping only the application dependency here preserves adapter boundaries.
type Handler struct {
	service *application.Service
	ready   func(ctx context.Context) error
}

// NewHandler constructs an HTTP handler bound to the application service.
// ready is the readiness probe; nil means always ready.
func NewHandler(service *application.Service, ready func(ctx context.Context) error) *Handler {
	return &Handler{service: service, ready: ready}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error())
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}

// blockchainHealth is the provider-facing liveness probe for the
// blockchain webhook channel, independent of the settlement state machine.
func (h *Handler) blockchainHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "blockchain-webhook",
	})
}
