// Package analytics serves the dashboard read path over the persisted
// session record collection.
package analytics

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	analyticsstore "github.com/mindhaven-ai/mindhaven/backend/internal/analytics"
	"github.com/mindhaven-ai/mindhaven/backend/pkg/utils"
)

// Handler reads finalized session records.
type Handler struct {
	store analyticsstore.Store
}

// New creates the analytics handler.
func New(store analyticsstore.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the dashboard routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analytics/sessions", h.handleListSessions)
}

// handleListSessions returns every persisted record, oldest first. An
// unreadable store degrades to an empty list, never an error.
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.LoadAll()
	if err != nil {
		log.Printf("[analytics] failed to load session records: %v", err)
		records = nil
	}
	if records == nil {
		records = []analyticsstore.SessionRecord{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"sessions": records,
	})
}
