// Package rag exposes retrieval corpus statistics, forwarded from the
// backend when one is configured and mocked otherwise.
package rag

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindhaven-ai/mindhaven/backend/internal/upstream"
	"github.com/mindhaven-ai/mindhaven/backend/pkg/utils"
)

// Handler serves /rag/stats.
type Handler struct {
	upstream *upstream.Client
}

// New creates the handler. upstreamClient may be nil (mock mode).
func New(upstreamClient *upstream.Client) *Handler {
	return &Handler{upstream: upstreamClient}
}

// RegisterRoutes mounts the rag routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/rag/stats", h.handleStats)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if h.upstream != nil {
		stats, err := h.upstream.Stats(r.Context())
		if err != nil {
			log.Printf("[rag] failed to fetch upstream stats: %v", err)
			utils.RespondError(w, http.StatusBadGateway, "Failed to get RAG stats")
			return
		}
		utils.RespondJSON(w, http.StatusOK, stats)
		return
	}

	// Demo-mode numbers matching the showcase dataset description.
	utils.RespondJSON(w, http.StatusOK, upstream.RAGStats{
		TotalDocuments: 0,
		CollectionName: "therapy_examples",
		EmbeddingModel: "all-MiniLM-L6-v2",
	})
}
