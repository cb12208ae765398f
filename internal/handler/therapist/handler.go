// Package therapist serves the thin proxy endpoint the marketing site's
// call UI talks to. It hides session management from the client:
// a session is created lazily when the request carries none.
package therapist

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	chatservice "github.com/mindhaven-ai/mindhaven/backend/internal/service/chat"
	therapistsvc "github.com/mindhaven-ai/mindhaven/backend/internal/service/therapist"
	"github.com/mindhaven-ai/mindhaven/backend/pkg/utils"
)

// Handler proxies single turns.
type Handler struct {
	chatSvc *chatservice.Service
	orch    *therapistsvc.Orchestrator
}

// New creates the proxy handler.
func New(chatSvc *chatservice.Service, orch *therapistsvc.Orchestrator) *Handler {
	return &Handler{chatSvc: chatSvc, orch: orch}
}

// RegisterRoutes mounts the proxy endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/therapist", h.handleTurn)
}

type turnRequest struct {
	Message        string `json:"message"`
	CurrentEmotion string `json:"currentEmotion,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var payload turnRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Failed to process request")
		return
	}
	if payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		session, err := h.chatSvc.CreateSession(r.Context())
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to process request")
			return
		}
		sessionID = session.ID
	}

	hint, _ := emotion.Parse(payload.CurrentEmotion)
	result, err := h.orch.Turn(r.Context(), sessionID, payload.Message, hint, therapistsvc.TurnOptions{})
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	body := map[string]any{
		"response":        result.AssistantMessage.Content,
		"detectedEmotion": result.Detected,
		"session_id":      sessionID,
		"sources_used":    result.Sources,
	}
	status := http.StatusOK
	if result.Failed {
		// The apology stays in "response" so clients render the fallback.
		status = http.StatusBadGateway
		body["error"] = "Failed to process request"
	}
	utils.RespondJSON(w, status, body)
}
