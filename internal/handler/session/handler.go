// Package session exposes the therapy session API consumed by the demo
// frontend: session lifecycle, chat turns, history, summaries, and the
// live analytics snapshot.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	chatmodel "github.com/mindhaven-ai/mindhaven/backend/internal/model/chat"
	chatservice "github.com/mindhaven-ai/mindhaven/backend/internal/service/chat"
	"github.com/mindhaven-ai/mindhaven/backend/internal/service/therapist"
	"github.com/mindhaven-ai/mindhaven/backend/internal/upstream"
	"github.com/mindhaven-ai/mindhaven/backend/pkg/utils"
)

// Handler serves the session-scoped routes.
type Handler struct {
	chatSvc *chatservice.Service
	orch    *therapist.Orchestrator
	// upstream is non-nil in remote mode; summary and teardown forward
	// through it when a handle is bound.
	upstream *upstream.Client
}

// New creates the session handler. upstreamClient may be nil.
func New(chatSvc *chatservice.Service, orch *therapist.Orchestrator, upstreamClient *upstream.Client) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		orch:     orch,
		upstream: upstreamClient,
	}
}

// RegisterRoutes mounts the session API.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/create", h.handleCreateSession)
	r.Post("/chat", h.handleChat)
	r.Get("/sessions/{sessionID}/history", h.handleHistory)
	r.Post("/sessions/{sessionID}/summary", h.handleSummary)
	r.Delete("/sessions/{sessionID}", h.handleDeleteSession)
	r.Get("/sessions/{sessionID}/analytics", h.handleAnalytics)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]any{
		"session_id":    session.ID,
		"created_at":    session.CreatedAt,
		"message_count": 0,
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	UseRAG    *bool  `json:"use_rag,omitempty"`
	NExamples *int   `json:"n_examples,omitempty"`
	// Emotion is the optional video-detected hint.
	Emotion string `json:"emotion,omitempty"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" || payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	hint, _ := emotion.Parse(payload.Emotion)
	result, err := h.orch.Turn(r.Context(), payload.SessionID, payload.Message, hint, therapist.TurnOptions{
		UseRAG:    payload.UseRAG,
		NExamples: payload.NExamples,
	})
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "Failed to generate response")
		return
	}

	body := map[string]any{
		"response":         result.AssistantMessage.Content,
		"session_id":       payload.SessionID,
		"timestamp":        result.AssistantMessage.CreatedAt,
		"detected_emotion": result.Detected,
		"sources_used":     result.Sources,
	}
	status := http.StatusOK
	if result.Failed {
		// The apology stays in "response" so clients render the fallback.
		status = http.StatusBadGateway
		body["error"] = "Failed to process request"
	}
	utils.RespondJSON(w, status, body)
}

type historyMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Sources   []string  `json:"sources,omitempty"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	messages, err := h.transcript(r.Context(), session)
	if err != nil {
		log.Printf("[session] history fetch failed for %s: %v", sessionID, err)
		utils.RespondError(w, http.StatusBadGateway, "Failed to fetch history")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
		"created_at": session.CreatedAt,
	})
}

// transcript forwards to the backend when a remote handle exists and
// otherwise reads the local message log. Remote messages carry no
// emotion label; only local turns are classified.
func (h *Handler) transcript(ctx context.Context, session chatmodel.Session) ([]historyMessage, error) {
	if h.upstream != nil && session.UpstreamID != "" {
		remote, err := h.upstream.History(ctx, session.UpstreamID)
		if err != nil {
			return nil, err
		}
		messages := make([]historyMessage, 0, len(remote))
		for _, msg := range remote {
			messages = append(messages, historyMessage{
				Role:      msg.Role,
				Content:   msg.Content,
				Timestamp: msg.Timestamp,
				Sources:   msg.Sources,
			})
		}
		return messages, nil
	}

	transcript, err := h.chatSvc.LoadTranscript(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	messages := make([]historyMessage, 0, len(transcript))
	for _, msg := range transcript {
		messages = append(messages, historyMessage{
			Role:      msg.Role,
			Content:   msg.Content,
			Emotion:   string(msg.Emotion),
			Timestamp: msg.CreatedAt,
			Sources:   msg.Sources,
		})
	}
	return messages, nil
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	summary, err := h.summarize(r.Context(), session)
	if err != nil {
		log.Printf("[session] summary failed for %s: %v", sessionID, err)
		utils.RespondError(w, http.StatusBadGateway, "Failed to generate summary")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"summary":    summary,
		"session_id": sessionID,
	})
}

// summarize forwards to the backend when a remote handle exists and
// otherwise derives the summary from the live record.
func (h *Handler) summarize(ctx context.Context, session chatmodel.Session) (string, error) {
	if h.upstream != nil && session.UpstreamID != "" {
		return h.upstream.Summary(ctx, session.UpstreamID)
	}

	record, err := h.chatSvc.Snapshot(ctx, session.ID)
	if err != nil {
		return "", err
	}
	return therapist.Summarize(record), nil
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	if _, err := h.chatSvc.EndSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	// Remote teardown is best-effort; the local record is already
	// finalized and persisted.
	if h.upstream != nil && session.UpstreamID != "" {
		if err := h.upstream.DeleteSession(r.Context(), session.UpstreamID); err != nil {
			log.Printf("[session] upstream teardown failed for %s: %v", sessionID, err)
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Session deleted",
	})
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	record, err := h.chatSvc.Snapshot(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, record)
}
