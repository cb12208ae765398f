// Package live carries the simulated video-call session: the client
// streams captured frames up a websocket, receives emotion updates and
// assistant replies back, and observers can follow the emotion feed
// over SSE. Closing the channel tears the session down on every exit
// path: polling stopped, subscribers released, record finalized.
package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	chatservice "github.com/mindhaven-ai/mindhaven/backend/internal/service/chat"
	"github.com/mindhaven-ai/mindhaven/backend/internal/service/monitor"
	therapistsvc "github.com/mindhaven-ai/mindhaven/backend/internal/service/therapist"
	"github.com/mindhaven-ai/mindhaven/backend/pkg/utils"
)

// Handler owns one monitor per connected live session.
type Handler struct {
	chatSvc  *chatservice.Service
	orch     *therapistsvc.Orchestrator
	classify emotion.FrameClassifier
	interval time.Duration

	mu       sync.Mutex
	monitors map[string]*monitor.Monitor
	upgrader websocket.Upgrader
}

// New creates the live handler. classify may be nil to use the stub.
func New(chatSvc *chatservice.Service, orch *therapistsvc.Orchestrator, classify emotion.FrameClassifier, interval time.Duration) *Handler {
	return &Handler{
		chatSvc:  chatSvc,
		orch:     orch,
		classify: classify,
		interval: interval,
		monitors: make(map[string]*monitor.Monitor),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket channel and the SSE feed.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/live/{sessionID}", h.handleWebSocket)
	r.Get("/sessions/{sessionID}/emotions/stream", h.handleEmotionStream)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type frameMessage struct {
	// Frame is the base64 payload; content is never inspected by the
	// stub classifier.
	Frame []byte `json:"frame"`
}

type textMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// frameBuffer keeps the most recent uploaded frame for the poller.
type frameBuffer struct {
	mu    sync.Mutex
	frame []byte
}

func (b *frameBuffer) put(frame []byte) {
	b.mu.Lock()
	b.frame = frame
	b.mu.Unlock()
}

// Capture implements monitor.FrameSource over the uploaded frames.
// Before the first frame arrives (camera denied or not started) the
// poller skips silently and the session stays usable without video.
func (b *frameBuffer) Capture(_ context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return nil, monitor.ErrNoFrame
	}
	return b.frame, nil
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade failed for session %s: %v", sessionID, err)
		return
	}

	buffer := &frameBuffer{}
	mon := monitor.New(buffer, h.classify, h.interval)
	h.register(sessionID, mon)
	mon.Start(context.Background())

	defer func() {
		h.teardown(sessionID, mon)
		conn.Close()
	}()

	var writeMu sync.Mutex
	send := func(msg outgoingMessage) {
		msg.Timestamp = time.Now().UnixMilli()
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("[live] write failed for session %s: %v", sessionID, err)
		}
	}

	send(outgoingMessage{Type: "session", SessionID: sessionID})

	// Emotion updates fan out to the client concurrently with the read
	// loop; the channel is closed by monitor.Stop on teardown.
	updates := mon.Subscribe()
	go func() {
		for update := range updates {
			send(outgoingMessage{Type: "emotion", SessionID: sessionID, Data: update})
		}
	}()

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[live] read failed for session %s: %v", sessionID, err)
			}
			return
		}

		switch msg.Type {
		case "frame":
			var frame frameMessage
			if err := json.Unmarshal(msg.Data, &frame); err != nil || len(frame.Frame) == 0 {
				send(outgoingMessage{Type: "error", Data: map[string]string{"message": "invalid frame payload"}})
				continue
			}
			buffer.put(frame.Frame)

		case "message":
			var text textMessage
			if err := json.Unmarshal(msg.Data, &text); err != nil || text.Text == "" {
				send(outgoingMessage{Type: "error", Data: map[string]string{"message": "invalid message payload"}})
				continue
			}
			h.handleTurn(r.Context(), sessionID, text.Text, mon, send)

		case "end":
			return

		default:
			send(outgoingMessage{Type: "error", Data: map[string]string{"message": "unknown message type"}})
		}
	}
}

// handleTurn runs one chat turn with the latest video emotion as hint.
func (h *Handler) handleTurn(ctx context.Context, sessionID, text string, mon *monitor.Monitor, send func(outgoingMessage)) {
	var hint emotion.Label
	if update, ok := mon.Latest(); ok {
		hint = update.Emotion
	}

	result, err := h.orch.Turn(ctx, sessionID, text, hint, therapistsvc.TurnOptions{})
	if err != nil {
		send(outgoingMessage{Type: "error", Data: map[string]string{"message": "failed to process message"}})
		return
	}

	send(outgoingMessage{Type: "reply", SessionID: sessionID, Data: map[string]any{
		"response":        result.AssistantMessage.Content,
		"detectedEmotion": result.Detected,
		"sources_used":    result.Sources,
		"failed":          result.Failed,
	}})
}

// teardown releases the timer and media pipeline before clearing the
// session, then finalizes and persists the record.
func (h *Handler) teardown(sessionID string, mon *monitor.Monitor) {
	mon.Stop()
	h.unregister(sessionID, mon)

	if _, err := h.chatSvc.EndSession(context.Background(), sessionID); err != nil {
		// Already ended through the REST delete path.
		log.Printf("[live] session %s already finalized: %v", sessionID, err)
	}
}

func (h *Handler) register(sessionID string, mon *monitor.Monitor) {
	h.mu.Lock()
	h.monitors[sessionID] = mon
	h.mu.Unlock()
}

func (h *Handler) unregister(sessionID string, mon *monitor.Monitor) {
	h.mu.Lock()
	if h.monitors[sessionID] == mon {
		delete(h.monitors, sessionID)
	}
	h.mu.Unlock()
}

func (h *Handler) lookup(sessionID string) (*monitor.Monitor, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	mon, ok := h.monitors[sessionID]
	return mon, ok
}

// handleEmotionStream follows a live session's emotion feed over SSE.
func (h *Handler) handleEmotionStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	mon, ok := h.lookup(sessionID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "no active live session")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, map[string]any{
		"event":   "status",
		"message": "stream established",
	})

	updates := mon.Subscribe()
	defer mon.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case update, open := <-updates:
			if !open {
				// Monitor stopped: the live session ended.
				return
			}
			utils.SendSSEEvent(w, flusher, "emotion", update)
		}
	}
}
