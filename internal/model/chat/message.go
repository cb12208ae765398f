package chat

import (
	"time"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
)

// Message roles. The initial greeting is rendered client-side and never
// enters the log, so every stored message carries one of these.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one immutable turn in a session's append-only log.
// Insertion order is meaningful: response latency is derived from
// adjacent user/assistant timestamps.
type Message struct {
	ID        string        `json:"id"`
	SessionID string        `json:"sessionId"`
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Emotion   emotion.Label `json:"emotion,omitempty"`
	Sources   []string      `json:"sources,omitempty"`
	CreatedAt time.Time     `json:"timestamp"`
}
