package chat

import "time"

// Session captures a transient anonymous conversation.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	// UpstreamID is the handle issued by the remote therapy backend,
	// bound lazily on the first forwarded turn. Empty in mock mode.
	UpstreamID string `json:"-"`
}
