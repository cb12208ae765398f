package therapist

import (
	"context"
	"fmt"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	"github.com/mindhaven-ai/mindhaven/backend/internal/upstream"
)

// RemoteResponder forwards turns to the therapy backend. Failures carry
// the upstream status detail and are terminal for the turn; the caller
// surfaces a user-visible fallback instead of retrying.
type RemoteResponder struct {
	client *upstream.Client
}

// NewRemoteResponder wraps an upstream client.
func NewRemoteResponder(client *upstream.Client) *RemoteResponder {
	return &RemoteResponder{client: client}
}

// Respond threads the bound session handle through the remote chat call.
// The detected emotion passes through unchanged: the backend returns
// text only, and emotion attribution stays a local concern.
func (r *RemoteResponder) Respond(ctx context.Context, upstreamID, userText string, detected emotion.Label, useRAG bool, nExamples int) (Reply, error) {
	if upstreamID == "" {
		return Reply{}, fmt.Errorf("no upstream session bound")
	}

	result, err := r.client.Chat(ctx, upstreamID, userText, useRAG, nExamples)
	if err != nil {
		return Reply{}, err
	}

	return Reply{
		Text:    result.Response,
		Emotion: detected,
		Sources: result.SourcesUsed,
	}, nil
}
