// Package therapist selects assistant responses for one conversational
// turn, either from the local canned-response demo bank or by
// forwarding to the remote therapy backend.
package therapist

import (
	"context"
	"math/rand"
	"time"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
)

// Reply is one assistant turn.
type Reply struct {
	Text    string
	Emotion emotion.Label
	Sources []string
}

// Responder produces the assistant side of a turn. upstreamID is the
// remote session handle, ignored by local implementations. detected is
// the emotion attributed to the user's message, already resolved by the
// caller (video hint or text detection).
type Responder interface {
	Respond(ctx context.Context, upstreamID, userText string, detected emotion.Label, useRAG bool, nExamples int) (Reply, error)
}

// responseBank holds the demo responses keyed by detected emotion.
var responseBank = map[emotion.Label][]string{
	emotion.Neutral: {
		"Thank you for sharing. Could you tell me more about how that makes you feel?",
		"I understand. How long have you been feeling this way?",
		"That's interesting. What thoughts come up for you when you experience this?",
	},
	emotion.Happy: {
		"I'm glad you're feeling positive! What's contributing to your happiness today?",
		"It's wonderful to hear you're in good spirits. What activities have been bringing you joy?",
		"That positive energy comes through clearly. How can we build on these good feelings?",
	},
	emotion.Sad: {
		"I notice you might be feeling down. Would you like to talk about what's troubling you?",
		"I'm sorry to hear you're feeling sad. Remember that it's okay to experience these emotions.",
		"When you feel this sadness, where do you notice it in your body? Sometimes being aware of physical sensations can help us process emotions.",
	},
	emotion.Anxious: {
		"It seems like you might be experiencing some anxiety. Let's try a quick breathing exercise together.",
		"Anxiety can be challenging. What typically helps you when you're feeling this way?",
		"I notice some signs of worry. Can you identify what specific concerns are on your mind right now?",
	},
	emotion.Frustrated: {
		"I sense some frustration. Sometimes naming what's bothering us can help us process it better.",
		"Feeling frustrated is completely valid. What would be most helpful for you right now?",
		"When you feel this frustration, what would you like to change about the situation?",
	},
}

// Responses returns the canned bank for a label, falling back to the
// neutral bucket for anything unrecognized.
func Responses(label emotion.Label) []string {
	if bucket, ok := responseBank[label]; ok {
		return bucket
	}
	return responseBank[emotion.Neutral]
}

// MockResponder samples a canned response after a simulated processing
// delay. It never fails apart from context cancellation.
type MockResponder struct {
	delay time.Duration
}

// NewMockResponder creates the demo responder. delay may be zero.
func NewMockResponder(delay time.Duration) *MockResponder {
	return &MockResponder{delay: delay}
}

// Respond picks uniformly from the bucket matching the detected emotion.
func (m *MockResponder) Respond(ctx context.Context, _, _ string, detected emotion.Label, _ bool, _ int) (Reply, error) {
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Reply{}, ctx.Err()
		case <-timer.C:
		}
	}

	bucket := Responses(detected)
	return Reply{
		Text:    bucket[rand.Intn(len(bucket))],
		Emotion: detected,
	}, nil
}
