package emotion

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Label is one of the five emotional states the product recognizes.
type Label string

const (
	Neutral    Label = "neutral"
	Happy      Label = "happy"
	Sad        Label = "sad"
	Anxious    Label = "anxious"
	Frustrated Label = "frustrated"
)

// Labels returns the closed set of recognized labels in a stable order.
func Labels() []Label {
	return []Label{Neutral, Happy, Sad, Anxious, Frustrated}
}

// Parse validates a raw string at the classifier boundary.
func Parse(raw string) (Label, bool) {
	switch Label(strings.ToLower(strings.TrimSpace(raw))) {
	case Neutral:
		return Neutral, true
	case Happy:
		return Happy, true
	case Sad:
		return Sad, true
	case Anxious:
		return Anxious, true
	case Frustrated:
		return Frustrated, true
	default:
		return "", false
	}
}

// keywordOrder fixes bucket priority; the first bucket with a matching
// substring wins.
var keywordOrder = []Label{Happy, Sad, Anxious, Frustrated}

var keywordBuckets = map[Label][]string{
	Happy:      {"happy", "joy", "great", "excited"},
	Sad:        {"sad", "depressed", "unhappy", "down"},
	Anxious:    {"anxious", "worried", "nervous", "stress"},
	Frustrated: {"angry", "frustrated", "annoyed", "upset"},
}

// DetectFromText classifies a user utterance by keyword matching.
// Deterministic; returns Neutral when no bucket matches.
func DetectFromText(text string) Label {
	normalized := strings.ToLower(text)
	for _, label := range keywordOrder {
		for _, word := range keywordBuckets[label] {
			if strings.Contains(normalized, word) {
				return label
			}
		}
	}
	return Neutral
}

// FrameClassifier maps one captured video frame to an emotion label.
// Injected so a real model can replace the stub without touching callers.
type FrameClassifier func(ctx context.Context, frame []byte) (Label, error)

// frameDelay simulates per-frame processing time.
const frameDelay = 500 * time.Millisecond

// ClassifyFrame is a non-functional stand-in for visual emotion
// recognition: it waits a fixed delay and returns a uniformly random
// label regardless of frame content. Callers must not assume anything
// beyond "a plausible label".
func ClassifyFrame(ctx context.Context, _ []byte) (Label, error) {
	timer := time.NewTimer(frameDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Neutral, ctx.Err()
	case <-timer.C:
	}

	labels := Labels()
	return labels[rand.Intn(len(labels))], nil
}

// Color maps a label to the indicator color the frontend renders next
// to the detected emotion.
func Color(label Label) string {
	switch label {
	case Happy:
		return "green"
	case Sad:
		return "blue"
	case Anxious:
		return "yellow"
	case Frustrated:
		return "red"
	default:
		return "gray"
	}
}

// Description phrases a label for user-facing status lines.
func Description(label Label) string {
	switch label {
	case Happy:
		return "You seem to be in a positive mood."
	case Sad:
		return "You appear to be feeling down."
	case Anxious:
		return "You might be experiencing some anxiety."
	case Frustrated:
		return "You seem to be feeling frustrated."
	default:
		return "Your emotional state appears neutral."
	}
}
