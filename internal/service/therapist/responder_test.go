package therapist

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	"github.com/mindhaven-ai/mindhaven/backend/internal/analytics"
)

func TestMockResponderSamplesFromDetectedBucket(t *testing.T) {
	responder := NewMockResponder(0)

	reply, err := responder.Respond(context.Background(), "", "I am sad", emotion.Sad, false, 0)
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}
	if reply.Emotion != emotion.Sad {
		t.Fatalf("expected sad emotion, got %s", reply.Emotion)
	}

	found := false
	for _, candidate := range Responses(emotion.Sad) {
		if candidate == reply.Text {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("response %q not in the sad bucket", reply.Text)
	}
}

func TestMockResponderUnknownLabelFallsBackToNeutral(t *testing.T) {
	responder := NewMockResponder(0)

	reply, err := responder.Respond(context.Background(), "", "hm", "bewildered", false, 0)
	if err != nil {
		t.Fatalf("Respond err: %v", err)
	}

	found := false
	for _, candidate := range Responses(emotion.Neutral) {
		if candidate == reply.Text {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected neutral fallback, got %q", reply.Text)
	}
}

func TestMockResponderHonorsCancellation(t *testing.T) {
	responder := NewMockResponder(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := responder.Respond(ctx, "", "hi", emotion.Neutral, false, 0); err == nil {
		t.Fatal("expected context error during simulated delay")
	}
}

func TestSummarizeNamesDominantEmotion(t *testing.T) {
	record := analytics.SessionRecord{SessionID: "s1", MessageCount: 6}
	record.EmotionCounts.Anxious = 3
	record.EmotionCounts.Neutral = 1

	summary := Summarize(record)
	if !strings.Contains(summary, "anxious") {
		t.Fatalf("summary %q does not mention the dominant emotion", summary)
	}
}

func TestSummarizeEmptySession(t *testing.T) {
	summary := Summarize(analytics.SessionRecord{SessionID: "s1"})
	if summary != "No messages were exchanged in this session." {
		t.Fatalf("unexpected empty-session summary: %q", summary)
	}
}
