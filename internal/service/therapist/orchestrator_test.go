package therapist

import (
	"context"
	"errors"
	"testing"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	"github.com/mindhaven-ai/mindhaven/backend/internal/analytics"
	chatservice "github.com/mindhaven-ai/mindhaven/backend/internal/service/chat"
)

type scriptedResponder struct {
	reply Reply
	err   error
	calls int
}

func (s *scriptedResponder) Respond(_ context.Context, _, _ string, detected emotion.Label, _ bool, _ int) (Reply, error) {
	s.calls++
	if s.err != nil {
		return Reply{}, s.err
	}
	reply := s.reply
	if reply.Emotion == "" {
		reply.Emotion = detected
	}
	return reply, nil
}

func TestTurnAppendsBothMessagesAndUpdatesTally(t *testing.T) {
	chatSvc := chatservice.NewService(analytics.NewMemoryStore())
	ctx := context.Background()
	session, _ := chatSvc.CreateSession(ctx)

	responder := &scriptedResponder{reply: Reply{Text: "Would you like to talk about it?"}}
	orch := NewOrchestrator(chatSvc, responder, nil, nil, true, 3)

	result, err := orch.Turn(ctx, session.ID, "I am sad", "", TurnOptions{})
	if err != nil {
		t.Fatalf("Turn err: %v", err)
	}
	if result.Detected != emotion.Sad {
		t.Fatalf("expected sad detection, got %s", result.Detected)
	}
	if result.AssistantMessage.Emotion != emotion.Sad {
		t.Fatalf("assistant message missing emotion label: %+v", result.AssistantMessage)
	}
	if result.UserMessage.Emotion != "" {
		t.Fatalf("user message must not carry an emotion label: %+v", result.UserMessage)
	}

	record, _ := chatSvc.Snapshot(ctx, session.ID)
	if record.MessageCount != 2 {
		t.Fatalf("expected 2 messages in log, got %d", record.MessageCount)
	}
	if record.EmotionCounts.Sad != 1 {
		t.Fatalf("expected sad tally 1 after recompute, got %d", record.EmotionCounts.Sad)
	}
}

func TestTurnVideoHintOverridesTextDetection(t *testing.T) {
	chatSvc := chatservice.NewService(analytics.NewMemoryStore())
	ctx := context.Background()
	session, _ := chatSvc.CreateSession(ctx)

	responder := &scriptedResponder{reply: Reply{Text: "ok"}}
	orch := NewOrchestrator(chatSvc, responder, nil, nil, false, 0)

	result, err := orch.Turn(ctx, session.ID, "I am sad", emotion.Happy, TurnOptions{})
	if err != nil {
		t.Fatalf("Turn err: %v", err)
	}
	if result.Detected != emotion.Happy {
		t.Fatalf("hint should win over text detection, got %s", result.Detected)
	}
}

func TestTurnFailureAppendsApology(t *testing.T) {
	chatSvc := chatservice.NewService(analytics.NewMemoryStore())
	ctx := context.Background()
	session, _ := chatSvc.CreateSession(ctx)

	responder := &scriptedResponder{err: errors.New("upstream status 503: overloaded")}
	orch := NewOrchestrator(chatSvc, responder, nil, nil, true, 3)

	result, err := orch.Turn(ctx, session.ID, "hello there", "", TurnOptions{})
	if err != nil {
		t.Fatalf("turn failures must not raise, got %v", err)
	}
	if !result.Failed {
		t.Fatal("expected failed turn")
	}
	if result.AssistantMessage.Content != FallbackResponse {
		t.Fatalf("expected fallback response, got %q", result.AssistantMessage.Content)
	}

	// Session remains usable after the failure.
	transcript, _ := chatSvc.LoadTranscript(ctx, session.ID)
	if len(transcript) != 2 {
		t.Fatalf("expected user + apology in log, got %d messages", len(transcript))
	}
	responder.err = nil
	responder.reply = Reply{Text: "back again"}
	if _, err := orch.Turn(ctx, session.ID, "retrying", "", TurnOptions{}); err != nil {
		t.Fatalf("session should survive a failed turn: %v", err)
	}
}

func TestTurnUnknownSession(t *testing.T) {
	chatSvc := chatservice.NewService(analytics.NewMemoryStore())
	orch := NewOrchestrator(chatSvc, &scriptedResponder{}, nil, nil, true, 3)

	_, err := orch.Turn(context.Background(), "missing", "hi", "", TurnOptions{})
	if !errors.Is(err, chatservice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestTurnRespectsOptionOverrides(t *testing.T) {
	chatSvc := chatservice.NewService(analytics.NewMemoryStore())
	ctx := context.Background()
	session, _ := chatSvc.CreateSession(ctx)

	var gotUseRAG bool
	var gotN int
	responder := responderFunc(func(_ context.Context, _, _ string, detected emotion.Label, useRAG bool, n int) (Reply, error) {
		gotUseRAG, gotN = useRAG, n
		return Reply{Text: "ok", Emotion: detected}, nil
	})
	orch := NewOrchestrator(chatSvc, responder, nil, nil, true, 3)

	useRAG := false
	n := 7
	if _, err := orch.Turn(ctx, session.ID, "hi", "", TurnOptions{UseRAG: &useRAG, NExamples: &n}); err != nil {
		t.Fatalf("Turn err: %v", err)
	}
	if gotUseRAG != false || gotN != 7 {
		t.Fatalf("per-turn overrides not threaded: useRAG=%v n=%d", gotUseRAG, gotN)
	}

	if _, err := orch.Turn(ctx, session.ID, "hi", "", TurnOptions{}); err != nil {
		t.Fatalf("Turn err: %v", err)
	}
	if gotUseRAG != true || gotN != 3 {
		t.Fatalf("configured defaults not used: useRAG=%v n=%d", gotUseRAG, gotN)
	}
}

type responderFunc func(ctx context.Context, upstreamID, userText string, detected emotion.Label, useRAG bool, nExamples int) (Reply, error)

func (f responderFunc) Respond(ctx context.Context, upstreamID, userText string, detected emotion.Label, useRAG bool, nExamples int) (Reply, error) {
	return f(ctx, upstreamID, userText, detected, useRAG, nExamples)
}
