package therapist

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	chatmodel "github.com/mindhaven-ai/mindhaven/backend/internal/model/chat"
	chatservice "github.com/mindhaven-ai/mindhaven/backend/internal/service/chat"
	"github.com/mindhaven-ai/mindhaven/backend/internal/telemetry"
	"github.com/mindhaven-ai/mindhaven/backend/internal/upstream"
)

// FallbackResponse is appended to the log when a turn fails; the
// session stays usable and nothing is retried.
const FallbackResponse = "Sorry, I encountered an issue. Please try again."

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	UserMessage      chatmodel.Message
	AssistantMessage chatmodel.Message
	Detected         emotion.Label
	Sources          []string
	// Failed marks turns whose responder call failed; the assistant
	// message then carries FallbackResponse.
	Failed        bool
	FailureDetail string
}

// Orchestrator drives the per-turn request/response cycle: append the
// user message, resolve the emotion, obtain a response (mock or
// remote), append the assistant message, and leave the recompute to the
// chat service. Turns are sequential per session from the client's
// perspective; log mutation is still serialized by the service.
type Orchestrator struct {
	chatSvc   *chatservice.Service
	responder Responder
	// upstream is non-nil in remote mode and used only to provision the
	// lazy session handle.
	upstream  *upstream.Client
	metrics   *telemetry.Metrics
	useRAG    bool
	nExamples int
}

// NewOrchestrator wires the turn pipeline. upstreamClient may be nil in
// mock mode; metrics may be nil.
func NewOrchestrator(chatSvc *chatservice.Service, responder Responder, upstreamClient *upstream.Client, metrics *telemetry.Metrics, useRAG bool, nExamples int) *Orchestrator {
	return &Orchestrator{
		chatSvc:   chatSvc,
		responder: responder,
		upstream:  upstreamClient,
		metrics:   metrics,
		useRAG:    useRAG,
		nExamples: nExamples,
	}
}

// TurnOptions overrides the configured RAG defaults for one turn.
type TurnOptions struct {
	UseRAG    *bool
	NExamples *int
}

// Turn runs one full turn. hint, when it is a recognized label, takes
// precedence over text detection (it stands in for the video
// classifier). Responder failures do not return an error: the apology
// is appended and the result reports Failed with the underlying detail.
func (o *Orchestrator) Turn(ctx context.Context, sessionID, userText string, hint emotion.Label, opts TurnOptions) (TurnResult, error) {
	started := time.Now()

	session, err := o.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	userMsg, err := o.chatSvc.SaveMessage(ctx, chatmodel.Message{
		SessionID: sessionID,
		Role:      chatmodel.RoleUser,
		Content:   userText,
	})
	if err != nil {
		return TurnResult{}, err
	}

	detected := resolveEmotion(userText, hint)

	useRAG := o.useRAG
	if opts.UseRAG != nil {
		useRAG = *opts.UseRAG
	}
	nExamples := o.nExamples
	if opts.NExamples != nil {
		nExamples = *opts.NExamples
	}

	upstreamID, err := o.ensureUpstream(ctx, session)
	if err != nil {
		return o.failTurn(ctx, sessionID, userMsg, detected, started, err)
	}

	reply, err := o.responder.Respond(ctx, upstreamID, userText, detected, useRAG, nExamples)
	if err != nil {
		return o.failTurn(ctx, sessionID, userMsg, detected, started, err)
	}

	assistantMsg, err := o.chatSvc.SaveMessage(ctx, chatmodel.Message{
		SessionID: sessionID,
		Role:      chatmodel.RoleAssistant,
		Content:   reply.Text,
		Emotion:   reply.Emotion,
		Sources:   reply.Sources,
	})
	if err != nil {
		return TurnResult{}, err
	}

	o.metrics.RecordTurn(ctx, detected, time.Since(started), false)
	return TurnResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Detected:         detected,
		Sources:          reply.Sources,
	}, nil
}

// ensureUpstream lazily provisions the remote session handle and binds
// it so every later turn threads the same handle through.
func (o *Orchestrator) ensureUpstream(ctx context.Context, session chatmodel.Session) (string, error) {
	if o.upstream == nil || session.UpstreamID != "" {
		return session.UpstreamID, nil
	}

	info, err := o.upstream.CreateSession(ctx)
	if err != nil {
		return "", err
	}
	if err := o.chatSvc.BindUpstream(ctx, session.ID, info.SessionID); err != nil {
		return "", fmt.Errorf("failed to bind upstream session: %w", err)
	}
	return info.SessionID, nil
}

// failTurn logs the cause, appends the canned apology so the transcript
// stays coherent, and reports the failure without raising.
func (o *Orchestrator) failTurn(ctx context.Context, sessionID string, userMsg chatmodel.Message, detected emotion.Label, started time.Time, cause error) (TurnResult, error) {
	log.Printf("[therapist] turn failed for session %s: %v", sessionID, cause)

	assistantMsg, err := o.chatSvc.SaveMessage(ctx, chatmodel.Message{
		SessionID: sessionID,
		Role:      chatmodel.RoleAssistant,
		Content:   FallbackResponse,
	})
	if err != nil {
		return TurnResult{}, err
	}

	o.metrics.RecordTurn(ctx, detected, time.Since(started), true)
	return TurnResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Detected:         detected,
		Failed:           true,
		FailureDetail:    cause.Error(),
	}, nil
}

func resolveEmotion(userText string, hint emotion.Label) emotion.Label {
	if label, ok := emotion.Parse(string(hint)); ok {
		return label
	}
	return emotion.DetectFromText(userText)
}
