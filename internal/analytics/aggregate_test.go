package analytics

import (
	"testing"
	"time"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	"github.com/mindhaven-ai/mindhaven/backend/internal/model/chat"
)

func TestAggregateMessageCountTracksLog(t *testing.T) {
	start := time.Now().UTC()
	var log []chat.Message

	for i := 0; i < 5; i++ {
		log = append(log, chat.Message{Role: chat.RoleUser, Content: "hello"})
		record := Aggregate("s1", start, log)
		if record.MessageCount != len(log) {
			t.Fatalf("messageCount %d does not match log length %d", record.MessageCount, len(log))
		}
	}
}

func TestAggregateTallyCountsRecognizedLabelsOnly(t *testing.T) {
	log := []chat.Message{
		{Role: chat.RoleUser, Content: "I am sad"},
		{Role: chat.RoleAssistant, Content: "tell me more", Emotion: emotion.Sad},
		{Role: chat.RoleUser, Content: "ok"},
		{Role: chat.RoleAssistant, Content: "go on", Emotion: emotion.Neutral},
		{Role: chat.RoleAssistant, Content: "bad label", Emotion: "euphoric"},
	}

	record := Aggregate("s1", time.Now(), log)
	if record.EmotionCounts.Sad != 1 {
		t.Fatalf("expected sad count 1, got %d", record.EmotionCounts.Sad)
	}
	if record.EmotionCounts.Neutral != 1 {
		t.Fatalf("expected neutral count 1, got %d", record.EmotionCounts.Neutral)
	}
	labeled := 0
	for _, msg := range log {
		if _, ok := emotion.Parse(string(msg.Emotion)); ok {
			labeled++
		}
	}
	if record.EmotionCounts.Total() != labeled {
		t.Fatalf("tally total %d does not equal labeled message count %d", record.EmotionCounts.Total(), labeled)
	}
}

func TestAverageResponseTimeZeroWithoutPairs(t *testing.T) {
	log := []chat.Message{
		{Role: chat.RoleAssistant, Content: "hi", CreatedAt: time.Now()},
		{Role: chat.RoleUser, Content: "hello", CreatedAt: time.Now()},
	}
	record := Aggregate("s1", time.Now(), log)
	if record.AverageResponseTime != 0 {
		t.Fatalf("expected 0 average with no user->assistant pair, got %f", record.AverageResponseTime)
	}
}

func TestAverageResponseTimeSinglePair(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	log := []chat.Message{
		{Role: chat.RoleUser, Content: "hi", CreatedAt: base},
		{Role: chat.RoleAssistant, Content: "hello", CreatedAt: base.Add(750 * time.Millisecond)},
	}
	record := Aggregate("s1", base, log)
	if record.AverageResponseTime != 750 {
		t.Fatalf("expected 750ms average, got %f", record.AverageResponseTime)
	}
}

func TestAverageResponseTimeIgnoresMissingTimestamps(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	log := []chat.Message{
		{Role: chat.RoleUser, Content: "hi"},
		{Role: chat.RoleAssistant, Content: "hello", CreatedAt: base},
		{Role: chat.RoleUser, Content: "again", CreatedAt: base.Add(time.Second)},
		{Role: chat.RoleAssistant, Content: "sure", CreatedAt: base.Add(3 * time.Second)},
	}
	record := Aggregate("s1", base, log)
	if record.AverageResponseTime != 2000 {
		t.Fatalf("expected 2000ms from the single timestamped pair, got %f", record.AverageResponseTime)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	record := Aggregate("s1", time.Now(), nil)
	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	closed := Finalize(record, first)
	if !closed.Finalized() {
		t.Fatal("expected finalized record")
	}
	again := Finalize(closed, first.Add(time.Hour))
	if !again.EndTime.Equal(first) {
		t.Fatalf("re-finalizing moved the end time: %v", again.EndTime)
	}
}
