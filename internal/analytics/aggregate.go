package analytics

import (
	"time"

	"github.com/mindhaven-ai/mindhaven/backend/internal/model/chat"
)

// Aggregate recomputes the derived record for one session from its full
// ordered message log. Pure; called after every log mutation so the
// record invariants hold continuously.
func Aggregate(sessionID string, start time.Time, messages []chat.Message) SessionRecord {
	record := SessionRecord{
		SessionID:    sessionID,
		StartTime:    start,
		MessageCount: len(messages),
	}

	for _, msg := range messages {
		record.EmotionCounts.Inc(msg.Emotion)
	}

	record.AverageResponseTime = averageResponseTime(messages)
	return record
}

// averageResponseTime scans adjacent pairs and averages the gap over
// user-then-assistant pairs where both sides carry timestamps.
func averageResponseTime(messages []chat.Message) float64 {
	var total time.Duration
	var pairs int

	for i := 1; i < len(messages); i++ {
		prev, cur := messages[i-1], messages[i]
		if prev.Role != chat.RoleUser || cur.Role != chat.RoleAssistant {
			continue
		}
		if prev.CreatedAt.IsZero() || cur.CreatedAt.IsZero() {
			continue
		}
		total += cur.CreatedAt.Sub(prev.CreatedAt)
		pairs++
	}

	if pairs == 0 {
		return 0
	}
	return float64(total.Milliseconds()) / float64(pairs)
}

// Finalize closes a live record at endedAt. The caller guards against
// finalizing twice; records already carrying an end time are returned
// unchanged.
func Finalize(record SessionRecord, endedAt time.Time) SessionRecord {
	if record.Finalized() {
		return record
	}
	ended := endedAt.UTC()
	record.EndTime = &ended
	return record
}
