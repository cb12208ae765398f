package analytics

import (
	"time"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
)

// EmotionTally counts messages per recognized label. All five keys are
// always present in the serialized form, zero-initialized.
type EmotionTally struct {
	Neutral    int `json:"neutral"`
	Happy      int `json:"happy"`
	Sad        int `json:"sad"`
	Anxious    int `json:"anxious"`
	Frustrated int `json:"frustrated"`
}

// Inc bumps the counter for label. Unrecognized labels (including the
// empty label on unannotated messages) are ignored and reported false.
func (t *EmotionTally) Inc(label emotion.Label) bool {
	switch label {
	case emotion.Neutral:
		t.Neutral++
	case emotion.Happy:
		t.Happy++
	case emotion.Sad:
		t.Sad++
	case emotion.Anxious:
		t.Anxious++
	case emotion.Frustrated:
		t.Frustrated++
	default:
		return false
	}
	return true
}

// Count returns the tally for one label.
func (t EmotionTally) Count(label emotion.Label) int {
	switch label {
	case emotion.Neutral:
		return t.Neutral
	case emotion.Happy:
		return t.Happy
	case emotion.Sad:
		return t.Sad
	case emotion.Anxious:
		return t.Anxious
	case emotion.Frustrated:
		return t.Frustrated
	default:
		return 0
	}
}

// Total sums all five counters.
func (t EmotionTally) Total() int {
	return t.Neutral + t.Happy + t.Sad + t.Anxious + t.Frustrated
}

// SessionRecord is the derived summary for one session. It is mutated
// in place while the session is live, finalized exactly once (EndTime
// set), and immutable thereafter.
type SessionRecord struct {
	SessionID string     `json:"sessionId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	// MessageCount always equals the log length at computation time.
	MessageCount  int          `json:"messageCount"`
	EmotionCounts EmotionTally `json:"emotionCounts"`
	// AverageResponseTime is the mean user-to-assistant gap in
	// milliseconds, 0 when no qualifying pair exists.
	AverageResponseTime float64 `json:"averageResponseTime"`
}

// Finalized reports whether the record has been closed.
func (r SessionRecord) Finalized() bool {
	return r.EndTime != nil
}

// Duration returns the session length, zero while the session is live.
func (r SessionRecord) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
