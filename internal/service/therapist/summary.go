package therapist

import (
	"fmt"
	"strings"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
	"github.com/mindhaven-ai/mindhaven/backend/internal/analytics"
)

// Summarize renders a deterministic conversation summary from the live
// session record. Used in mock mode; remote mode forwards to the
// backend's summarizer instead.
func Summarize(record analytics.SessionRecord) string {
	if record.MessageCount == 0 {
		return "No messages were exchanged in this session."
	}

	dominant := emotion.Neutral
	best := 0
	for _, label := range emotion.Labels() {
		if count := record.EmotionCounts.Count(label); count > best {
			best = count
			dominant = label
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The session covered %d messages.", record.MessageCount)
	if best > 0 {
		fmt.Fprintf(&b, " The predominant emotional tone was %s. %s", dominant, emotion.Description(dominant))
	} else {
		b.WriteString(" No clear emotional tone emerged.")
	}
	return b.String()
}
