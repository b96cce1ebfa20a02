package analysis

import (
	"fmt"

	"lessonlens/api-gateway/models"
)

// EstimateDuration derives the video duration from the last utterance's end
// offset when no authoritative duration is available. Returns "M:SS" display
// form; ok is false for an empty transcript.
func EstimateDuration(utterances []models.Utterance) (string, bool) {
	if len(utterances) == 0 {
		return "", false
	}
	endMs := utterances[len(utterances)-1].End
	totalSeconds := (endMs + 999) / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60), true
}

// FormatOffset renders a start offset in milliseconds as the "M:SS" stamp
// used in prompts and highlight timestamps.
func FormatOffset(ms int64) string {
	totalSeconds := ms / 1000
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}
