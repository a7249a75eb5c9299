package recommend

import (
	"fmt"
	"strings"
)

const sampleTrackCount = 5

// FormatSummary returns a human-readable summary of a recommendation result.
// Shows how the list was built and the first few tracks.
func FormatSummary(r *Result) string {
	var sb strings.Builder

	if r == nil || len(r.Tracks) == 0 {
		sb.WriteString("No recommendations found\n")
		return sb.String()
	}

	trackWord := "track"
	if len(r.Tracks) > 1 {
		trackWord = "tracks"
	}

	sb.WriteString(fmt.Sprintf("Found %d %s %s (%s)\n", len(r.Tracks), r.Mood, trackWord, r.Stats.Strategy))
	sb.WriteString(fmt.Sprintf("Checked %d of %d candidates: %d passed, %d rejected\n",
		r.Stats.Checked, r.Stats.Candidates, r.Stats.Accepted, r.Stats.Rejected))

	sb.WriteString("\n")
	sampleCount := min(sampleTrackCount, len(r.Tracks))
	for i := 0; i < sampleCount; i++ {
		track := r.Tracks[i]
		sb.WriteString(fmt.Sprintf("  • \"%s\" - %s\n", track.Name, track.Artist()))
	}

	remaining := len(r.Tracks) - sampleTrackCount
	if remaining > 0 {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", remaining))
	}

	return sb.String()
}
