package mood

import (
	"math"

	"github.com/justestif/go-mood-tunes/internal/features"
)

// Scaling constants for the valence/energy heuristics.
const (
	centroidScale = 5000.0 // Hz
	tempoScale    = 200.0  // BPM
)

// Score is a point on the valence/energy plane. Both axes are in [0, 1].
type Score struct {
	Valence float64 `json:"valence"`
	Energy  float64 `json:"energy"`
}

// Classification is the outcome of classifying a Score.
type Classification struct {
	Mood       Mood    `json:"mood"`
	Confidence float64 `json:"confidence"`
}

// Estimate derives valence and energy from extracted audio descriptors.
//
//	valence = clamp(centroid/5000*0.5 + chroma*0.5)
//	energy  = clamp(rms*2*0.6 + tempo/200*0.4)
func Estimate(f features.AudioFeatures) Score {
	valence := (f.SpectralCentroid/centroidScale)*0.5 + f.ChromaMean*0.5
	energy := (f.Energy*2)*0.6 + (f.Tempo/tempoScale)*0.4

	return Score{
		Valence: clamp01(valence),
		Energy:  clamp01(energy),
	}
}

// rule is one entry of the ordered decision list.
type rule struct {
	match      func(Score) bool
	mood       Mood
	confidence float64
}

// rules are evaluated in order; the first match wins. The last rule always matches.
var rules = []rule{
	{
		match:      func(s Score) bool { return s.Valence >= 0.6 && s.Energy >= 0.6 },
		mood:       Happy,
		confidence: 0.85,
	},
	{
		match:      func(s Score) bool { return s.Valence < 0.4 && s.Energy < 0.4 },
		mood:       Sad,
		confidence: 0.80,
	},
	{
		match:      func(s Score) bool { return s.Energy >= 0.6 },
		mood:       Energetic,
		confidence: 0.82,
	},
	{
		match:      func(Score) bool { return true },
		mood:       Calm,
		confidence: 0.78,
	},
}

// Classify assigns a mood and a fixed confidence to a valence/energy score.
func Classify(s Score) Classification {
	for _, r := range rules {
		if r.match(s) {
			return Classification{Mood: r.mood, Confidence: r.confidence}
		}
	}
	// unreachable: the last rule is a catch-all
	return Classification{Mood: Default, Confidence: rules[len(rules)-1].confidence}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
