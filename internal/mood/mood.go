// Package mood maps audio descriptors to one of four mood labels and holds
// the per-mood lookup tables used for recommendations and remixes.
package mood

import "strings"

// Mood is one of the four supported mood labels.
type Mood string

const (
	Happy     Mood = "Happy"
	Sad       Mood = "Sad"
	Energetic Mood = "Energetic"
	Calm      Mood = "Calm"
)

// Default is used whenever a mood name is not recognised.
const Default = Calm

// All lists every mood in classification order.
var All = []Mood{Happy, Sad, Energetic, Calm}

// String returns the mood name.
func (m Mood) String() string {
	return string(m)
}

// Valid reports whether m is one of the four known moods.
func (m Mood) Valid() bool {
	_, ok := Lookup(string(m))
	return ok
}

// Lookup resolves a mood name case-insensitively.
// The boolean is false when the name is not one of the known moods.
func Lookup(name string) (Mood, bool) {
	name = strings.TrimSpace(name)
	for _, m := range All {
		if strings.EqualFold(name, string(m)) {
			return m, true
		}
	}
	return "", false
}

// Parse resolves a mood name, falling back to Calm for anything unknown.
func Parse(name string) Mood {
	if m, ok := Lookup(name); ok {
		return m
	}
	return Default
}

// Description returns a short human-readable description of the mood.
func Description(m Mood) string {
	switch m {
	case Happy:
		return "Uplifting and joyful vibes detected!"
	case Sad:
		return "Emotional and melancholic tones found."
	case Energetic:
		return "High energy and powerful rhythm!"
	default:
		return "Peaceful and soothing atmosphere."
	}
}
