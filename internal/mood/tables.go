package mood

// TargetProfile holds the ideal catalog attributes for a mood.
type TargetProfile struct {
	Valence float64
	Energy  float64
	Tempo   float64
}

// Bound is an optional inclusive limit.
type Bound struct {
	Value float64
	Set   bool
}

func at(v float64) Bound {
	return Bound{Value: v, Set: true}
}

// Criteria is the acceptance window for catalog tracks of a mood.
// Unset bounds do not constrain the corresponding axis.
type Criteria struct {
	MinValence Bound
	MaxValence Bound
	MinEnergy  Bound
	MaxEnergy  Bound
}

// Accepts reports whether a track with the given valence and energy falls
// inside every set bound. Bounds are inclusive.
func (c Criteria) Accepts(valence, energy float64) bool {
	if c.MinValence.Set && valence < c.MinValence.Value {
		return false
	}
	if c.MaxValence.Set && valence > c.MaxValence.Value {
		return false
	}
	if c.MinEnergy.Set && energy < c.MinEnergy.Value {
		return false
	}
	if c.MaxEnergy.Set && energy > c.MaxEnergy.Value {
		return false
	}
	return true
}

// RemixProfile describes how a track is transformed for a mood.
type RemixProfile struct {
	Speed  float64 // playback rate multiplier, pitch moves with it
	GainDB float64
}

// Neutral leaves audio untouched apart from the fades.
var Neutral = RemixProfile{Speed: 1.0, GainDB: 0}

var targets = map[Mood]TargetProfile{
	Happy:     {Valence: 0.8, Energy: 0.8, Tempo: 120},
	Sad:       {Valence: 0.3, Energy: 0.3, Tempo: 80},
	Energetic: {Valence: 0.7, Energy: 0.9, Tempo: 140},
	Calm:      {Valence: 0.5, Energy: 0.4, Tempo: 90},
}

var criteria = map[Mood]Criteria{
	Happy:     {MinValence: at(0.50), MinEnergy: at(0.50)},
	Sad:       {MaxValence: at(0.50), MaxEnergy: at(0.50)},
	Energetic: {MinEnergy: at(0.65)},
	Calm:      {MaxEnergy: at(0.60), MinValence: at(0.30), MaxValence: at(0.70)},
}

var searchQueries = map[Mood][]string{
	Happy: {
		"bollywood happy cheerful songs",
		"upbeat hindi party music",
		"feel good bollywood dance",
		"positive energy hindi songs",
	},
	Sad: {
		"sad bollywood heartbreak songs",
		"emotional slow hindi songs",
		"arijit singh sad songs",
		"melancholic romantic hindi",
	},
	Energetic: {
		"high energy bollywood dance",
		"workout hindi gym songs",
		"fast tempo party bollywood",
		"energetic dance hindi music",
	},
	Calm: {
		"peaceful bollywood romantic",
		"soft acoustic hindi songs",
		"soothing relaxing bollywood",
		"calm unplugged hindi music",
	},
}

// fallbackQueries is used for a mood with no query list.
var fallbackQueries = []string{"bollywood"}

var remixes = map[Mood]RemixProfile{
	Happy:     {Speed: 1.0, GainDB: 2},
	Sad:       {Speed: 0.9, GainDB: -2},
	Energetic: {Speed: 1.15, GainDB: 3},
	Calm:      {Speed: 0.85, GainDB: -1},
}

// Targets returns the target catalog attributes for a mood.
// Unknown moods get Calm's profile.
func Targets(m Mood) TargetProfile {
	if t, ok := targets[m]; ok {
		return t
	}
	return targets[Default]
}

// CriteriaFor returns the acceptance window for a mood.
// Unknown moods get Calm's window.
func CriteriaFor(m Mood) Criteria {
	if c, ok := criteria[m]; ok {
		return c
	}
	return criteria[Default]
}

// SearchQueries returns the catalog search phrases for a mood.
// The returned slice is a copy.
func SearchQueries(m Mood) []string {
	q, ok := searchQueries[m]
	if !ok {
		q = fallbackQueries
	}
	return append([]string(nil), q...)
}

// Remix returns the remix profile for a mood name.
// Names that are not a known mood get the Neutral profile.
func Remix(name string) RemixProfile {
	m, ok := Lookup(name)
	if !ok {
		return Neutral
	}
	return remixes[m]
}
