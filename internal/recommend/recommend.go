// Package recommend builds mood-matched track lists from a music catalog.
package recommend

import (
	"context"
	"errors"
	"strings"

	"github.com/justestif/go-mood-tunes/internal/mood"
)

var (
	// ErrNoResults is returned when every strategy produced an empty list.
	ErrNoResults = errors.New("no songs found matching criteria")

	// ErrCatalogUnavailable wraps failures talking to the remote catalog.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

// Track is a catalog track as presented to clients.
type Track struct {
	ID          string
	Name        string
	Artists     []string
	Album       string
	PreviewURL  string // empty when the catalog has no preview
	ExternalURL string
	ImageURL    string // first album image, empty when none
}

// Artist returns the artist names joined by ", ".
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// TrackFeatures are catalog-reported attributes of a track.
type TrackFeatures struct {
	Valence float64
	Energy  float64
	Tempo   float64
}

// RecommendationQuery asks the catalog for tracks similar to seeds and
// steered towards target attributes inside hard bounds.
type RecommendationQuery struct {
	SeedTrackIDs []string
	Targets      mood.TargetProfile
	Bounds       mood.Criteria
	Limit        int
}

// Catalog abstracts the remote music catalog.
//
// AudioFeatures returns (nil, nil) when the catalog has no features for the track.
// Implementations should wrap transport failures with ErrCatalogUnavailable.
type Catalog interface {
	Search(ctx context.Context, query string, limit int, market string) ([]Track, error)
	AudioFeatures(ctx context.Context, trackID string) (*TrackFeatures, error)
	Recommendations(ctx context.Context, q RecommendationQuery) ([]Track, error)
}

// Prefetcher is implemented by catalogs that can load features for many
// tracks before verification starts. It reports nothing; verification still
// looks up every candidate it checks.
type Prefetcher interface {
	PrefetchFeatures(ctx context.Context, trackIDs []string)
}

// Strategy identifies how the final list was produced.
type Strategy string

const (
	// StrategyVerified means enough search results passed verification.
	StrategyVerified Strategy = "verified"
	// StrategyMerged means verified tracks were topped up with catalog recommendations.
	StrategyMerged Strategy = "merged"
	// StrategyDegraded means the recommendation call failed and the engine
	// fell back to verified tracks or the raw search pool.
	StrategyDegraded Strategy = "degraded"
)

// Stats summarises one run of the engine.
type Stats struct {
	Candidates int // tracks returned by all searches, duplicates included
	Checked    int // candidates whose features were looked up
	Accepted   int
	Rejected   int
	Strategy   Strategy
}

// Result is the output of Engine.Recommend.
type Result struct {
	Mood   mood.Mood
	Tracks []Track // unique by ID, at most MaxResults
	Stats  Stats
}
