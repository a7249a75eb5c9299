package db

import "time"

// TrackFeatures is a cached catalog lookup for one track.
// Available is false when the catalog had no features for the track;
// the numeric fields are zero in that case.
type TrackFeatures struct {
	TrackID   string
	Available bool
	Valence   float64
	Energy    float64
	Tempo     float64
	FetchedAt time.Time
}
