package web

import (
	"github.com/justestif/go-mood-tunes/internal/mood"
	"github.com/justestif/go-mood-tunes/internal/recommend"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type analyzeFeatures struct {
	Valence          float64 `json:"valence"`
	Energy           float64 `json:"energy"`
	Tempo            float64 `json:"tempo"`
	SpectralCentroid float64 `json:"spectral_centroid"`
}

type analyzeResponse struct {
	Mood          mood.Mood       `json:"mood"`
	Confidence    float64         `json:"confidence"`
	Description   string          `json:"description"`
	AudioFeatures analyzeFeatures `json:"audio_features"`
	Filename      string          `json:"filename"`
	Title         string          `json:"title,omitempty"`
	Artist        string          `json:"artist,omitempty"`
}

type recommendRequest struct {
	Mood string `json:"mood"`
}

type trackResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	PreviewURL *string `json:"preview_url"`
	SpotifyURL string  `json:"spotify_url"`
	Image      *string `json:"image"`
}

type recommendResponse struct {
	Mood            mood.Mood       `json:"mood"`
	Recommendations []trackResponse `json:"recommendations"`
}

func newRecommendResponse(r *recommend.Result) recommendResponse {
	tracks := make([]trackResponse, len(r.Tracks))
	for i, t := range r.Tracks {
		tracks[i] = trackResponse{
			ID:         t.ID,
			Name:       t.Name,
			Artist:     t.Artist(),
			Album:      t.Album,
			PreviewURL: nullable(t.PreviewURL),
			SpotifyURL: t.ExternalURL,
			Image:      nullable(t.ImageURL),
		}
	}
	return recommendResponse{Mood: r.Mood, Recommendations: tracks}
}

type remixRequest struct {
	Filename string `json:"filename"`
	Mood     string `json:"mood"`
}

type remixResponse struct {
	Message       string `json:"message"`
	RemixFilename string `json:"remix_filename"`
}

// nullable maps an empty string to JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
