package spotify

import (
	"strconv"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-mood-tunes/internal/recommend"
)

// convertFullTrack converts a search result to recommend.Track.
func convertFullTrack(ft spotify.FullTrack) recommend.Track {
	t := convertSimpleTrack(ft.SimpleTrack)
	t.Album = ft.Album.Name
	t.ImageURL = firstImage(ft.Album.Images)
	return t
}

// convertSimpleTrack converts a recommendation result to recommend.Track.
func convertSimpleTrack(st spotify.SimpleTrack) recommend.Track {
	artists := make([]string, len(st.Artists))
	for i, a := range st.Artists {
		artists[i] = a.Name
	}

	return recommend.Track{
		ID:          st.ID.String(),
		Name:        st.Name,
		Artists:     artists,
		Album:       st.Album.Name,
		PreviewURL:  st.PreviewURL,
		ExternalURL: st.ExternalURLs["spotify"],
		ImageURL:    firstImage(st.Album.Images),
	}
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// convertAudioFeatures copies the attributes the engine filters on.
func convertAudioFeatures(f *spotify.AudioFeatures) *recommend.TrackFeatures {
	return &recommend.TrackFeatures{
		Valence: widen(f.Valence),
		Energy:  widen(f.Energy),
		Tempo:   widen(f.Tempo),
	}
}

// widen converts a float32 to the float64 with the same shortest decimal
// representation, so 0.65 from the API compares equal to a 0.65 bound.
func widen(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}

// trackAttributes builds the target and bound parameters for a query.
func trackAttributes(q recommend.RecommendationQuery) *spotify.TrackAttributes {
	attrs := spotify.NewTrackAttributes().
		TargetValence(q.Targets.Valence).
		TargetEnergy(q.Targets.Energy).
		TargetTempo(q.Targets.Tempo)

	b := q.Bounds
	if b.MinValence.Set {
		attrs = attrs.MinValence(b.MinValence.Value)
	}
	if b.MaxValence.Set {
		attrs = attrs.MaxValence(b.MaxValence.Value)
	}
	if b.MinEnergy.Set {
		attrs = attrs.MinEnergy(b.MinEnergy.Value)
	}
	if b.MaxEnergy.Set {
		attrs = attrs.MaxEnergy(b.MaxEnergy.Value)
	}
	return attrs
}
