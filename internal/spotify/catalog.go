package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/go-mood-tunes/internal/recommend"
)

// Search returns tracks matching a free-text query in the given market.
func (c *Client) Search(ctx context.Context, query string, limit int, market string) ([]recommend.Track, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	opts := []spotify.RequestOption{spotify.Limit(limit)}
	if market != "" {
		opts = append(opts, spotify.Market(market))
	}

	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, opts...)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("searching %q", query), err)
	}
	if result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]recommend.Track, 0, len(result.Tracks.Tracks))
	for _, ft := range result.Tracks.Tracks {
		tracks = append(tracks, convertFullTrack(ft))
	}
	return tracks, nil
}

// AudioFeatures returns the catalog's features for a single track.
// Returns nil without error when Spotify has no features for it.
func (c *Client) AudioFeatures(ctx context.Context, trackID string) (*recommend.TrackFeatures, error) {
	features, err := c.AudioFeaturesBatch(ctx, []string{trackID})
	if err != nil {
		return nil, err
	}
	return features[trackID], nil
}

// AudioFeaturesBatch retrieves features for many tracks.
// Batches requests to max 100 tracks per request per Spotify API limits.
// Tracks without available features are absent from the map.
func (c *Client) AudioFeaturesBatch(ctx context.Context, trackIDs []string) (map[string]*recommend.TrackFeatures, error) {
	result := make(map[string]*recommend.TrackFeatures, len(trackIDs))
	if len(trackIDs) == 0 {
		return result, nil
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	total := len(ids)
	for i := 0; i < total; i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, total)
		batch := ids[i:end]

		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		features, err := c.api.GetAudioFeatures(ctx, batch...)
		if err != nil {
			return nil, unavailable(fmt.Sprintf("fetching audio features (batch %d-%d)", i+1, end), err)
		}

		for _, f := range features {
			if f == nil {
				continue // Track has no audio features
			}
			result[f.ID.String()] = convertAudioFeatures(f)
		}
	}

	return result, nil
}

// Recommendations asks Spotify for tracks similar to the seeds, steered by
// the query's targets and bounded by its criteria.
func (c *Client) Recommendations(ctx context.Context, q recommend.RecommendationQuery) ([]recommend.Track, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	seeds := spotify.Seeds{Tracks: make([]spotify.ID, len(q.SeedTrackIDs))}
	for i, id := range q.SeedTrackIDs {
		seeds.Tracks[i] = spotify.ID(id)
	}

	var opts []spotify.RequestOption
	if q.Limit > 0 {
		opts = append(opts, spotify.Limit(q.Limit))
	}

	recs, err := c.api.GetRecommendations(ctx, seeds, trackAttributes(q), opts...)
	if err != nil {
		return nil, unavailable("getting recommendations", err)
	}

	tracks := make([]recommend.Track, 0, len(recs.Tracks))
	for _, st := range recs.Tracks {
		tracks = append(tracks, convertSimpleTrack(st))
	}
	return tracks, nil
}
