package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeatureRepository handles cached catalog feature operations.
type FeatureRepository struct {
	pool *pgxpool.Pool
}

// Get retrieves the cached features for a track.
// Returns ErrNotFound if the track has never been cached.
func (r *FeatureRepository) Get(ctx context.Context, trackID string) (*TrackFeatures, error) {
	query := `
		SELECT track_id, available, valence, energy, tempo, fetched_at
		FROM track_features
		WHERE track_id = $1
	`
	var f TrackFeatures
	err := r.pool.QueryRow(ctx, query, trackID).Scan(
		&f.TrackID,
		&f.Available,
		&f.Valence,
		&f.Energy,
		&f.Tempo,
		&f.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying track features: %w", err)
	}
	return &f, nil
}

// GetMany retrieves cached features for multiple tracks, keyed by track ID.
// Tracks that were never cached are absent from the map.
func (r *FeatureRepository) GetMany(ctx context.Context, trackIDs []string) (map[string]*TrackFeatures, error) {
	result := make(map[string]*TrackFeatures, len(trackIDs))
	if len(trackIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT track_id, available, valence, energy, tempo, fetched_at
		FROM track_features
		WHERE track_id = ANY($1)
	`
	rows, err := r.pool.Query(ctx, query, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("querying track features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f TrackFeatures
		if err := rows.Scan(
			&f.TrackID,
			&f.Available,
			&f.Valence,
			&f.Energy,
			&f.Tempo,
			&f.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning track features: %w", err)
		}
		result[f.TrackID] = &f
	}
	return result, rows.Err()
}

// Upsert inserts or refreshes the cached features for a track.
func (r *FeatureRepository) Upsert(ctx context.Context, f *TrackFeatures) error {
	query := `
		INSERT INTO track_features (track_id, available, valence, energy, tempo, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (track_id) DO UPDATE SET
			available = EXCLUDED.available,
			valence = EXCLUDED.valence,
			energy = EXCLUDED.energy,
			tempo = EXCLUDED.tempo,
			fetched_at = EXCLUDED.fetched_at
	`
	fetchedAt := f.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, query, f.TrackID, f.Available, f.Valence, f.Energy, f.Tempo, fetchedAt)
	if err != nil {
		return fmt.Errorf("upserting track features: %w", err)
	}
	return nil
}

// DeleteStale removes entries fetched before the given time.
// Returns the number of rows removed.
func (r *FeatureRepository) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM track_features WHERE fetched_at < $1`
	tag, err := r.pool.Exec(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("deleting stale track features: %w", err)
	}
	return tag.RowsAffected(), nil
}
