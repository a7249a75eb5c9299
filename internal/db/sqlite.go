package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS track_features (
		track_id   TEXT PRIMARY KEY,
		available  INTEGER NOT NULL,
		valence    REAL NOT NULL DEFAULT 0,
		energy     REAL NOT NULL DEFAULT 0,
		tempo      REAL NOT NULL DEFAULT 0,
		fetched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS track_features_fetched_at_idx ON track_features (fetched_at);
`

// sqliteMaxParams stays below SQLite's default host parameter limit.
const sqliteMaxParams = 500

// SQLiteFeatures is a file-backed feature cache for single-machine use.
// It offers the same operations as FeatureRepository.
type SQLiteFeatures struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a feature cache at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteFeatures, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLiteFeatures{db: conn}, nil
}

// Close closes the underlying database.
func (s *SQLiteFeatures) Close() error {
	return s.db.Close()
}

// Get retrieves the cached features for a track.
// Returns ErrNotFound if the track has never been cached.
func (s *SQLiteFeatures) Get(ctx context.Context, trackID string) (*TrackFeatures, error) {
	query := `
		SELECT track_id, available, valence, energy, tempo, fetched_at
		FROM track_features
		WHERE track_id = ?
	`
	var (
		f         TrackFeatures
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx, query, trackID).Scan(
		&f.TrackID,
		&f.Available,
		&f.Valence,
		&f.Energy,
		&f.Tempo,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying track features: %w", err)
	}
	f.FetchedAt = time.Unix(0, fetchedAt)
	return &f, nil
}

// GetMany retrieves cached features for multiple tracks, keyed by track ID.
// Tracks that were never cached are absent from the map.
func (s *SQLiteFeatures) GetMany(ctx context.Context, trackIDs []string) (map[string]*TrackFeatures, error) {
	result := make(map[string]*TrackFeatures, len(trackIDs))

	for start := 0; start < len(trackIDs); start += sqliteMaxParams {
		end := min(start+sqliteMaxParams, len(trackIDs))
		chunk := trackIDs[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := `
			SELECT track_id, available, valence, energy, tempo, fetched_at
			FROM track_features
			WHERE track_id IN (?` + strings.Repeat(",?", len(chunk)-1) + `)`

		if err := s.scanInto(ctx, result, query, args); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *SQLiteFeatures) scanInto(ctx context.Context, result map[string]*TrackFeatures, query string, args []any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying track features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f         TrackFeatures
			fetchedAt int64
		)
		if err := rows.Scan(&f.TrackID, &f.Available, &f.Valence, &f.Energy, &f.Tempo, &fetchedAt); err != nil {
			return fmt.Errorf("scanning track features: %w", err)
		}
		f.FetchedAt = time.Unix(0, fetchedAt)
		result[f.TrackID] = &f
	}
	return rows.Err()
}

// Upsert inserts or refreshes the cached features for a track.
func (s *SQLiteFeatures) Upsert(ctx context.Context, f *TrackFeatures) error {
	query := `
		INSERT INTO track_features (track_id, available, valence, energy, tempo, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (track_id) DO UPDATE SET
			available = excluded.available,
			valence = excluded.valence,
			energy = excluded.energy,
			tempo = excluded.tempo,
			fetched_at = excluded.fetched_at
	`
	fetchedAt := f.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query, f.TrackID, f.Available, f.Valence, f.Energy, f.Tempo, fetchedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upserting track features: %w", err)
	}
	return nil
}

// DeleteStale removes entries fetched before the given time.
func (s *SQLiteFeatures) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM track_features WHERE fetched_at < ?`, olderThan.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("deleting stale track features: %w", err)
	}
	return res.RowsAffected()
}
