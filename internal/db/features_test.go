package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// testDB connects to TEST_DATABASE_URL, skipping the test when it is unset.
func testDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(database.Close)

	if err := database.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if _, err := database.pool.Exec(ctx, `DELETE FROM track_features WHERE track_id LIKE 'test-%'`); err != nil {
		t.Fatalf("cleaning table: %v", err)
	}
	return database
}

func TestFeatureRepository_UpsertAndGet(t *testing.T) {
	repo := testDB(t).Features()
	ctx := context.Background()

	if _, err := repo.Get(ctx, "test-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	in := &TrackFeatures{TrackID: "test-1", Available: true, Valence: 0.65, Energy: 0.4, Tempo: 96}
	if err := repo.Upsert(ctx, in); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.Get(ctx, "test-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Available || got.Valence != 0.65 || got.Energy != 0.4 || got.Tempo != 96 {
		t.Errorf("Get() = %+v", got)
	}
	if got.FetchedAt.IsZero() {
		t.Error("FetchedAt should default to now")
	}

	// Second upsert replaces the row.
	if err := repo.Upsert(ctx, &TrackFeatures{TrackID: "test-1", Available: false}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, err = repo.Get(ctx, "test-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Available {
		t.Error("Available = true after overwrite, want false")
	}
}

func TestFeatureRepository_GetManyAndDeleteStale(t *testing.T) {
	repo := testDB(t).Features()
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	rows := []*TrackFeatures{
		{TrackID: "test-a", Available: true, Valence: 0.1, FetchedAt: old},
		{TrackID: "test-b", Available: true, Valence: 0.2},
	}
	for _, f := range rows {
		if err := repo.Upsert(ctx, f); err != nil {
			t.Fatalf("Upsert(%s) error = %v", f.TrackID, err)
		}
	}

	got, err := repo.GetMany(ctx, []string{"test-a", "test-b", "test-c"})
	if err != nil {
		t.Fatalf("GetMany() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetMany() returned %d rows, want 2", len(got))
	}

	removed, err := repo.DeleteStale(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteStale() error = %v", err)
	}
	if removed < 1 {
		t.Errorf("DeleteStale() removed %d rows, want at least 1", removed)
	}
	if _, err := repo.Get(ctx, "test-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale row still present: %v", err)
	}
}
