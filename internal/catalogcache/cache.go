// Package catalogcache persists catalog audio features so repeated
// recommendation runs do not refetch them.
package catalogcache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-mood-tunes/internal/db"
	"github.com/justestif/go-mood-tunes/internal/recommend"
)

// CacheTTL is the duration after which cached features are considered stale.
const CacheTTL = 30 * 24 * time.Hour // 30 days

// Store is the persistence the cache needs. *db.FeatureRepository and
// *db.SQLiteFeatures implement it.
type Store interface {
	Get(ctx context.Context, trackID string) (*db.TrackFeatures, error)
	GetMany(ctx context.Context, trackIDs []string) (map[string]*db.TrackFeatures, error)
	Upsert(ctx context.Context, f *db.TrackFeatures) error
}

// BatchCatalog is implemented by catalogs that look up features for many
// tracks per request. Tracks without features are absent from the map.
type BatchCatalog interface {
	AudioFeaturesBatch(ctx context.Context, trackIDs []string) (map[string]*recommend.TrackFeatures, error)
}

// CachedCatalog implements recommend.Catalog with database persistence.
// It checks the store first, then falls back to the wrapped catalog for
// misses and stale entries, persisting new results. Search and
// recommendations are passed through.
type CachedCatalog struct {
	catalog recommend.Catalog
	store   Store
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

var (
	_ recommend.Catalog    = (*CachedCatalog)(nil)
	_ recommend.Prefetcher = (*CachedCatalog)(nil)
)

// Option configures a CachedCatalog.
type Option func(*CachedCatalog)

// WithTTL overrides CacheTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedCatalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *CachedCatalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps catalog with a feature cache backed by store.
func New(catalog recommend.Catalog, store Store, opts ...Option) *CachedCatalog {
	c := &CachedCatalog{
		catalog: catalog,
		store:   store,
		ttl:     CacheTTL,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search passes through to the wrapped catalog.
func (c *CachedCatalog) Search(ctx context.Context, query string, limit int, market string) ([]recommend.Track, error) {
	return c.catalog.Search(ctx, query, limit, market)
}

// Recommendations passes through to the wrapped catalog.
func (c *CachedCatalog) Recommendations(ctx context.Context, q recommend.RecommendationQuery) ([]recommend.Track, error) {
	return c.catalog.Recommendations(ctx, q)
}

// AudioFeatures returns cached features when fresh, otherwise fetches and
// caches them. A track with no catalog features is cached as unavailable.
// Catalog errors are returned as-is and never cached.
func (c *CachedCatalog) AudioFeatures(ctx context.Context, trackID string) (*recommend.TrackFeatures, error) {
	cached, err := c.store.Get(ctx, trackID)
	switch {
	case err == nil && c.fresh(cached):
		return toFeatures(cached), nil
	case err != nil && !errors.Is(err, db.ErrNotFound):
		// Store outages degrade to uncached lookups.
		c.logger.Warn("reading feature cache", zap.String("track_id", trackID), zap.Error(err))
	}

	features, err := c.catalog.AudioFeatures(ctx, trackID)
	if err != nil {
		return nil, err
	}

	if err := c.store.Upsert(ctx, fromFeatures(trackID, features, c.now())); err != nil {
		c.logger.Warn("writing feature cache", zap.String("track_id", trackID), zap.Error(err))
	}
	return features, nil
}

// PrefetchFeatures fills the store for every track that has no fresh entry,
// using one batched catalog request per chunk when the wrapped catalog
// supports it. Failures are logged and leave the per-track path to retry.
func (c *CachedCatalog) PrefetchFeatures(ctx context.Context, trackIDs []string) {
	batch, ok := c.catalog.(BatchCatalog)
	if !ok || len(trackIDs) == 0 {
		return
	}

	cached, err := c.store.GetMany(ctx, trackIDs)
	if err != nil {
		c.logger.Warn("reading feature cache", zap.Int("tracks", len(trackIDs)), zap.Error(err))
		cached = nil
	}

	seen := make(map[string]bool, len(trackIDs))
	var missing []string
	for _, id := range trackIDs {
		if seen[id] || c.fresh(cached[id]) {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return
	}

	fetched, err := batch.AudioFeaturesBatch(ctx, missing)
	if err != nil {
		c.logger.Warn("prefetching features", zap.Int("tracks", len(missing)), zap.Error(err))
		return
	}

	now := c.now()
	for _, id := range missing {
		if err := c.store.Upsert(ctx, fromFeatures(id, fetched[id], now)); err != nil {
			c.logger.Warn("writing feature cache", zap.String("track_id", id), zap.Error(err))
			return
		}
	}
	c.logger.Debug("prefetched features",
		zap.Int("requested", len(trackIDs)),
		zap.Int("fetched", len(missing)),
	)
}

// fresh reports whether a cached entry is younger than the TTL (lazy invalidation).
func (c *CachedCatalog) fresh(f *db.TrackFeatures) bool {
	return f != nil && f.FetchedAt.After(c.now().Add(-c.ttl))
}

func toFeatures(f *db.TrackFeatures) *recommend.TrackFeatures {
	if !f.Available {
		return nil
	}
	return &recommend.TrackFeatures{
		Valence: f.Valence,
		Energy:  f.Energy,
		Tempo:   f.Tempo,
	}
}

func fromFeatures(trackID string, f *recommend.TrackFeatures, fetchedAt time.Time) *db.TrackFeatures {
	row := &db.TrackFeatures{TrackID: trackID, FetchedAt: fetchedAt}
	if f != nil {
		row.Available = true
		row.Valence = f.Valence
		row.Energy = f.Energy
		row.Tempo = f.Tempo
	}
	return row
}
