package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/go-mood-tunes/internal/auth"
	"github.com/justestif/go-mood-tunes/internal/catalogcache"
	"github.com/justestif/go-mood-tunes/internal/config"
	"github.com/justestif/go-mood-tunes/internal/db"
	"github.com/justestif/go-mood-tunes/internal/recommend"
	"github.com/justestif/go-mood-tunes/internal/spotify"
)

var _ catalogcache.BatchCatalog = (*spotify.Client)(nil)

// newAuthenticator returns an Authenticator backed by the default token cache.
func newAuthenticator(cfg *config.Config) (*auth.Authenticator, *auth.TokenCache, error) {
	tokens, err := auth.DefaultTokenCache()
	if err != nil {
		return nil, nil, err
	}
	authenticator, err := auth.New(cfg.SpotifyID, cfg.SpotifySecret, auth.WithTokenCache(tokens))
	if err != nil {
		return nil, nil, err
	}
	return authenticator, tokens, nil
}

// featureStore is a cache backend that can also be pruned.
type featureStore interface {
	catalogcache.Store
	DeleteStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// openFeatureStore opens the configured cache backend. Postgres wins over
// SQLite; both unset returns a nil store.
func openFeatureStore(ctx context.Context, cfg *config.Config) (featureStore, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			return nil, nil, err
		}
		return database.Features(), database.Close, nil

	case cfg.FeatureCachePath != "":
		lite, err := db.OpenSQLite(ctx, cfg.FeatureCachePath)
		if err != nil {
			return nil, nil, err
		}
		return lite, func() { _ = lite.Close() }, nil
	}
	return nil, func() {}, nil
}

// buildCatalog authenticates against Spotify and returns the catalog the
// engine should use, wrapped in the feature cache when one is configured.
func buildCatalog(ctx context.Context, cfg *config.Config, log *zap.Logger) (recommend.Catalog, func(), error) {
	authenticator, _, err := newAuthenticator(cfg)
	if err != nil {
		return nil, nil, err
	}

	api, err := authenticator.Authenticate(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("authenticating: %w", err)
	}

	burst := int(math.Ceil(cfg.CatalogRPS))
	var catalog recommend.Catalog = spotify.New(api, spotify.WithRateLimit(cfg.CatalogRPS, burst))

	store, closeStore, err := openFeatureStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		pruned, err := store.DeleteStale(ctx, time.Now().Add(-catalogcache.CacheTTL))
		if err != nil {
			log.Warn("pruning feature cache", zap.Error(err))
		} else if pruned > 0 {
			log.Info("pruned feature cache", zap.Int64("removed", pruned))
		}
		catalog = catalogcache.New(catalog, store, catalogcache.WithLogger(log))
	}

	return catalog, closeStore, nil
}

func newEngine(catalog recommend.Catalog, a *app) *recommend.Engine {
	return recommend.NewEngine(catalog,
		recommend.WithMarket(a.cfg.Market),
		recommend.WithConcurrency(a.cfg.VerifyConcurrency),
		recommend.WithLogger(a.logger),
	)
}
