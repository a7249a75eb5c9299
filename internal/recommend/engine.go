package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/justestif/go-mood-tunes/internal/mood"
)

const (
	// SearchLimit is the number of results requested per search query.
	SearchLimit = 20
	// MaxResults caps both the verified list and the final list.
	MaxResults = 20
	// MinVerified is the verified count at which no fallback is attempted.
	MinVerified = 15
	// MaxSeeds is the number of seed tracks passed to the recommendations call.
	MaxSeeds = 5

	// DefaultMarket is the catalog market searched by default.
	DefaultMarket = "IN"
	// DefaultConcurrency verifies one candidate at a time.
	DefaultConcurrency = 1
)

var errNoSeeds = errors.New("no seed tracks available")

// Engine runs the search, verify and fallback pipeline. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	catalog     Catalog
	market      string
	concurrency int
	logger      *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMarket sets the catalog market used for searches.
func WithMarket(market string) Option {
	return func(e *Engine) {
		if market != "" {
			e.market = market
		}
	}
}

// WithConcurrency sets how many feature lookups run at once during
// verification. Acceptance order is unaffected.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger used for pipeline progress.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine on top of a catalog.
func NewEngine(catalog Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:     catalog,
		market:      DefaultMarket,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend returns up to MaxResults tracks matching m. Unknown moods are
// treated as Calm. Catalog failures are absorbed; the only error returned
// besides context cancellation is ErrNoResults.
func (e *Engine) Recommend(ctx context.Context, m mood.Mood) (*Result, error) {
	m = mood.Parse(string(m))
	queries := mood.SearchQueries(m)
	criteria := mood.CriteriaFor(m)
	log := e.logger.With(zap.String("mood", m.String()))

	result := &Result{Mood: m}

	pool := e.search(ctx, queries, log)
	result.Stats.Candidates = len(pool)
	log.Info("search complete", zap.Int("candidates", len(pool)))

	if p, ok := e.catalog.(Prefetcher); ok && len(pool) > 0 {
		p.PrefetchFeatures(ctx, trackIDs(dedupe(pool)))
	}

	accepted := e.verify(ctx, pool, criteria, &result.Stats, log)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Info("verification complete",
		zap.Int("checked", result.Stats.Checked),
		zap.Int("accepted", result.Stats.Accepted),
		zap.Int("rejected", result.Stats.Rejected),
	)

	switch {
	case len(accepted) >= MinVerified:
		result.Tracks = truncate(accepted, MaxResults)
		result.Stats.Strategy = StrategyVerified

	default:
		log.Info("not enough verified tracks, asking catalog for recommendations",
			zap.Int("accepted", len(accepted)))

		recs, err := e.fallback(ctx, m, queries, accepted)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("recommendations failed, using what we have", zap.Error(err))
			result.Stats.Strategy = StrategyDegraded
			if len(accepted) > 0 {
				result.Tracks = truncate(accepted, MaxResults)
			} else {
				result.Tracks = truncate(dedupe(pool), MaxResults)
			}
			break
		}

		result.Stats.Strategy = StrategyMerged
		merged := make([]Track, 0, len(accepted)+len(recs))
		merged = append(merged, accepted...)
		merged = append(merged, recs...)
		result.Tracks = truncate(dedupe(merged), MaxResults)
	}

	if len(result.Tracks) == 0 {
		return nil, fmt.Errorf("recommending %s tracks: %w", m, ErrNoResults)
	}

	log.Info("recommendations ready",
		zap.Int("tracks", len(result.Tracks)),
		zap.String("strategy", string(result.Stats.Strategy)),
	)
	return result, nil
}

// search runs every query and concatenates results in query order.
// Failed queries contribute nothing.
func (e *Engine) search(ctx context.Context, queries []string, log *zap.Logger) []Track {
	var pool []Track
	for _, q := range queries {
		tracks, err := e.catalog.Search(ctx, q, SearchLimit, e.market)
		if err != nil {
			log.Warn("search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		log.Debug("search", zap.String("query", q), zap.Int("found", len(tracks)))
		pool = append(pool, tracks...)
	}
	return pool
}

// featureLookup is the outcome of fetching features for one candidate.
type featureLookup struct {
	features *TrackFeatures
	err      error
}

// verify walks the pool in order, accepting candidates whose catalog
// features satisfy criteria, until MaxResults are accepted. Candidates
// already accepted are skipped; missing or failed lookups are rejections.
func (e *Engine) verify(ctx context.Context, pool []Track, criteria mood.Criteria, stats *Stats, log *zap.Logger) []Track {
	accepted := make([]Track, 0, MaxResults)
	acceptedIDs := make(map[string]bool, MaxResults)

	for start := 0; start < len(pool) && len(accepted) < MaxResults; {
		if ctx.Err() != nil {
			return accepted
		}

		end := min(start+e.concurrency, len(pool))
		window := pool[start:end]
		lookups := e.lookupFeatures(ctx, window, acceptedIDs)

		for i, track := range window {
			if len(accepted) >= MaxResults {
				break
			}
			if acceptedIDs[track.ID] {
				continue
			}

			stats.Checked++
			l := lookups[i]

			switch {
			case l.err != nil:
				stats.Rejected++
				log.Debug("feature lookup failed", zap.String("track", track.Name), zap.Error(l.err))
			case l.features == nil:
				stats.Rejected++
				log.Debug("no features", zap.String("track", track.Name))
			case criteria.Accepts(l.features.Valence, l.features.Energy):
				accepted = append(accepted, track)
				acceptedIDs[track.ID] = true
				stats.Accepted++
				log.Debug("accepted",
					zap.String("track", track.Name),
					zap.Float64("valence", l.features.Valence),
					zap.Float64("energy", l.features.Energy),
					zap.Float64("tempo", l.features.Tempo),
				)
			default:
				stats.Rejected++
				log.Debug("rejected",
					zap.String("track", track.Name),
					zap.Float64("valence", l.features.Valence),
					zap.Float64("energy", l.features.Energy),
				)
			}
		}
		start = end
	}
	return accepted
}

// lookupFeatures fetches features for every window entry not already
// accepted. Results are positional.
func (e *Engine) lookupFeatures(ctx context.Context, window []Track, acceptedIDs map[string]bool) []featureLookup {
	results := make([]featureLookup, len(window))

	if len(window) == 1 {
		if !acceptedIDs[window[0].ID] {
			f, err := e.catalog.AudioFeatures(ctx, window[0].ID)
			results[0] = featureLookup{features: f, err: err}
		}
		return results
	}

	// Duplicates inside a window share one lookup.
	first := make(map[string]int, len(window))
	var wg sync.WaitGroup
	for i, t := range window {
		if acceptedIDs[t.ID] {
			continue
		}
		if _, dup := first[t.ID]; dup {
			continue
		}
		first[t.ID] = i

		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			f, err := e.catalog.AudioFeatures(ctx, id)
			results[i] = featureLookup{features: f, err: err}
		}(i, t.ID)
	}
	wg.Wait()

	for i, t := range window {
		if j, ok := first[t.ID]; ok && j != i {
			results[i] = results[j]
		}
	}
	return results
}

// fallback asks the catalog for recommendations seeded from accepted
// tracks, or from a fresh search when nothing was accepted.
func (e *Engine) fallback(ctx context.Context, m mood.Mood, queries []string, accepted []Track) ([]Track, error) {
	seeds, err := e.seeds(ctx, queries, accepted)
	if err != nil {
		return nil, fmt.Errorf("finding seed tracks: %w", err)
	}
	if len(seeds) == 0 {
		return nil, errNoSeeds
	}

	tracks, err := e.catalog.Recommendations(ctx, RecommendationQuery{
		SeedTrackIDs: seeds,
		Targets:      mood.Targets(m),
		Bounds:       mood.CriteriaFor(m),
		Limit:        MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("getting recommendations: %w", err)
	}
	return tracks, nil
}

func (e *Engine) seeds(ctx context.Context, queries []string, accepted []Track) ([]string, error) {
	source := accepted
	if len(source) == 0 {
		if len(queries) == 0 {
			return nil, nil
		}
		found, err := e.catalog.Search(ctx, queries[0], MaxSeeds, e.market)
		if err != nil {
			return nil, err
		}
		source = found
	}

	return trackIDs(truncate(source, MaxSeeds)), nil
}

// dedupe keeps the first occurrence of each track ID, preserving order.
func dedupe(tracks []Track) []Track {
	seen := make(map[string]bool, len(tracks))
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

func trackIDs(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func truncate(tracks []Track, n int) []Track {
	if len(tracks) > n {
		return tracks[:n]
	}
	return tracks
}
