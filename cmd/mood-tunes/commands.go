package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/go-mood-tunes/internal/catalogcache"
	"github.com/justestif/go-mood-tunes/internal/features"
	"github.com/justestif/go-mood-tunes/internal/mood"
	"github.com/justestif/go-mood-tunes/internal/recommend"
	"github.com/justestif/go-mood-tunes/internal/remix"
	"github.com/justestif/go-mood-tunes/internal/storage"
	"github.com/justestif/go-mood-tunes/internal/web"
)

func cmdServe(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = a.cfg.Addr
			}

			catalog, closeCatalog, err := buildCatalog(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeCatalog()

			store, err := storage.New(a.cfg.UploadDir, storage.WithMaxSize(a.cfg.MaxUploadBytes()))
			if err != nil {
				return err
			}

			handlers := web.NewHandlers(
				features.NewExtractor(features.DefaultConfig()),
				newEngine(catalog, a),
				remix.New(),
				store,
				web.WithLogger(a.logger),
				web.WithMaxUpload(a.cfg.MaxUploadBytes()),
			)

			server, err := web.NewServer(web.ServerConfig{
				Addr:     addr,
				Handlers: handlers,
				Logger:   a.logger,
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			a.logger.Info("uploads stored", zap.String("dir", store.Dir()))
			return server.Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from MOOD_TUNES_ADDR)")
	return cmd
}

// analyzeOutput mirrors the analyze endpoint's response body.
type analyzeOutput struct {
	Mood        mood.Mood              `json:"mood"`
	Confidence  float64                `json:"confidence"`
	Description string                 `json:"description"`
	Score       mood.Score             `json:"audio_features"`
	Features    features.AudioFeatures `json:"features"`
}

func cmdAnalyze(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Detect the mood of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extractor := features.NewExtractor(features.DefaultConfig())

			start := time.Now()
			f, err := extractor.ExtractFile(args[0])
			if err != nil {
				return fmt.Errorf("analyzing %s: %w", args[0], err)
			}
			a.logger.Debug("features extracted", zap.Duration("duration", time.Since(start)))

			score := mood.Estimate(f)
			c := mood.Classify(score)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analyzeOutput{
				Mood:        c.Mood,
				Confidence:  c.Confidence,
				Description: mood.Description(c.Mood),
				Score:       score,
				Features:    f,
			})
		},
	}
}

func cmdRecommend(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <mood>",
		Short: "Find catalog tracks for Happy, Sad, Energetic or Calm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			asJSON, _ := cmd.Flags().GetBool("json")

			m, ok := mood.Lookup(args[0])
			if !ok {
				a.logger.Warn("unknown mood, using default", zap.String("mood", args[0]), zap.String("default", mood.Default.String()))
				m = mood.Default
			}

			catalog, closeCatalog, err := buildCatalog(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer closeCatalog()

			result, err := newEngine(catalog, a).Recommend(ctx, m)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprint(cmd.OutOrStdout(), recommend.FormatSummary(result))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
	return cmd
}

func cmdCache(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the catalog feature cache",
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached features older than the cache TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			older, _ := cmd.Flags().GetDuration("older-than")

			store, closeStore, err := openFeatureStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no feature cache configured: set DATABASE_URL or FEATURE_CACHE_PATH")
			}
			defer closeStore()

			removed, err := store.DeleteStale(ctx, time.Now().Add(-older))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached entries\n", removed)
			return nil
		},
	}
	prune.Flags().Duration("older-than", catalogcache.CacheTTL, "Remove entries fetched before this long ago")

	cmd.AddCommand(prune)
	return cmd
}

func cmdAuth(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the cached Spotify app token",
	}

	login := &cobra.Command{
		Use:   "login",
		Short: "Request an app token and cache it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authenticator, tokens, err := newAuthenticator(a.cfg)
			if err != nil {
				return err
			}
			token, err := authenticator.Token(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token cached at %s (expires %s)\n",
				tokens.Path(), token.Expiry.Format(time.RFC3339))
			return nil
		},
	}

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached app token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authenticator, tokens, err := newAuthenticator(a.cfg)
			if err != nil {
				return err
			}
			if err := authenticator.Logout(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cached token at %s\n", tokens.Path())
			return nil
		},
	}

	cmd.AddCommand(login, logout)
	return cmd
}
