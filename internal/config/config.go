// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultAddr              = "127.0.0.1:5000"
	DefaultUploadDir         = "uploads"
	DefaultMaxUploadMB       = 16
	DefaultMarket            = "IN"
	DefaultCatalogRPS        = 10.0
	DefaultVerifyConcurrency = 1
	DefaultLogLevel          = "info"
)

// Config holds all runtime settings.
type Config struct {
	SpotifyID     string
	SpotifySecret string

	Addr        string
	UploadDir   string
	MaxUploadMB int

	Market            string
	CatalogRPS        float64
	VerifyConcurrency int

	DatabaseURL      string
	FeatureCachePath string

	LogLevel string
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Load reads the given .env files (".env" when none are named) into the
// environment without overriding variables that are already set, then
// builds a Config. Missing .env files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (*Config, error) {
	c := &Config{
		SpotifyID:        os.Getenv("SPOTIFY_ID"),
		SpotifySecret:    os.Getenv("SPOTIFY_SECRET"),
		Addr:             stringEnv("MOOD_TUNES_ADDR", DefaultAddr),
		UploadDir:        stringEnv("UPLOAD_DIR", DefaultUploadDir),
		Market:           strings.ToUpper(stringEnv("CATALOG_MARKET", DefaultMarket)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		FeatureCachePath: os.Getenv("FEATURE_CACHE_PATH"),
		LogLevel:         strings.ToLower(stringEnv("LOG_LEVEL", DefaultLogLevel)),
	}

	var err error
	if c.MaxUploadMB, err = intEnv("MAX_UPLOAD_MB", DefaultMaxUploadMB); err != nil {
		return nil, err
	}
	if c.CatalogRPS, err = floatEnv("CATALOG_RPS", DefaultCatalogRPS); err != nil {
		return nil, err
	}
	if c.VerifyConcurrency, err = intEnv("VERIFY_CONCURRENCY", DefaultVerifyConcurrency); err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch {
	case c.MaxUploadMB <= 0:
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	case c.CatalogRPS < 0:
		return fmt.Errorf("CATALOG_RPS must not be negative, got %v", c.CatalogRPS)
	case c.VerifyConcurrency <= 0:
		return fmt.Errorf("VERIFY_CONCURRENCY must be positive, got %d", c.VerifyConcurrency)
	}
	return nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return f, nil
}
