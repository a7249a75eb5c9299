package config

import (
	"os"
	"path/filepath"
	"testing"
)

var allKeys = []string{
	"SPOTIFY_ID", "SPOTIFY_SECRET", "MOOD_TUNES_ADDR", "UPLOAD_DIR", "MAX_UPLOAD_MB",
	"CATALOG_MARKET", "CATALOG_RPS", "VERIFY_CONCURRENCY", "DATABASE_URL",
	"FEATURE_CACHE_PATH", "LOG_LEVEL",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if c.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", c.Addr, DefaultAddr)
	}
	if c.UploadDir != DefaultUploadDir {
		t.Errorf("UploadDir = %q, want %q", c.UploadDir, DefaultUploadDir)
	}
	if c.MaxUploadBytes() != 16<<20 {
		t.Errorf("MaxUploadBytes() = %d, want %d", c.MaxUploadBytes(), 16<<20)
	}
	if c.Market != "IN" {
		t.Errorf("Market = %q, want IN", c.Market)
	}
	if c.CatalogRPS != DefaultCatalogRPS {
		t.Errorf("CatalogRPS = %v, want %v", c.CatalogRPS, DefaultCatalogRPS)
	}
	if c.VerifyConcurrency != 1 {
		t.Errorf("VerifyConcurrency = %d, want 1", c.VerifyConcurrency)
	}
	if c.DatabaseURL != "" || c.FeatureCachePath != "" {
		t.Error("cache settings should default to empty")
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", c.LogLevel)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_ID", "id")
	t.Setenv("SPOTIFY_SECRET", "secret")
	t.Setenv("MOOD_TUNES_ADDR", ":8080")
	t.Setenv("MAX_UPLOAD_MB", "4")
	t.Setenv("CATALOG_MARKET", "us")
	t.Setenv("CATALOG_RPS", "2.5")
	t.Setenv("VERIFY_CONCURRENCY", "4")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if c.SpotifyID != "id" || c.SpotifySecret != "secret" {
		t.Errorf("credentials = %q/%q", c.SpotifyID, c.SpotifySecret)
	}
	if c.Addr != ":8080" {
		t.Errorf("Addr = %q", c.Addr)
	}
	if c.MaxUploadBytes() != 4<<20 {
		t.Errorf("MaxUploadBytes() = %d", c.MaxUploadBytes())
	}
	if c.Market != "US" {
		t.Errorf("Market = %q, want US", c.Market)
	}
	if c.CatalogRPS != 2.5 {
		t.Errorf("CatalogRPS = %v", c.CatalogRPS)
	}
	if c.VerifyConcurrency != 4 {
		t.Errorf("VerifyConcurrency = %d", c.VerifyConcurrency)
	}
	if c.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", c.LogLevel)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"MAX_UPLOAD_MB", "lots"},
		{"MAX_UPLOAD_MB", "0"},
		{"CATALOG_RPS", "fast"},
		{"CATALOG_RPS", "-1"},
		{"VERIFY_CONCURRENCY", "0"},
		{"VERIFY_CONCURRENCY", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := FromEnv(); err == nil {
				t.Errorf("FromEnv() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPLOAD_DIR", "/from/environment")

	path := filepath.Join(t.TempDir(), ".env")
	content := "SPOTIFY_ID=file-id\nUPLOAD_DIR=/from/file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.SpotifyID != "file-id" {
		t.Errorf("SpotifyID = %q, want file-id", c.SpotifyID)
	}
	if c.UploadDir != "/from/environment" {
		t.Errorf("UploadDir = %q, environment should win over .env", c.UploadDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Load() error = %v, want nil for missing file", err)
	}
}
