package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestTokenCache_SaveAndLoad(t *testing.T) {
	tests := []struct {
		name  string
		token *oauth2.Token
	}{
		{
			name: "basic token",
			token: &oauth2.Token{
				AccessToken: "test-access-token",
				TokenType:   "Bearer",
				Expiry:      time.Now().Add(time.Hour),
			},
		},
		{
			name: "token without expiry",
			token: &oauth2.Token{
				AccessToken: "access-only",
				TokenType:   "Bearer",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

			if err := cache.Save("client", tt.token); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := cache.Load("client")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if loaded == nil {
				t.Fatal("Load() returned nil token")
			}
			if loaded.AccessToken != tt.token.AccessToken {
				t.Errorf("AccessToken = %q, want %q", loaded.AccessToken, tt.token.AccessToken)
			}
			if loaded.TokenType != tt.token.TokenType {
				t.Errorf("TokenType = %q, want %q", loaded.TokenType, tt.token.TokenType)
			}
			if !loaded.Expiry.Equal(tt.token.Expiry) {
				t.Errorf("Expiry = %v, want %v", loaded.Expiry, tt.token.Expiry)
			}
		})
	}
}

func TestTokenCache_LoadOtherClient(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))
	if err := cache.Save("client-a", &oauth2.Token{AccessToken: "a"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	token, err := cache.Load("client-b")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token != nil {
		t.Errorf("Load() = %v, want nil for a different client", token)
	}
}

func TestTokenCache_KeepsOtherClients(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))
	if err := cache.Save("client-a", &oauth2.Token{AccessToken: "a"}); err != nil {
		t.Fatalf("Save(a) error = %v", err)
	}
	if err := cache.Save("client-b", &oauth2.Token{AccessToken: "b"}); err != nil {
		t.Fatalf("Save(b) error = %v", err)
	}
	if err := cache.Save("client-a", &oauth2.Token{AccessToken: "a2"}); err != nil {
		t.Fatalf("Save(a2) error = %v", err)
	}

	for client, want := range map[string]string{"client-a": "a2", "client-b": "b"} {
		token, err := cache.Load(client)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", client, err)
		}
		if token == nil || token.AccessToken != want {
			t.Errorf("Load(%s) = %v, want access token %q", client, token, want)
		}
	}
}

func TestTokenCache_SaveReplacesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	cache := NewTokenCache(path)
	if err := cache.Save("client", &oauth2.Token{AccessToken: "fresh"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	token, err := cache.Load("client")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if token == nil || token.AccessToken != "fresh" {
		t.Errorf("Load() = %v, want fresh token", token)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only the token file", len(entries))
	}
}

func TestTokenCache_LoadNonExistent(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "nonexistent", "token.json"))

	token, err := cache.Load("client")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if token != nil {
		t.Errorf("Load() = %v, want nil for non-existent file", token)
	}
}

func TestTokenCache_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewTokenCache(path).Load("client"); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}

func TestTokenCache_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeply", "token.json")
	cache := NewTokenCache(path)

	if err := cache.Save("client", &oauth2.Token{AccessToken: "test-token"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Save() did not create token file")
	}
}

func TestTokenCache_SaveNilToken(t *testing.T) {
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

	if err := cache.Save("client", nil); err == nil {
		t.Error("Save(nil) should return error")
	}
}

func TestTokenCache_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	cache := NewTokenCache(path)

	if err := cache.Save("client", &oauth2.Token{AccessToken: "test-token"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := cache.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Delete() did not remove token file")
	}

	// Second delete is a no-op.
	if err := cache.Delete(); err != nil {
		t.Errorf("Delete() error = %v, want nil for non-existent file", err)
	}
}

func TestTokenCache_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	cache := NewTokenCache(path)

	if err := cache.Save("client", &oauth2.Token{AccessToken: "secret-token"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		t.Errorf("File permissions = %o, want 0600 (no group/other access)", mode)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{"both missing", "", ""},
		{"id missing", "", "secret"},
		{"secret missing", "id", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, tt.secret)
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("New() error = %v, want ErrMissingCredentials", err)
			}
		})
	}
}

// newTokenServer issues a fresh token per request, or rejects every request.
func newTokenServer(t *testing.T, reject bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if reject {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
			return
		}
		fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"bearer","expires_in":3600}`, n)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAuthenticate(t *testing.T) {
	srv, calls := newTokenServer(t, false)

	a, err := New("id", "secret", WithTokenURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	client, err := a.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if client == nil {
		t.Fatal("Authenticate() returned nil client")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}

func TestAuthenticate_Rejected(t *testing.T) {
	srv, _ := newTokenServer(t, true)

	a, err := New("id", "bad-secret", WithTokenURL(srv.URL))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := a.Authenticate(context.Background()); !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Authenticate() error = %v, want ErrAuthFailed", err)
	}
}

func TestToken_UsesCache(t *testing.T) {
	srv, calls := newTokenServer(t, false)
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))

	a, err := New("id", "secret", WithTokenURL(srv.URL), WithTokenCache(cache))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, err := a.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	second, err := a.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	if first.AccessToken != second.AccessToken {
		t.Errorf("second token = %q, want cached %q", second.AccessToken, first.AccessToken)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}

	if err := a.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := a.Token(context.Background()); err != nil {
		t.Fatalf("Token() after logout error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("token requests after logout = %d, want 2", got)
	}
}

func TestToken_ExpiredCacheRefreshes(t *testing.T) {
	srv, calls := newTokenServer(t, false)
	cache := NewTokenCache(filepath.Join(t.TempDir(), "token.json"))
	expired := &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}
	if err := cache.Save("id", expired); err != nil {
		t.Fatal(err)
	}

	a, err := New("id", "secret", WithTokenURL(srv.URL), WithTokenCache(cache))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	token, err := a.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token.AccessToken == "old" {
		t.Error("Token() returned the expired cached token")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}
