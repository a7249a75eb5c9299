package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
)

// DefaultTokenPath is relative to os.UserConfigDir.
const DefaultTokenPath = "mood-tunes/app-token.json"

// tokenFile is the on-disk layout. Tokens are keyed by client ID so that
// switching credentials does not evict the other app's token.
type tokenFile struct {
	Clients map[string]*oauth2.Token `json:"clients"`
}

// TokenCache persists client-credentials tokens as a JSON file readable
// only by the current user. It is safe for concurrent use.
type TokenCache struct {
	mu   sync.Mutex
	path string
}

// DefaultTokenCache stores tokens under the user config directory,
// e.g. $XDG_CONFIG_HOME/mood-tunes/app-token.json.
func DefaultTokenCache() (*TokenCache, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config dir: %w", err)
	}
	return NewTokenCache(filepath.Join(dir, filepath.FromSlash(DefaultTokenPath))), nil
}

// NewTokenCache stores tokens at path.
func NewTokenCache(path string) *TokenCache {
	return &TokenCache{path: path}
}

func (c *TokenCache) Path() string { return c.path }

// Load returns the token cached for clientID, or nil when there is none.
// A malformed file is an error.
func (c *TokenCache) Load(clientID string) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tf, err := c.read()
	if err != nil {
		return nil, err
	}
	return tf.Clients[clientID], nil
}

// Save records token for clientID. The file is replaced atomically.
// Entries for other clients survive unless the file was unreadable.
func (c *TokenCache) Save(clientID string, token *oauth2.Token) error {
	if token == nil {
		return errors.New("token cache: refusing to store nil token")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tf, err := c.read()
	if err != nil {
		tf = &tokenFile{}
	}
	if tf.Clients == nil {
		tf.Clients = make(map[string]*oauth2.Token)
	}
	tf.Clients[clientID] = token

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("token cache: encoding: %w", err)
	}
	return c.replace(data)
}

// Delete forgets every cached token. A missing file is not an error.
func (c *TokenCache) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("token cache: %w", err)
	}
	return nil
}

func (c *TokenCache) read() (*tokenFile, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &tokenFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("token cache: parsing %s: %w", c.path, err)
	}
	return &tf, nil
}

// replace writes data next to the target and renames it into place.
func (c *TokenCache) replace(data []byte) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("token cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".app-token-*")
	if err != nil {
		return fmt.Errorf("token cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("token cache: writing: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("token cache: syncing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("token cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("token cache: %w", err)
	}
	return nil
}
