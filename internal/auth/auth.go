// Package auth obtains app-level Spotify access using the client credentials
// flow, with the token persisted between runs.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET is not set.
	ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET environment variable")

	// ErrAuthFailed is returned when Spotify rejects the client credentials.
	ErrAuthFailed = errors.New("spotify authentication failed")
)

// Authenticator handles Spotify client credentials authentication.
type Authenticator struct {
	config clientcredentials.Config
	cache  *TokenCache
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithTokenURL overrides the Spotify accounts token endpoint.
func WithTokenURL(url string) Option {
	return func(a *Authenticator) {
		a.config.TokenURL = url
	}
}

// WithTokenCache persists tokens to the given cache.
func WithTokenCache(cache *TokenCache) Option {
	return func(a *Authenticator) {
		a.cache = cache
	}
}

// New creates an Authenticator for the given app credentials.
// Returns ErrMissingCredentials if either value is empty.
func New(clientID, clientSecret string, opts ...Option) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	a := &Authenticator{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate returns a Spotify client authorized with an app token.
// A valid cached token is reused; otherwise a new one is requested so that
// bad credentials fail here rather than on the first catalog call.
func (a *Authenticator) Authenticate(ctx context.Context) (*spotify.Client, error) {
	token, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}

	source := oauth2.ReuseTokenSource(token, a.config.TokenSource(ctx))
	client := spotify.New(oauth2.NewClient(ctx, source), spotify.WithRetry(true))
	return client, nil
}

// Token returns a valid app token, from the cache when possible.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	if a.cache != nil {
		cached, err := a.cache.Load(a.config.ClientID)
		if err != nil {
			return nil, fmt.Errorf("loading cached token: %w", err)
		}
		if cached.Valid() {
			return cached, nil
		}
	}

	token, err := a.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	if a.cache != nil {
		// A failed save only costs a token request on the next run.
		_ = a.cache.Save(a.config.ClientID, token)
	}
	return token, nil
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Delete()
}
