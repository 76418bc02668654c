package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

// Session guards calls to the Spotify control plane with cached, refreshed credentials.
type Session struct {
	store     CredentialStore
	refresher Refresher
	now       func() time.Time
	logger    *log.Logger

	// mu serializes refreshes so concurrent callers share one exchange.
	mu sync.Mutex
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func New(store CredentialStore, refresher Refresher, opts ...Option) *Session {
	s := &Session{store: store, refresher: refresher, now: time.Now, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State derives the token state from the store.
func (s *Session) State(ctx context.Context) (TokenState, error) {
	t, err := s.store.Load(ctx)
	if err != nil {
		return NoSession, err
	}
	return t.State(s.now()), nil
}

// AccessToken returns a usable access token, refreshing a stale session first.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}

	switch t.State(s.now()) {
	case Active:
		return t.AccessToken, nil
	case NoSession:
		return "", shared.ErrAuthRequired
	}

	s.logger.Debug("refreshing access token")
	fresh, err := s.refresher.Refresh(ctx, t.RefreshToken)
	if err != nil {
		return "", err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = t.RefreshToken
	}
	if err := s.store.Save(ctx, fresh); err != nil {
		return "", fmt.Errorf("failed to save refreshed credentials: %w", err)
	}
	return fresh.AccessToken, nil
}

// Do runs fn with an access token. An authentication failure from the refresh or from fn clears both
// cookies and returns [shared.ErrAuthRequired] wrapping the cause. Other errors are returned unchanged.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context, accessToken string) error) error {
	token, err := s.AccessToken(ctx)
	if errors.Is(err, shared.ErrAuthRequired) {
		// A lone access cookie without its refresh token is dropped too.
		if cerr := s.store.Clear(ctx); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	if shared.IsAuthError(err) {
		return s.expire(ctx, err)
	}
	if err != nil {
		return err
	}

	err = fn(ctx, token)
	if shared.IsAuthError(err) {
		return s.expire(ctx, err)
	}
	return err
}

func (s *Session) expire(ctx context.Context, cause error) error {
	s.logger.Warn("credentials rejected, clearing session", "err", cause)
	if err := s.store.Clear(ctx); err != nil {
		return errors.Join(fmt.Errorf("%w: %w", shared.ErrAuthRequired, cause), err)
	}
	return fmt.Errorf("%w: %w", shared.ErrAuthRequired, cause)
}

// Login stores a freshly exchanged token pair.
func (s *Session) Login(ctx context.Context, t Tokens) error {
	if t.RefreshToken == "" {
		return shared.ErrNoRefreshToken
	}
	return s.store.Save(ctx, t)
}

// Logout clears both cookies.
func (s *Session) Logout(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// TokenSource adapts the session to [oauth2.TokenSource] for API clients.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, session: s}
}

type tokenSource struct {
	ctx     context.Context
	session *Session
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	access, err := ts.session.AccessToken(ts.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

// FromOAuth converts an exchanged [oauth2.Token].
func FromOAuth(t *oauth2.Token) Tokens {
	return Tokens{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, Expiry: t.Expiry}
}
