package session

import (
	"context"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// TokenState is derived from the stored credentials, never stored itself.
type TokenState int

const (
	NoSession TokenState = iota
	Stale
	Active
)

func (s TokenState) String() string {
	switch s {
	case Stale:
		return "stale"
	case Active:
		return "active"
	default:
		return "no session"
	}
}

// Tokens is a credential pair. A zero Expiry means the access token never expires.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// expiryLeeway treats tokens about to expire as already expired.
const expiryLeeway = 10 * time.Second

func (t Tokens) State(now time.Time) TokenState {
	switch {
	case t.RefreshToken == "":
		return NoSession
	case t.AccessToken == "":
		return Stale
	case !t.Expiry.IsZero() && !now.Add(expiryLeeway).Before(t.Expiry):
		return Stale
	default:
		return Active
	}
}

// CredentialStore persists a [Tokens] pair. Clear must remove both tokens together.
type CredentialStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new pair. Implementations keep the old refresh token when the
// provider does not rotate it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}
