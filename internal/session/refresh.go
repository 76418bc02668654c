package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthRefresher refreshes tokens against the token endpoint of an [oauth2.Config].
type OAuthRefresher struct {
	Config *oauth2.Config
	// HTTPClient is used for the token request when set.
	HTTPClient *http.Client
}

func NewOAuthRefresher(config *oauth2.Config) *OAuthRefresher {
	return &OAuthRefresher{Config: config}
}

// Refresh maps invalid_grant and 400/401 answers to [shared.ErrRefreshFailed]. Other endpoint failures
// become a [*shared.UpstreamError]; transport errors are returned as they are.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	if refreshToken == "" {
		return Tokens{}, shared.ErrNoRefreshToken
	}
	if r.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTPClient)
	}

	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := r.Config.TokenSource(ctx, expired).Token()
	if err != nil {
		return Tokens{}, classifyRefresh(err)
	}

	out := Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, Expiry: tok.Expiry}
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}

func classifyRefresh(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if re.ErrorCode == "invalid_grant" || status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", shared.ErrRefreshFailed, refreshReason(re))
	}
	return &shared.UpstreamError{Provider: "spotify", Status: status, Body: string(re.Body)}
}

func refreshReason(re *oauth2.RetrieveError) string {
	if re.ErrorDescription != "" {
		return re.ErrorDescription
	}
	if re.ErrorCode != "" {
		return re.ErrorCode
	}
	return string(re.Body)
}
