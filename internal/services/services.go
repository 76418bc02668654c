// package services fetches playlist contents and track metadata from the providers
//
// Spotify (Web API), YouTube (Data API v3)
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

// Fetcher resolves references and metadata for one provider.
type Fetcher interface {
	// Provider returns the provider whose ids this fetcher understands.
	Provider() models.Provider

	// FetchPlaylist resolves ref into its title and ordered track ids.
	FetchPlaylist(ctx context.Context, ref models.PlaylistRef) (*models.PlaylistInfo, error)

	// FetchMediaInfo looks up metadata for ids. Unknown ids are absent from the result.
	FetchMediaInfo(ctx context.Context, ids []string) (map[string]models.MediaInfo, error)
}

// OAuthService is implemented by providers with a user authorization code flow.
type OAuthService interface {
	OAuthConfig() *oauth2.Config
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Fetchers holds one [Fetcher] per provider.
type Fetchers map[models.Provider]Fetcher

func NewFetchers(fetchers ...Fetcher) Fetchers {
	out := make(Fetchers, len(fetchers))
	for _, f := range fetchers {
		out[f.Provider()] = f
	}
	return out
}

// For returns the fetcher of p.
func (f Fetchers) For(p models.Provider) (Fetcher, error) {
	fetcher, ok := f[p]
	if !ok || fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher for %s", shared.ErrServiceUnavailable, p)
	}
	return fetcher, nil
}

// FetchPlaylist dispatches ref to its provider after validating it.
func (f Fetchers) FetchPlaylist(ctx context.Context, ref models.PlaylistRef) (*models.PlaylistInfo, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnsupportedRef, ref)
	}
	fetcher, err := f.For(ref.Provider)
	if err != nil {
		return nil, err
	}
	return fetcher.FetchPlaylist(ctx, ref)
}

// maxBatch is the id limit of both providers' bulk lookup endpoints.
const maxBatch = 50
