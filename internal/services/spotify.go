// Spotify Web API implementation of [Fetcher]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	defaultRedirectURI = "http://127.0.0.1:3000/callback"
	spotifyPageSize    = 50
)

// playbackScopes cover the control plane and the playlists the queue loads.
var playbackScopes = []string{
	spotifyauth.ScopeStreaming,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
}

// SpotifyService fetches Spotify playlists, albums and tracks.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu     sync.Mutex
	client *spotify.Client
}

type SpotifyOption func(*SpotifyService)

// WithSpotifyEndpoints points the service at another API root (ending in a slash) and token endpoint.
func WithSpotifyEndpoints(apiBase, authURL, tokenURL string) SpotifyOption {
	return func(s *SpotifyService) {
		s.baseURL = apiBase
		s.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInHeader}
	}
}

func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithSpotifyRateLimit caps requests per second.
func WithSpotifyRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewSpotifyService creates a Spotify service from client_id, client_secret and an optional redirect_uri.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       playbackScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   spotifyauth.AuthURL,
				TokenURL:  spotifyauth.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Provider() models.Provider { return models.ProviderSpotify }

// OAuthConfig returns the authorization code config shared with the token refresher.
func (s *SpotifyService) OAuthConfig() *oauth2.Config { return s.config }

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token pair.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.config.Exchange(s.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// UseTokenSource makes later calls with a user token instead of client credentials.
func (s *SpotifyService) UseTokenSource(ts oauth2.TokenSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = s.newClient(oauth2.NewClient(s.clientContext(context.Background()), ts))
}

func (s *SpotifyService) FetchPlaylist(ctx context.Context, ref models.PlaylistRef) (*models.PlaylistInfo, error) {
	var (
		info *models.PlaylistInfo
		err  error
	)
	switch ref.Type {
	case models.PlaylistTypePlaylist:
		info, err = s.playlist(ctx, spotify.ID(ref.ID))
	case models.PlaylistTypeAlbum:
		info, err = s.album(ctx, spotify.ID(ref.ID))
	case models.PlaylistTypeTrack:
		info, err = s.track(ctx, spotify.ID(ref.ID))
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnsupportedRef, ref)
	}
	if err != nil {
		return nil, notFound(ref, err)
	}
	return info, nil
}

func (s *SpotifyService) playlist(ctx context.Context, id spotify.ID) (*models.PlaylistInfo, error) {
	client := s.api()
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	pl, err := client.GetPlaylist(ctx, id)
	if err != nil {
		return nil, ClassifySpotifyError(err)
	}

	var ids []string
	for offset := 0; ; {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := client.GetPlaylistItems(ctx, id, spotify.Limit(spotifyPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, ClassifySpotifyError(err)
		}
		for _, item := range page.Items {
			// Episodes and local files have no track id.
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				ids = append(ids, string(item.Track.Track.ID))
			}
		}
		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= int(page.Total) {
			break
		}
	}

	info := models.PlaylistInfo{
		Provider:  models.ProviderSpotify,
		Type:      models.PlaylistTypePlaylist,
		ID:        string(id),
		Title:     pl.Name,
		Thumbnail: spotifyThumbnail(pl.Images),
	}.WithMediaIDs(ids)
	return &info, nil
}

func (s *SpotifyService) album(ctx context.Context, id spotify.ID) (*models.PlaylistInfo, error) {
	client := s.api()
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	al, err := client.GetAlbum(ctx, id)
	if err != nil {
		return nil, ClassifySpotifyError(err)
	}

	var ids []string
	for offset := 0; ; {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		page, err := client.GetAlbumTracks(ctx, id, spotify.Limit(spotifyPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, ClassifySpotifyError(err)
		}
		for _, t := range page.Tracks {
			ids = append(ids, string(t.ID))
		}
		offset += len(page.Tracks)
		if len(page.Tracks) == 0 || offset >= int(page.Total) {
			break
		}
	}

	info := models.PlaylistInfo{
		Provider:  models.ProviderSpotify,
		Type:      models.PlaylistTypeAlbum,
		ID:        string(id),
		Title:     al.Name,
		Thumbnail: spotifyThumbnail(al.Images),
	}.WithMediaIDs(ids)
	return &info, nil
}

func (s *SpotifyService) track(ctx context.Context, id spotify.ID) (*models.PlaylistInfo, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	t, err := s.api().GetTrack(ctx, id)
	if err != nil {
		return nil, ClassifySpotifyError(err)
	}

	info := models.PlaylistInfo{
		Provider:  models.ProviderSpotify,
		Type:      models.PlaylistTypeTrack,
		ID:        string(id),
		Title:     t.Name,
		Thumbnail: spotifyThumbnail(t.Album.Images),
	}.WithMediaIDs([]string{string(id)})
	return &info, nil
}

// FetchMediaInfo looks tracks up 50 at a time.
func (s *SpotifyService) FetchMediaInfo(ctx context.Context, ids []string) (map[string]models.MediaInfo, error) {
	out := make(map[string]models.MediaInfo, len(ids))
	client := s.api()

	for _, chunk := range lo.Chunk(ids, maxBatch) {
		if err := s.wait(ctx); err != nil {
			return out, err
		}
		tracks, err := client.GetTracks(ctx, lo.Map(chunk, func(id string, _ int) spotify.ID { return spotify.ID(id) }))
		if err != nil {
			return out, ClassifySpotifyError(err)
		}
		for _, t := range tracks {
			if t == nil {
				continue
			}
			out[string(t.ID)] = spotifyMediaInfo(t)
		}
	}
	return out, nil
}

func spotifyMediaInfo(t *spotify.FullTrack) models.MediaInfo {
	return models.MediaInfo{
		Title:      t.Name,
		Authors:    lo.Map(t.Artists, func(a spotify.SimpleArtist, _ int) string { return a.Name }),
		Thumbnail:  spotifyThumbnail(t.Album.Images),
		DurationMS: int(t.Duration),
	}
}

// spotifyThumbnail picks the first image, which Spotify lists largest first.
func spotifyThumbnail(images []spotify.Image) models.Thumbnail {
	if len(images) == 0 {
		return models.Thumbnail{}
	}
	img := images[0]
	return models.Thumbnail{URL: img.URL, Width: int(img.Width), Height: int(img.Height)}
}

func (s *SpotifyService) api() *spotify.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		cc := &clientcredentials.Config{
			ClientID:     s.config.ClientID,
			ClientSecret: s.config.ClientSecret,
			TokenURL:     s.config.Endpoint.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		s.client = s.newClient(cc.Client(s.clientContext(context.Background())))
	}
	return s.client
}

func (s *SpotifyService) newClient(hc *http.Client) *spotify.Client {
	var opts []spotify.ClientOption
	if s.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.baseURL))
	}
	return spotify.New(hc, opts...)
}

func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	if s.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func (s *SpotifyService) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// notFound turns a 404 for the collection itself into [shared.ErrPlaylistNotFound].
func notFound(ref models.PlaylistRef, err error) error {
	var upstream *shared.UpstreamError
	if errors.As(err, &upstream) && upstream.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, ref)
	}
	return err
}
