// YouTube Data API v3 implementation of [Fetcher]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeService fetches YouTube playlists and videos with an API key.
type YouTubeService struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	svc        *youtube.Service
}

type YouTubeOption func(*YouTubeService)

// WithYouTubeEndpoint points the service at another API root, ending in a slash.
func WithYouTubeEndpoint(u string) YouTubeOption {
	return func(y *YouTubeService) { y.endpoint = u }
}

func WithYouTubeHTTPClient(c *http.Client) YouTubeOption {
	return func(y *YouTubeService) { y.httpClient = c }
}

func WithYouTubeRateLimit(rps float64) YouTubeOption {
	return func(y *YouTubeService) {
		if rps > 0 {
			y.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewYouTubeService creates a YouTube service instance.
func NewYouTubeService(ctx context.Context, apiKey string, opts ...YouTubeOption) (*YouTubeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing youtube api_key", shared.ErrMissingCredentials)
	}

	y := &YouTubeService{
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(y)
	}

	// The key travels as a call option; WithHTTPClient disables every other credential option.
	clientOpts := []option.ClientOption{option.WithHTTPClient(y.httpClient)}
	if y.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(y.endpoint))
	}

	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	y.svc = svc
	return y, nil
}

func (y *YouTubeService) Provider() models.Provider { return models.ProviderYouTube }

func (y *YouTubeService) FetchPlaylist(ctx context.Context, ref models.PlaylistRef) (*models.PlaylistInfo, error) {
	var (
		info *models.PlaylistInfo
		err  error
	)
	switch ref.Type {
	case models.PlaylistTypePlaylist:
		info, err = y.playlist(ctx, ref.ID)
	case models.PlaylistTypeVideo:
		info, err = y.video(ctx, ref.ID)
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnsupportedRef, ref)
	}
	if err != nil {
		return nil, notFound(ref, err)
	}
	return info, nil
}

func (y *YouTubeService) playlist(ctx context.Context, id string) (*models.PlaylistInfo, error) {
	if err := y.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := y.svc.Playlists.List([]string{"snippet", "contentDetails"}).Id(id).Context(ctx).Do(y.key())
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	if len(resp.Items) == 0 {
		return nil, &shared.UpstreamError{Provider: "youtube", Status: http.StatusNotFound}
	}
	pl := resp.Items[0]

	var ids []string
	token := ""
	for {
		if err := y.wait(ctx); err != nil {
			return nil, err
		}
		call := y.svc.PlaylistItems.List([]string{"contentDetails"}).PlaylistId(id).MaxResults(maxBatch).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		page, err := call.Do(y.key())
		if err != nil {
			return nil, classifyGoogleError(err)
		}
		for _, item := range page.Items {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				ids = append(ids, item.ContentDetails.VideoId)
			}
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	info := models.PlaylistInfo{
		Provider: models.ProviderYouTube,
		Type:     models.PlaylistTypePlaylist,
		ID:       id,
	}
	if pl.Snippet != nil {
		info.Title = pl.Snippet.Title
		info.Thumbnail = youtubeThumbnail(pl.Snippet.Thumbnails)
	}
	info = info.WithMediaIDs(ids)
	return &info, nil
}

func (y *YouTubeService) video(ctx context.Context, id string) (*models.PlaylistInfo, error) {
	videos, err := y.videos(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, &shared.UpstreamError{Provider: "youtube", Status: http.StatusNotFound}
	}

	v := videos[0]
	info := models.PlaylistInfo{
		Provider: models.ProviderYouTube,
		Type:     models.PlaylistTypeVideo,
		ID:       id,
	}
	if v.Snippet != nil {
		info.Title = v.Snippet.Title
		info.Thumbnail = youtubeThumbnail(v.Snippet.Thumbnails)
	}
	info = info.WithMediaIDs([]string{id})
	return &info, nil
}

// FetchMediaInfo looks videos up 50 at a time.
func (y *YouTubeService) FetchMediaInfo(ctx context.Context, ids []string) (map[string]models.MediaInfo, error) {
	out := make(map[string]models.MediaInfo, len(ids))
	for _, chunk := range lo.Chunk(ids, maxBatch) {
		videos, err := y.videos(ctx, chunk)
		if err != nil {
			return out, err
		}
		for _, v := range videos {
			out[v.Id] = youtubeMediaInfo(v)
		}
	}
	return out, nil
}

func (y *YouTubeService) videos(ctx context.Context, ids []string) ([]*youtube.Video, error) {
	if err := y.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := y.svc.Videos.List([]string{"snippet", "contentDetails"}).Id(ids...).MaxResults(maxBatch).Context(ctx).Do(y.key())
	if err != nil {
		return nil, classifyGoogleError(err)
	}
	return resp.Items, nil
}

func youtubeMediaInfo(v *youtube.Video) models.MediaInfo {
	var info models.MediaInfo
	if v.Snippet != nil {
		info.Title = v.Snippet.Title
		if v.Snippet.ChannelTitle != "" {
			info.Authors = []string{v.Snippet.ChannelTitle}
		}
		info.Thumbnail = youtubeThumbnail(v.Snippet.Thumbnails)
	}
	if v.ContentDetails != nil {
		if d, err := ParseISODuration(v.ContentDetails.Duration); err == nil {
			info.DurationMS = int(d.Milliseconds())
		}
	}
	return info
}

// youtubeThumbnail picks the largest size present.
func youtubeThumbnail(d *youtube.ThumbnailDetails) models.Thumbnail {
	if d == nil {
		return models.Thumbnail{}
	}
	for _, t := range []*youtube.Thumbnail{d.Maxres, d.Standard, d.High, d.Medium, d.Default} {
		if t != nil && t.Url != "" {
			return models.Thumbnail{URL: t.Url, Width: int(t.Width), Height: int(t.Height)}
		}
	}
	return models.Thumbnail{}
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration parses the ISO 8601 durations the Data API returns, e.g. PT1H2M3S.
func ParseISODuration(s string) (time.Duration, error) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, fmt.Errorf("%w: duration %q", shared.ErrInvalidInput, s)
	}

	var d time.Duration
	for i, unit := range []time.Duration{24 * time.Hour, time.Hour, time.Minute} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("%w: duration %q", shared.ErrInvalidInput, s)
		}
		d += time.Duration(n) * unit
	}
	if m[4] != "" {
		sec, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: duration %q", shared.ErrInvalidInput, s)
		}
		d += time.Duration(sec * float64(time.Second))
	}
	return d, nil
}

func (y *YouTubeService) key() googleapi.CallOption {
	return googleapi.QueryParameter("key", y.apiKey)
}

func (y *YouTubeService) wait(ctx context.Context) error {
	if y.limiter == nil {
		return nil
	}
	return y.limiter.Wait(ctx)
}

// classifyGoogleError maps Data API failures like [ClassifySpotifyError] does for Spotify.
func classifyGoogleError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	if gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, gerr.Message)
	}
	return &shared.UpstreamError{Provider: "youtube", Status: gerr.Code, Body: gerr.Message}
}
