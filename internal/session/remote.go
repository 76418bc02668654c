package session

import (
	"context"
	"net/http"

	"github.com/desertthunder/mixtape/internal/services"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// WebRemote is a [RemoteControl] over the Spotify Web API.
type WebRemote struct {
	baseURL    string
	httpClient *http.Client
}

type RemoteOption func(*WebRemote)

// WithBaseURL points the remote at another API root, which must end in a slash.
func WithBaseURL(u string) RemoteOption {
	return func(r *WebRemote) { r.baseURL = u }
}

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *WebRemote) { r.httpClient = c }
}

func NewWebRemote(opts ...RemoteOption) *WebRemote {
	r := &WebRemote{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PlayOnDevice starts trackID on deviceID. An empty deviceID targets the active device.
func (r *WebRemote) PlayOnDevice(ctx context.Context, deviceID, trackID, accessToken string) error {
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))

	var clientOpts []spotify.ClientOption
	if r.baseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(r.baseURL))
	}
	client := spotify.New(hc, clientOpts...)

	opt := &spotify.PlayOptions{URIs: []spotify.URI{spotify.URI("spotify:track:" + trackID)}}
	if deviceID != "" {
		id := spotify.ID(deviceID)
		opt.DeviceID = &id
	}
	return services.ClassifySpotifyError(client.PlayOpt(ctx, opt))
}
