package player

import (
	"context"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
)

const (
	ReadyPollInterval = 100 * time.Millisecond
	ReadyTimeout      = 10 * time.Second
)

// Snapshot is an adapter's view of its SDK at one instant. MediaID is the track the SDK reports as loaded.
type Snapshot struct {
	MediaID    models.MediaID
	IsLoading  bool
	IsPaused   bool
	IsEnded    bool
	PositionMS int
	DurationMS int
	Volume     int
	IsMuted    bool
}

// Adapter is the capability surface shared by every provider player.
type Adapter interface {
	Provider() models.Provider
	Load(ctx context.Context, id models.MediaID) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, ms int) error
	SetVolume(ctx context.Context, volume int) error
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
	Snapshot(ctx context.Context) (Snapshot, error)
	// Loaded returns the last media id whose load completed, or [models.NoMedia].
	Loaded() models.MediaID
}

// Option configures the readiness poll of an adapter.
type Option func(*readiness)

type readiness struct {
	interval time.Duration
	timeout  time.Duration
}

func WithPollInterval(d time.Duration) Option {
	return func(r *readiness) { r.interval = d }
}

func WithReadyTimeout(d time.Duration) Option {
	return func(r *readiness) { r.timeout = d }
}

func newReadiness(opts []Option) readiness {
	r := readiness{interval: ReadyPollInterval, timeout: ReadyTimeout}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Adapters holds one adapter per provider.
type Adapters struct {
	youtube Adapter
	spotify Adapter
}

// NewAdapters registers each adapter under its provider. A later adapter for the same provider wins.
func NewAdapters(adapters ...Adapter) *Adapters {
	a := &Adapters{}
	for _, ad := range adapters {
		switch ad.Provider() {
		case models.ProviderYouTube:
			a.youtube = ad
		case models.ProviderSpotify:
			a.spotify = ad
		}
	}
	return a
}

// For returns the adapter of p, or nil when none is registered.
func (a *Adapters) For(p models.Provider) Adapter {
	switch p {
	case models.ProviderYouTube:
		return a.youtube
	case models.ProviderSpotify:
		return a.spotify
	default:
		return nil
	}
}

// All returns the registered adapters in provider order.
func (a *Adapters) All() []Adapter {
	var out []Adapter
	for _, p := range models.Providers {
		if ad := a.For(p); ad != nil {
			out = append(out, ad)
		}
	}
	return out
}
