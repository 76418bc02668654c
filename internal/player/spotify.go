package player

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/desertthunder/mixtape/internal/models"
)

// DeviceState is what a playback device reports about its current track. A nil *DeviceState means the
// device is not the active one.
type DeviceState struct {
	TrackID    string
	Paused     bool
	Loading    bool
	PositionMS int
	DurationMS int
}

// PlaybackDevice is a Spotify playback device. Volume is 0..1.
type PlaybackDevice interface {
	Connect(ctx context.Context) (bool, error)
	Disconnect(ctx context.Context) error
	DeviceID() string
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, ms int) error
	GetVolume(ctx context.Context) (float64, error)
	SetVolume(ctx context.Context, volume float64) error
	GetCurrentState(ctx context.Context) (*DeviceState, error)
}

// TrackStarter starts a track on the registered device, retrying while the device re-registers.
type TrackStarter interface {
	PlayTrack(ctx context.Context, trackID string) error
}

// SpotifyAdapter drives a single [PlaybackDevice]. Spotify devices have no mute, so muting parks the
// volume at 0 and remembers the level to restore.
type SpotifyAdapter struct {
	device  PlaybackDevice
	starter TrackStarter
	gate    loadGate
	ready   readiness

	mu      sync.Mutex
	muted   bool
	restore float64
	last    DeviceState
	playing bool
}

// endWindowMS is how close to the end a playing track must have been seen for a rewind to count as ended.
const endWindowMS = 2000

func NewSpotifyAdapter(d PlaybackDevice, starter TrackStarter, opts ...Option) *SpotifyAdapter {
	return &SpotifyAdapter{device: d, starter: starter, ready: newReadiness(opts), restore: 1}
}

func (a *SpotifyAdapter) Provider() models.Provider { return models.ProviderSpotify }

func (a *SpotifyAdapter) Loaded() models.MediaID {
	loaded, _ := a.gate.state()
	return loaded
}

// Load starts the track remotely and waits until the device reports it.
func (a *SpotifyAdapter) Load(ctx context.Context, id models.MediaID) error {
	gen := a.gate.begin(id)
	issued, err := a.gate.start(ctx, gen, func(ctx context.Context) error {
		return a.starter.PlayTrack(ctx, id.ID)
	})
	if err != nil {
		return a.gate.fail(gen, fmt.Errorf("start %s: %w", id, err))
	}
	if !issued {
		return nil
	}

	return a.gate.await(ctx, gen, a.ready, func(ctx context.Context) (bool, error) {
		st, err := a.device.GetCurrentState(ctx)
		if err != nil {
			return false, err
		}
		return st != nil && st.TrackID == id.ID && !st.Loading, nil
	})
}

func (a *SpotifyAdapter) Play(ctx context.Context) error  { return a.device.Resume(ctx) }
func (a *SpotifyAdapter) Pause(ctx context.Context) error { return a.device.Pause(ctx) }

func (a *SpotifyAdapter) Seek(ctx context.Context, ms int) error {
	return a.device.Seek(ctx, ms)
}

func (a *SpotifyAdapter) SetVolume(ctx context.Context, volume int) error {
	v := float64(min(max(volume, 0), 100)) / 100

	a.mu.Lock()
	muted := a.muted
	a.restore = v
	a.mu.Unlock()

	if muted {
		return nil
	}
	return a.device.SetVolume(ctx, v)
}

func (a *SpotifyAdapter) Mute(ctx context.Context) error {
	a.mu.Lock()
	if a.muted {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	cur, err := a.device.GetVolume(ctx)
	if err != nil {
		return err
	}
	if err := a.device.SetVolume(ctx, 0); err != nil {
		return err
	}

	a.mu.Lock()
	a.muted = true
	if cur > 0 {
		a.restore = cur
	}
	a.mu.Unlock()
	return nil
}

func (a *SpotifyAdapter) Unmute(ctx context.Context) error {
	a.mu.Lock()
	if !a.muted {
		a.mu.Unlock()
		return nil
	}
	v := a.restore
	a.mu.Unlock()

	if err := a.device.SetVolume(ctx, v); err != nil {
		return err
	}

	a.mu.Lock()
	a.muted = false
	a.mu.Unlock()
	return nil
}

func (a *SpotifyAdapter) Snapshot(ctx context.Context) (Snapshot, error) {
	_, loading := a.gate.state()
	snap := Snapshot{IsLoading: loading, IsPaused: true}

	st, err := a.device.GetCurrentState(ctx)
	if err != nil {
		return snap, err
	}

	a.mu.Lock()
	muted, restore := a.muted, a.restore
	a.mu.Unlock()

	snap.IsMuted = muted
	if muted {
		snap.Volume = percent(restore)
	} else {
		vol, err := a.device.GetVolume(ctx)
		if err != nil {
			return snap, err
		}
		snap.Volume = percent(vol)
	}

	if st == nil {
		return snap, nil
	}

	snap.MediaID = models.MediaID{Provider: models.ProviderSpotify, ID: st.TrackID}
	snap.IsPaused = st.Paused
	snap.IsLoading = loading || st.Loading
	snap.PositionMS = st.PositionMS
	snap.DurationMS = st.DurationMS
	snap.IsEnded = a.observe(*st)
	return snap, nil
}

// observe records st and reports whether it is the rewind-and-pause a device performs when a track
// finishes with nothing queued after it.
func (a *SpotifyAdapter) observe(st DeviceState) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev, wasPlaying := a.last, a.playing
	a.last, a.playing = st, !st.Paused

	return wasPlaying && st.Paused && st.PositionMS == 0 &&
		prev.TrackID == st.TrackID && prev.DurationMS > 0 &&
		prev.PositionMS >= prev.DurationMS-endWindowMS
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
