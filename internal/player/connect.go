package player

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// ConnectClient is the slice of the Spotify Web API a [ConnectDevice] needs. *spotify.Client satisfies it.
type ConnectClient interface {
	PlayerDevices(ctx context.Context) ([]spotify.PlayerDevice, error)
	PlayerState(ctx context.Context, opts ...spotify.RequestOption) (*spotify.PlayerState, error)
	PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error
	PauseOpt(ctx context.Context, opt *spotify.PlayOptions) error
	SeekOpt(ctx context.Context, position int, opt *spotify.PlayOptions) error
	VolumeOpt(ctx context.Context, percent int, opt *spotify.PlayOptions) error
}

// ConnectDevice is a [PlaybackDevice] backed by a Spotify Connect device found by name.
// Registration resolves the name to the device's current id, which changes whenever the device restarts.
type ConnectDevice struct {
	client ConnectClient
	name   string

	mu     sync.Mutex
	id     spotify.ID
	volume int
	known  bool
}

// NewConnectDevice drives the device called name. An empty name picks the active device, then the first listed.
func NewConnectDevice(c ConnectClient, name string) *ConnectDevice {
	return &ConnectDevice{client: c, name: name}
}

// Connect resolves the device id. It reports false when no matching device is online.
func (d *ConnectDevice) Connect(ctx context.Context) (bool, error) {
	devices, err := d.client.PlayerDevices(ctx)
	if err != nil {
		return false, services.ClassifySpotifyError(err)
	}

	dev, ok := d.pick(devices)
	d.mu.Lock()
	defer d.mu.Unlock()
	if !ok {
		d.id = ""
		return false, nil
	}
	d.id = dev.ID
	d.volume = int(dev.Volume)
	d.known = true
	return true, nil
}

func (d *ConnectDevice) pick(devices []spotify.PlayerDevice) (spotify.PlayerDevice, bool) {
	for _, dev := range devices {
		if dev.Restricted {
			continue
		}
		if d.name != "" && strings.EqualFold(dev.Name, d.name) {
			return dev, true
		}
	}
	if d.name != "" {
		return spotify.PlayerDevice{}, false
	}
	for _, dev := range devices {
		if dev.Active && !dev.Restricted {
			return dev, true
		}
	}
	for _, dev := range devices {
		if !dev.Restricted {
			return dev, true
		}
	}
	return spotify.PlayerDevice{}, false
}

func (d *ConnectDevice) Disconnect(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = ""
	d.known = false
	return nil
}

// DeviceID returns the resolved id, or "" before a successful Connect.
func (d *ConnectDevice) DeviceID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.id)
}

func (d *ConnectDevice) opts() (*spotify.PlayOptions, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.id == "" {
		return nil, shared.ErrNoDevice
	}
	id := d.id
	return &spotify.PlayOptions{DeviceID: &id}, nil
}

func (d *ConnectDevice) Resume(ctx context.Context) error {
	opt, err := d.opts()
	if err != nil {
		return err
	}
	return services.ClassifySpotifyError(d.client.PlayOpt(ctx, opt))
}

func (d *ConnectDevice) Pause(ctx context.Context) error {
	opt, err := d.opts()
	if err != nil {
		return err
	}
	return services.ClassifySpotifyError(d.client.PauseOpt(ctx, opt))
}

func (d *ConnectDevice) Seek(ctx context.Context, ms int) error {
	opt, err := d.opts()
	if err != nil {
		return err
	}
	return services.ClassifySpotifyError(d.client.SeekOpt(ctx, max(ms, 0), opt))
}

// GetVolume returns the level seen in the last state poll, asking for the device list when there is none.
func (d *ConnectDevice) GetVolume(ctx context.Context) (float64, error) {
	d.mu.Lock()
	vol, known := d.volume, d.known
	d.mu.Unlock()
	if known {
		return float64(vol) / 100, nil
	}

	if _, err := d.Connect(ctx); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return float64(d.volume) / 100, nil
}

func (d *ConnectDevice) SetVolume(ctx context.Context, volume float64) error {
	opt, err := d.opts()
	if err != nil {
		return err
	}
	pct := int(math.Round(min(max(volume, 0), 1) * 100))
	if err := d.client.VolumeOpt(ctx, pct, opt); err != nil {
		return services.ClassifySpotifyError(err)
	}

	d.mu.Lock()
	d.volume, d.known = pct, true
	d.mu.Unlock()
	return nil
}

// GetCurrentState returns nil when another device, or none, is playing.
func (d *ConnectDevice) GetCurrentState(ctx context.Context) (*DeviceState, error) {
	st, err := d.client.PlayerState(ctx)
	if err != nil {
		return nil, services.ClassifySpotifyError(err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if st == nil || st.Item == nil || d.id == "" || st.Device.ID != d.id {
		return nil, nil
	}
	d.volume, d.known = int(st.Device.Volume), true

	return &DeviceState{
		TrackID:    string(st.Item.ID),
		Paused:     !st.Playing,
		PositionMS: int(st.Progress),
		DurationMS: int(st.Item.Duration),
	}, nil
}

// Reregister drops the cached id and resolves it again, the way a restarted device shows up with a new one.
func (d *ConnectDevice) Reregister(ctx context.Context) error {
	d.mu.Lock()
	d.id = ""
	d.mu.Unlock()

	ok, err := d.Connect(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q is not online", shared.ErrNoDevice, d.name)
	}
	return nil
}
