package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	DefaultMaxRetries         = 5
	DefaultRetryDelay         = time.Second
	DefaultDeviceWait         = 5 * time.Second
	DefaultDevicePollInterval = 100 * time.Millisecond
)

// RemoteControl is the Spotify control plane. PlayOnDevice returns an error matching
// [shared.ErrDeviceNotFound] when the device id is unknown to Spotify.
type RemoteControl interface {
	PlayOnDevice(ctx context.Context, deviceID, trackID, accessToken string) error
}

// Registrar is the local playback device. Reregister asks it to register again; the new id shows up in
// DeviceID, possibly later.
type Registrar interface {
	DeviceID() string
	Reregister(ctx context.Context) error
}

// Player starts tracks on the registered device.
type Player struct {
	Session   *Session
	Remote    RemoteControl
	Registrar Registrar

	MaxRetries         int
	RetryDelay         time.Duration
	DeviceWait         time.Duration
	DevicePollInterval time.Duration

	Logger *log.Logger
}

func NewPlayer(s *Session, remote RemoteControl, reg Registrar) *Player {
	return &Player{
		Session:            s,
		Remote:             remote,
		Registrar:          reg,
		MaxRetries:         DefaultMaxRetries,
		RetryDelay:         DefaultRetryDelay,
		DeviceWait:         DefaultDeviceWait,
		DevicePollInterval: DefaultDevicePollInterval,
		Logger:             log.New(io.Discard),
	}
}

// PlayTrack plays trackID on the device. A device-not-found failure is retried after re-registering the
// device, for at most MaxRetries attempts in total. Any other failure is returned at once.
func (p *Player) PlayTrack(ctx context.Context, trackID string) error {
	attempts := max(p.MaxRetries, 1)
	deviceID := p.Registrar.DeviceID()
	if deviceID == "" {
		deviceID = p.reregister(ctx, 0)
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := p.Session.Do(ctx, func(ctx context.Context, token string) error {
			return p.Remote.PlayOnDevice(ctx, deviceID, trackID, token)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, shared.ErrDeviceNotFound) {
			return err
		}

		last = err
		if attempt == attempts {
			break
		}
		p.Logger.Warn("device not found, re-registering", "attempt", attempt, "device", deviceID, "track", trackID)

		if err := sleep(ctx, p.RetryDelay); err != nil {
			return err
		}
		deviceID = p.reregister(ctx, attempt)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", shared.ErrRetriesExhausted, attempts, last)
}

// reregister asks for a new registration and waits up to DeviceWait for an id. It returns whatever id
// the device has when the wait ends.
func (p *Player) reregister(ctx context.Context, attempt int) string {
	if err := p.Registrar.Reregister(ctx); err != nil {
		p.Logger.Warn("re-register failed", "attempt", attempt, "err", err)
	}

	wait, cancel := context.WithTimeout(ctx, p.DeviceWait)
	defer cancel()

	interval := p.DevicePollInterval
	if interval <= 0 {
		interval = DefaultDevicePollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if id := p.Registrar.DeviceID(); id != "" {
			return id
		}
		select {
		case <-wait.Done():
			return p.Registrar.DeviceID()
		case <-ticker.C:
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
