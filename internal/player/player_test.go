package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func yt(id string) models.MediaID { return models.MediaID{Provider: models.ProviderYouTube, ID: id} }
func sp(id string) models.MediaID { return models.MediaID{Provider: models.ProviderSpotify, ID: id} }

func TestYouTubeAdapter(t *testing.T) {
	ctx := context.Background()
	fast := []Option{WithPollInterval(time.Millisecond), WithReadyTimeout(2 * time.Second)}

	t.Run("Load waits for the cue and records the media", func(t *testing.T) {
		sim := NewSimVideoPlayer()
		a := NewYouTubeAdapter(sim, fast...)

		if err := a.Load(ctx, yt("abc")); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if a.Loaded() != yt("abc") {
			t.Errorf("expected abc loaded, got %v", a.Loaded())
		}
		snap, err := a.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.IsLoading || !snap.IsPaused || snap.MediaID != yt("abc") {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("superseded load is discarded silently", func(t *testing.T) {
		clk := newClock()
		sim := NewSimVideoPlayer(WithClock(clk.Now), WithCueDelay(time.Minute))
		a := NewYouTubeAdapter(sim, fast...)

		first := make(chan error, 1)
		go func() { first <- a.Load(ctx, yt("first")) }()
		waitFor(t, func() bool { return sim.VideoID() == "first" })

		second := make(chan error, 1)
		go func() { second <- a.Load(ctx, yt("second")) }()
		waitFor(t, func() bool { return sim.VideoID() == "second" })

		select {
		case err := <-first:
			if err != nil {
				t.Errorf("superseded load should return nil, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("superseded load did not return")
		}
		if !a.Loaded().IsNone() {
			t.Errorf("stale load must not publish, got %v", a.Loaded())
		}

		clk.Advance(2 * time.Minute)
		if err := <-second; err != nil {
			t.Fatalf("second load failed: %v", err)
		}
		if a.Loaded() != yt("second") {
			t.Errorf("expected second loaded, got %v", a.Loaded())
		}
	})

	t.Run("readiness timeout", func(t *testing.T) {
		clk := newClock()
		sim := NewSimVideoPlayer(WithClock(clk.Now), WithCueDelay(time.Hour))
		a := NewYouTubeAdapter(sim, WithPollInterval(time.Millisecond), WithReadyTimeout(20*time.Millisecond))

		err := a.Load(ctx, yt("slow"))
		if !errors.Is(err, shared.ErrLoadTimeout) {
			t.Fatalf("expected ErrLoadTimeout, got %v", err)
		}
		if !a.Loaded().IsNone() {
			t.Error("timed out load must leave nothing loaded")
		}
		if snap, _ := a.Snapshot(ctx); snap.IsLoading {
			t.Error("expected loading to end after timeout")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		clk := newClock()
		sim := NewSimVideoPlayer(WithClock(clk.Now), WithCueDelay(time.Hour))
		a := NewYouTubeAdapter(sim, fast...)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := a.Load(cctx, yt("x")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("playback follows the clock and ends at duration", func(t *testing.T) {
		clk := newClock()
		sim := NewSimVideoPlayer(WithClock(clk.Now), WithDurations(func(string) time.Duration { return 10 * time.Second }))
		a := NewYouTubeAdapter(sim, fast...)
		if err := a.Load(ctx, yt("v")); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		_ = a.Play(ctx)
		clk.Advance(1500 * time.Millisecond)
		snap, _ := a.Snapshot(ctx)
		if snap.IsPaused || snap.PositionMS != 1500 || snap.DurationMS != 10000 {
			t.Errorf("unexpected snapshot %+v", snap)
		}

		_ = a.Seek(ctx, 9000)
		clk.Advance(2 * time.Second)
		snap, _ = a.Snapshot(ctx)
		if !snap.IsEnded || snap.PositionMS != 10000 {
			t.Errorf("expected ended at 10000, got %+v", snap)
		}

		_ = a.Play(ctx)
		snap, _ = a.Snapshot(ctx)
		if snap.IsEnded || snap.PositionMS != 0 {
			t.Errorf("expected replay from 0, got %+v", snap)
		}
	})

	t.Run("volume and mute", func(t *testing.T) {
		a := NewYouTubeAdapter(NewSimVideoPlayer(), fast...)
		_ = a.Load(ctx, yt("v"))
		_ = a.SetVolume(ctx, 35)
		_ = a.Mute(ctx)

		snap, _ := a.Snapshot(ctx)
		if snap.Volume != 35 || !snap.IsMuted {
			t.Errorf("unexpected snapshot %+v", snap)
		}
		_ = a.Unmute(ctx)
		if snap, _ = a.Snapshot(ctx); snap.IsMuted {
			t.Error("expected unmuted")
		}
	})
}

type fakeDevice struct {
	mu      sync.Mutex
	state   *DeviceState
	volume  float64
	resumed int
	paused  int
	seeks   []int
	err     error
}

func (d *fakeDevice) Connect(context.Context) (bool, error) { return true, nil }
func (d *fakeDevice) Disconnect(context.Context) error      { return nil }
func (d *fakeDevice) DeviceID() string                      { return "dev" }

func (d *fakeDevice) Resume(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resumed++
	if d.state != nil {
		d.state.Paused = false
	}
	return nil
}

func (d *fakeDevice) Pause(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused++
	if d.state != nil {
		d.state.Paused = true
	}
	return nil
}

func (d *fakeDevice) Seek(_ context.Context, ms int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeks = append(d.seeks, ms)
	return nil
}

func (d *fakeDevice) GetVolume(context.Context) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume, nil
}

func (d *fakeDevice) SetVolume(_ context.Context, v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = v
	return nil
}

func (d *fakeDevice) GetCurrentState(context.Context) (*DeviceState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.state == nil {
		return nil, nil
	}
	st := *d.state
	return &st, nil
}

func (d *fakeDevice) set(st *DeviceState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = st
}

// starterFunc adapts a function to [TrackStarter].
type starterFunc func(ctx context.Context, trackID string) error

func (f starterFunc) PlayTrack(ctx context.Context, trackID string) error { return f(ctx, trackID) }

func TestSpotifyAdapter(t *testing.T) {
	ctx := context.Background()
	fast := []Option{WithPollInterval(time.Millisecond), WithReadyTimeout(2 * time.Second)}

	t.Run("Load starts the track and waits for the device", func(t *testing.T) {
		dev := &fakeDevice{volume: 0.5}
		var started []string
		a := NewSpotifyAdapter(dev, starterFunc(func(_ context.Context, id string) error {
			started = append(started, id)
			dev.set(&DeviceState{TrackID: id, DurationMS: 180000})
			return nil
		}), fast...)

		if err := a.Load(ctx, sp("trk")); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(started) != 1 || started[0] != "trk" {
			t.Errorf("expected one start of trk, got %v", started)
		}
		if a.Loaded() != sp("trk") {
			t.Errorf("expected trk loaded, got %v", a.Loaded())
		}

		snap, err := a.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if snap.MediaID != sp("trk") || snap.DurationMS != 180000 || snap.Volume != 50 || snap.IsPaused {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("start failure surfaces", func(t *testing.T) {
		boom := errors.New("boom")
		a := NewSpotifyAdapter(&fakeDevice{}, starterFunc(func(context.Context, string) error { return boom }), fast...)
		if err := a.Load(ctx, sp("x")); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})

	t.Run("superseded load while the starter is blocked", func(t *testing.T) {
		dev := &fakeDevice{}
		release := make(chan struct{})
		a := NewSpotifyAdapter(dev, starterFunc(func(_ context.Context, id string) error {
			if id == "old" {
				<-release
				return errors.New("device went away")
			}
			dev.set(&DeviceState{TrackID: id})
			return nil
		}), fast...)

		old := make(chan error, 1)
		go func() { old <- a.Load(ctx, sp("old")) }()
		waitFor(t, func() bool { _, loading := a.gate.state(); return loading })

		next := make(chan error, 1)
		go func() { next <- a.Load(ctx, sp("new")) }()
		waitFor(t, func() bool { return a.gate.current(2) })
		close(release)

		if err := <-next; err != nil {
			t.Fatalf("new load failed: %v", err)
		}
		if err := <-old; err != nil {
			t.Errorf("superseded load should be silent, got %v", err)
		}
		if a.Loaded() != sp("new") {
			t.Errorf("expected new loaded, got %v", a.Loaded())
		}
	})

	t.Run("late stale start is overridden by the newer one", func(t *testing.T) {
		dev := &fakeDevice{volume: 1}
		release := make(chan struct{})
		var mu sync.Mutex
		var started []string
		a := NewSpotifyAdapter(dev, starterFunc(func(_ context.Context, id string) error {
			mu.Lock()
			started = append(started, id)
			mu.Unlock()
			if id == "old" {
				<-release
			}
			dev.set(&DeviceState{TrackID: id})
			return nil
		}), fast...)

		old := make(chan error, 1)
		go func() { old <- a.Load(ctx, sp("old")) }()
		waitFor(t, func() bool { mu.Lock(); defer mu.Unlock(); return len(started) == 1 })

		next := make(chan error, 1)
		go func() { next <- a.Load(ctx, sp("new")) }()
		waitFor(t, func() bool { return a.gate.current(2) })

		mu.Lock()
		if len(started) != 1 {
			t.Errorf("new start must wait for the pending one, got %v", started)
		}
		mu.Unlock()
		close(release)

		if err := <-next; err != nil {
			t.Fatalf("new load failed: %v", err)
		}
		if err := <-old; err != nil {
			t.Errorf("superseded load should be silent, got %v", err)
		}

		snap, err := a.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if a.Loaded() != sp("new") || snap.MediaID != sp("new") {
			t.Errorf("expected the device on new, got loaded=%v device=%v", a.Loaded(), snap.MediaID)
		}
	})

	t.Run("queued start is skipped once superseded", func(t *testing.T) {
		dev := &fakeDevice{volume: 1}
		release := make(chan struct{})
		var mu sync.Mutex
		var started []string
		a := NewSpotifyAdapter(dev, starterFunc(func(_ context.Context, id string) error {
			mu.Lock()
			started = append(started, id)
			mu.Unlock()
			if id == "first" {
				<-release
			}
			dev.set(&DeviceState{TrackID: id})
			return nil
		}), fast...)

		results := make(chan error, 3)
		go func() { results <- a.Load(ctx, sp("first")) }()
		waitFor(t, func() bool { mu.Lock(); defer mu.Unlock(); return len(started) == 1 })
		go func() { results <- a.Load(ctx, sp("second")) }()
		waitFor(t, func() bool { return a.gate.current(2) })
		go func() { results <- a.Load(ctx, sp("third")) }()
		waitFor(t, func() bool { return a.gate.current(3) })
		close(release)

		for range 3 {
			if err := <-results; err != nil {
				t.Errorf("unexpected load error: %v", err)
			}
		}
		mu.Lock()
		defer mu.Unlock()
		if len(started) != 2 || started[0] != "first" || started[1] != "third" {
			t.Errorf("expected first then third to start, got %v", started)
		}
		if a.Loaded() != sp("third") {
			t.Errorf("expected third loaded, got %v", a.Loaded())
		}
	})

	t.Run("mute parks the volume and restores it", func(t *testing.T) {
		dev := &fakeDevice{volume: 0.7, state: &DeviceState{TrackID: "t"}}
		a := NewSpotifyAdapter(dev, starterFunc(func(context.Context, string) error { return nil }), fast...)

		if err := a.Mute(ctx); err != nil {
			t.Fatalf("Mute failed: %v", err)
		}
		if v, _ := dev.GetVolume(ctx); v != 0 {
			t.Errorf("expected device volume 0, got %v", v)
		}
		snap, _ := a.Snapshot(ctx)
		if !snap.IsMuted || snap.Volume != 70 {
			t.Errorf("expected muted snapshot at 70, got %+v", snap)
		}

		_ = a.SetVolume(ctx, 40)
		if v, _ := dev.GetVolume(ctx); v != 0 {
			t.Error("volume change while muted must not reach the device")
		}

		if err := a.Unmute(ctx); err != nil {
			t.Fatalf("Unmute failed: %v", err)
		}
		if v, _ := dev.GetVolume(ctx); v != 0.4 {
			t.Errorf("expected 0.4 restored, got %v", v)
		}
	})

	t.Run("inactive device reports paused with no media", func(t *testing.T) {
		a := NewSpotifyAdapter(&fakeDevice{volume: 1}, nil, fast...)
		snap, err := a.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if !snap.IsPaused || !snap.MediaID.IsNone() {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	})

	t.Run("rewind after the end counts as ended", func(t *testing.T) {
		dev := &fakeDevice{volume: 1}
		a := NewSpotifyAdapter(dev, nil, fast...)

		dev.set(&DeviceState{TrackID: "t", PositionMS: 179500, DurationMS: 180000})
		if snap, _ := a.Snapshot(ctx); snap.IsEnded {
			t.Fatal("playing near the end is not ended")
		}
		dev.set(&DeviceState{TrackID: "t", Paused: true, PositionMS: 0, DurationMS: 180000})
		if snap, _ := a.Snapshot(ctx); !snap.IsEnded {
			t.Error("expected ended after rewind")
		}
		if snap, _ := a.Snapshot(ctx); snap.IsEnded {
			t.Error("ended should be reported once")
		}
	})
}

func TestAdapters(t *testing.T) {
	y := NewYouTubeAdapter(NewSimVideoPlayer())
	s := NewSpotifyAdapter(&fakeDevice{}, nil)
	reg := NewAdapters(s, y)

	if reg.For(models.ProviderYouTube) != y || reg.For(models.ProviderSpotify) != s {
		t.Error("registry returned the wrong adapter")
	}
	if reg.For(models.ProviderNone) != nil {
		t.Error("none has no adapter")
	}
	all := reg.All()
	if len(all) != 2 || all[0] != y {
		t.Errorf("expected youtube first, got %v", all)
	}
	if len(NewAdapters(y).All()) != 1 {
		t.Error("expected a single adapter")
	}
}
