package synchronizer

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/player"
	"github.com/desertthunder/mixtape/internal/queue"
)

const (
	DefaultInterval      = 500 * time.Millisecond
	DefaultSeekTolerance = 1500 * time.Millisecond
)

// Synchronizer binds a [queue.Store] to a set of [player.Adapters]. A Synchronizer is driven by one
// goroutine, either Run or a caller of Tick.
type Synchronizer struct {
	Store         *queue.Store
	Adapters      *player.Adapters
	Interval      time.Duration
	SeekTolerance time.Duration
	Logger        *log.Logger

	// active is the media id whose pending intents were applied after its load.
	active models.MediaID
	// seen holds the store's values as of the previous tick, prev the adapter's previous snapshot.
	// A field differing from seen moved on the store side; one differing from prev moved natively.
	seen, prev player.Snapshot
	// primed is false until the first snapshot after activation has been recorded.
	primed bool
	// ended is set once the current end signal was handled.
	ended bool
	// failed is the media id whose load failed; it is not retried until the cursor moves.
	failed  models.MediaID
	pending *load
}

type load struct {
	id     models.MediaID
	cancel context.CancelFunc
	done   chan error
}

func New(store *queue.Store, adapters *player.Adapters) *Synchronizer {
	return &Synchronizer{
		Store:         store,
		Adapters:      adapters,
		Interval:      DefaultInterval,
		SeekTolerance: DefaultSeekTolerance,
		Logger:        log.New(io.Discard),
	}
}

// Run ticks every Interval until ctx is done. A tick starts only after the previous one returned.
func (s *Synchronizer) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	defer s.stopLoad()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	s.logger().Debug("synchronizer started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger().Debug("synchronizer stopped")
			return ctx.Err()
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(interval)
		}
	}
}

// Tick runs one synchronization pass. Adapter failures are logged and the pass carries on.
func (s *Synchronizer) Tick(ctx context.Context) {
	st := s.Store.State()
	target := st.Current()

	if target != s.failed {
		s.failed = models.NoMedia
	}

	for _, ad := range s.Adapters.All() {
		if target.IsNone() || ad.Provider() != target.Provider {
			s.park(ctx, ad)
		}
	}

	if target.IsNone() {
		s.stopLoad()
		s.active = models.NoMedia
		return
	}

	ad := s.Adapters.For(target.Provider)
	if ad == nil {
		s.logger().Warn("no player for provider", "provider", target.Provider)
		return
	}

	if !s.loaded(ctx, ad, target) {
		return
	}
	if s.active != target {
		s.activate(ctx, ad, st, target)
		return
	}

	snap, err := ad.Snapshot(ctx)
	if err != nil {
		s.logger().Warn("snapshot failed", "provider", ad.Provider(), "err", err)
		return
	}
	if snap.IsLoading || snap.MediaID != target {
		return
	}

	if s.handleEnd(ctx, ad, st, snap) {
		return
	}
	s.reconcile(ctx, ad, st, snap)
}

// loaded reports whether ad has target loaded, starting or polling a background load otherwise.
func (s *Synchronizer) loaded(ctx context.Context, ad player.Adapter, target models.MediaID) bool {
	if p := s.pending; p != nil {
		if p.id != target {
			s.stopLoad()
		} else {
			select {
			case err := <-p.done:
				s.pending = nil
				if err != nil {
					s.logger().Error("load failed", "media", target, "err", err)
					s.failed = target
					return false
				}
			default:
				return false
			}
		}
	}

	if ad.Loaded() == target {
		return true
	}
	if s.failed == target {
		return false
	}

	s.startLoad(ctx, ad, target)
	return false
}

func (s *Synchronizer) startLoad(ctx context.Context, ad player.Adapter, id models.MediaID) {
	s.logger().Debug("loading", "media", id)

	lctx, cancel := context.WithCancel(ctx)
	p := &load{id: id, cancel: cancel, done: make(chan error, 1)}
	s.pending = p
	s.active = models.NoMedia
	s.ended = false

	go func() {
		p.done <- ad.Load(lctx, id)
	}()
}

func (s *Synchronizer) stopLoad() {
	if s.pending == nil {
		return
	}
	s.pending.cancel()
	s.pending = nil
}

// activate applies the store's pending intents to a freshly loaded adapter. Nothing is folded back on
// this tick.
func (s *Synchronizer) activate(ctx context.Context, ad player.Adapter, st queue.State, target models.MediaID) {
	if st.ProgressMS > 0 {
		s.try(ad, "seek", ad.Seek(ctx, st.ProgressMS))
	}
	s.try(ad, "set volume", ad.SetVolume(ctx, st.Volume))
	if st.IsMuted {
		s.try(ad, "mute", ad.Mute(ctx))
	} else {
		s.try(ad, "unmute", ad.Unmute(ctx))
	}
	if st.IsPlaying {
		s.try(ad, "play", ad.Play(ctx))
	} else {
		s.try(ad, "pause", ad.Pause(ctx))
	}

	s.active = target
	s.ended = false
	s.primed = false
	s.seen = player.Snapshot{
		MediaID:    target,
		IsPaused:   !st.IsPlaying,
		PositionMS: st.ProgressMS,
		Volume:     st.Volume,
		IsMuted:    st.IsMuted,
	}
	s.logger().Info("now playing", "media", target, "playing", st.IsPlaying)
}

// handleEnd reacts to the adapter finishing the track. It reports true when the tick is done.
func (s *Synchronizer) handleEnd(ctx context.Context, ad player.Adapter, st queue.State, snap player.Snapshot) bool {
	finished := snap.IsEnded || (!snap.IsPaused && snap.DurationMS > 0 && snap.PositionMS >= snap.DurationMS)
	if !finished {
		s.ended = false
		return false
	}
	if s.ended {
		return false
	}
	s.ended = true
	s.prev = snap
	s.primed = true

	if st.IsRepeatOn && len(st.Queue) == 1 {
		s.logger().Debug("looping single track", "media", snap.MediaID)
		s.try(ad, "seek", ad.Seek(ctx, 0))
		s.try(ad, "play", ad.Play(ctx))
		s.Store.Dispatch(queue.Seek{ProgressMS: 0})
		s.seen.PositionMS = 0
		s.seen.IsPaused = false
		s.ended = false
		return true
	}

	s.logger().Debug("end of track", "media", snap.MediaID)
	s.Store.Dispatch(queue.EndOfTrack{})
	s.seen.IsPaused = true
	s.seen.PositionMS = st.ProgressMS
	return true
}

// reconcile diffs each field. The store side wins when both sides moved.
func (s *Synchronizer) reconcile(ctx context.Context, ad player.Adapter, st queue.State, snap player.Snapshot) {
	var intents []queue.Intent
	if snap.DurationMS > 0 && snap.DurationMS != st.DurationMS {
		intents = append(intents, queue.SetDuration{DurationMS: snap.DurationMS})
	}

	// The first snapshot after a load may still lag behind the intents just applied.
	if !s.primed {
		s.primed = true
		s.prev = snap
		s.dispatch(intents)
		return
	}

	seen, prev := s.seen, s.prev

	if !st.IsSeeking {
		switch {
		case abs(st.ProgressMS-seen.PositionMS) > int(s.tolerance().Milliseconds()):
			s.try(ad, "seek", ad.Seek(ctx, st.ProgressMS))
			seen.PositionMS = st.ProgressMS
		case snap.PositionMS != prev.PositionMS:
			intents = append(intents, queue.Seek{ProgressMS: snap.PositionMS})
			seen.PositionMS = snap.PositionMS
		default:
			seen.PositionMS = st.ProgressMS
		}
	}

	switch {
	case st.Volume != seen.Volume || st.IsMuted != seen.IsMuted:
		if st.Volume != seen.Volume {
			s.try(ad, "set volume", ad.SetVolume(ctx, st.Volume))
		}
		if st.IsMuted != seen.IsMuted {
			if st.IsMuted {
				s.try(ad, "mute", ad.Mute(ctx))
			} else {
				s.try(ad, "unmute", ad.Unmute(ctx))
			}
		}
		seen.Volume, seen.IsMuted = st.Volume, st.IsMuted
	case st.IsAdjustingVolume:
		// user owns volume
	case snap.Volume != prev.Volume || snap.IsMuted != prev.IsMuted:
		muted := snap.IsMuted
		intents = append(intents, queue.SetVolume{Volume: snap.Volume, IsMuted: &muted})
		seen.Volume, seen.IsMuted = snap.Volume, snap.IsMuted
	}

	switch {
	case st.IsPlaying == seen.IsPaused:
		if st.IsPlaying {
			s.try(ad, "play", ad.Play(ctx))
		} else {
			s.try(ad, "pause", ad.Pause(ctx))
		}
		seen.IsPaused = !st.IsPlaying
	case snap.IsPaused != prev.IsPaused:
		if snap.IsPaused {
			intents = append(intents, queue.Pause{})
		} else {
			intents = append(intents, queue.Play{})
		}
		seen.IsPaused = snap.IsPaused
	}

	s.seen, s.prev = seen, snap
	s.dispatch(intents)
}

func (s *Synchronizer) dispatch(intents []queue.Intent) {
	if len(intents) > 0 {
		s.Store.Dispatch(intents...)
	}
}

// park pauses and rewinds an adapter that should be silent. It goes by what the player reports, not by
// Loaded: a load that failed or was abandoned may still have started audio.
func (s *Synchronizer) park(ctx context.Context, ad player.Adapter) {
	snap, err := ad.Snapshot(ctx)
	if err != nil {
		s.logger().Debug("snapshot failed", "provider", ad.Provider(), "err", err)
		return
	}
	if snap.IsPaused && snap.PositionMS == 0 {
		return
	}

	s.logger().Debug("parking inactive player", "provider", ad.Provider())
	if !snap.IsPaused {
		s.try(ad, "pause", ad.Pause(ctx))
	}
	s.try(ad, "seek", ad.Seek(ctx, 0))
}

func (s *Synchronizer) try(ad player.Adapter, op string, err error) {
	if err != nil {
		s.logger().Warn(op+" failed", "provider", ad.Provider(), "err", err)
	}
}

func (s *Synchronizer) tolerance() time.Duration {
	if s.SeekTolerance <= 0 {
		return DefaultSeekTolerance
	}
	return s.SeekTolerance
}

func (s *Synchronizer) logger() *log.Logger {
	if s.Logger == nil {
		s.Logger = log.New(io.Discard)
	}
	return s.Logger
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
