package player

import (
	"context"
	"fmt"
	"math"

	"github.com/desertthunder/mixtape/internal/models"
)

// PlayerState mirrors the numeric states of the embeddable YouTube player.
type PlayerState int

const (
	StateUnstarted PlayerState = -1
	StateEnded     PlayerState = 0
	StatePlaying   PlayerState = 1
	StatePaused    PlayerState = 2
	StateBuffering PlayerState = 3
	StateCued      PlayerState = 5
)

func (s PlayerState) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// VideoPlayer is the embeddable YouTube player. Times are seconds, volume is 0..100.
type VideoPlayer interface {
	CueVideoByID(ctx context.Context, videoID string, startSeconds float64) error
	PlayVideo(ctx context.Context) error
	PauseVideo(ctx context.Context) error
	SeekTo(ctx context.Context, seconds float64, allowSeekAhead bool) error
	SetVolume(ctx context.Context, volume int) error
	GetVolume(ctx context.Context) (int, error)
	Mute(ctx context.Context) error
	UnMute(ctx context.Context) error
	IsMuted(ctx context.Context) (bool, error)
	GetCurrentTime(ctx context.Context) (float64, error)
	GetDuration(ctx context.Context) (float64, error)
	GetPlayerState(ctx context.Context) (PlayerState, error)
}

// YouTubeAdapter drives a single [VideoPlayer].
type YouTubeAdapter struct {
	player VideoPlayer
	gate   loadGate
	ready  readiness
}

func NewYouTubeAdapter(p VideoPlayer, opts ...Option) *YouTubeAdapter {
	return &YouTubeAdapter{player: p, ready: newReadiness(opts)}
}

func (a *YouTubeAdapter) Provider() models.Provider { return models.ProviderYouTube }

func (a *YouTubeAdapter) Loaded() models.MediaID {
	loaded, _ := a.gate.state()
	return loaded
}

// Load cues the video and waits for the player to leave the unstarted state.
func (a *YouTubeAdapter) Load(ctx context.Context, id models.MediaID) error {
	gen := a.gate.begin(id)
	issued, err := a.gate.start(ctx, gen, func(ctx context.Context) error {
		return a.player.CueVideoByID(ctx, id.ID, 0)
	})
	if err != nil {
		return a.gate.fail(gen, fmt.Errorf("cue %s: %w", id, err))
	}
	if !issued {
		return nil
	}

	return a.gate.await(ctx, gen, a.ready, func(ctx context.Context) (bool, error) {
		st, err := a.player.GetPlayerState(ctx)
		if err != nil {
			return false, err
		}
		return st == StateCued || st == StatePaused || st == StatePlaying, nil
	})
}

func (a *YouTubeAdapter) Play(ctx context.Context) error  { return a.player.PlayVideo(ctx) }
func (a *YouTubeAdapter) Pause(ctx context.Context) error { return a.player.PauseVideo(ctx) }

func (a *YouTubeAdapter) Seek(ctx context.Context, ms int) error {
	return a.player.SeekTo(ctx, float64(ms)/1000, true)
}

func (a *YouTubeAdapter) SetVolume(ctx context.Context, volume int) error {
	return a.player.SetVolume(ctx, volume)
}

func (a *YouTubeAdapter) Mute(ctx context.Context) error   { return a.player.Mute(ctx) }
func (a *YouTubeAdapter) Unmute(ctx context.Context) error { return a.player.UnMute(ctx) }

func (a *YouTubeAdapter) Snapshot(ctx context.Context) (Snapshot, error) {
	loaded, loading := a.gate.state()
	snap := Snapshot{MediaID: loaded, IsLoading: loading}

	st, err := a.player.GetPlayerState(ctx)
	if err != nil {
		return snap, err
	}
	pos, err := a.player.GetCurrentTime(ctx)
	if err != nil {
		return snap, err
	}
	dur, err := a.player.GetDuration(ctx)
	if err != nil {
		return snap, err
	}
	vol, err := a.player.GetVolume(ctx)
	if err != nil {
		return snap, err
	}
	muted, err := a.player.IsMuted(ctx)
	if err != nil {
		return snap, err
	}

	snap.IsPaused = st != StatePlaying && st != StateBuffering
	snap.IsEnded = st == StateEnded
	snap.PositionMS = seconds(pos)
	snap.DurationMS = seconds(dur)
	snap.Volume = vol
	snap.IsMuted = muted
	return snap, nil
}

func seconds(s float64) int {
	return int(math.Round(s * 1000))
}
