package player

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SimVideoPlayer is a clock-driven [VideoPlayer] with no video surface. Playback advances with the
// clock and ends at the video's duration.
type SimVideoPlayer struct {
	mu        sync.Mutex
	now       func() time.Time
	durations func(videoID string) time.Duration
	cueDelay  time.Duration

	videoID string
	state   PlayerState
	cuedAt  time.Time
	pos     time.Duration
	anchor  time.Time
	dur     time.Duration
	volume  int
	muted   bool
}

type SimOption func(*SimVideoPlayer)

func WithClock(now func() time.Time) SimOption {
	return func(p *SimVideoPlayer) { p.now = now }
}

// WithDurations supplies video lengths. Videos with a zero length play forever.
func WithDurations(fn func(videoID string) time.Duration) SimOption {
	return func(p *SimVideoPlayer) { p.durations = fn }
}

// WithCueDelay keeps a cued video unstarted for d.
func WithCueDelay(d time.Duration) SimOption {
	return func(p *SimVideoPlayer) { p.cueDelay = d }
}

func NewSimVideoPlayer(opts ...SimOption) *SimVideoPlayer {
	p := &SimVideoPlayer{
		now:       time.Now,
		durations: func(string) time.Duration { return 0 },
		state:     StateUnstarted,
		volume:    100,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// advance moves the state forward to the current clock. Callers hold mu.
func (p *SimVideoPlayer) advance() {
	now := p.now()
	if p.state == StateUnstarted && p.videoID != "" && !now.Before(p.cuedAt.Add(p.cueDelay)) {
		p.state = StateCued
	}
	if p.state == StatePlaying && p.dur > 0 && p.position(now) >= p.dur {
		p.pos = p.dur
		p.state = StateEnded
	}
}

func (p *SimVideoPlayer) position(now time.Time) time.Duration {
	if p.state == StatePlaying {
		return p.pos + now.Sub(p.anchor)
	}
	return p.pos
}

func (p *SimVideoPlayer) CueVideoByID(_ context.Context, videoID string, startSeconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.videoID = videoID
	p.state = StateUnstarted
	p.cuedAt = p.now()
	p.pos = time.Duration(startSeconds * float64(time.Second))
	p.dur = p.durations(videoID)
	p.advance()
	return nil
}

func (p *SimVideoPlayer) PlayVideo(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	switch p.state {
	case StateUnstarted:
		if p.videoID == "" {
			return fmt.Errorf("no video cued")
		}
		return nil
	case StatePlaying:
		return nil
	case StateEnded:
		p.pos = 0
	}
	p.state = StatePlaying
	p.anchor = p.now()
	return nil
}

func (p *SimVideoPlayer) PauseVideo(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	switch p.state {
	case StatePlaying:
		p.pos = p.position(p.now())
		p.state = StatePaused
	case StateCued:
		p.state = StatePaused
	}
	return nil
}

func (p *SimVideoPlayer) SeekTo(_ context.Context, seconds float64, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	pos := max(time.Duration(seconds*float64(time.Second)), 0)
	if p.dur > 0 {
		pos = min(pos, p.dur)
	}
	p.pos = pos
	p.anchor = p.now()
	if p.state == StateEnded && (p.dur == 0 || pos < p.dur) {
		p.state = StatePaused
	}
	return nil
}

func (p *SimVideoPlayer) SetVolume(_ context.Context, volume int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = min(max(volume, 0), 100)
	return nil
}

func (p *SimVideoPlayer) GetVolume(context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume, nil
}

func (p *SimVideoPlayer) Mute(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = true
	return nil
}

func (p *SimVideoPlayer) UnMute(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = false
	return nil
}

func (p *SimVideoPlayer) IsMuted(context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted, nil
}

func (p *SimVideoPlayer) GetCurrentTime(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	return p.position(p.now()).Seconds(), nil
}

func (p *SimVideoPlayer) GetDuration(context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dur.Seconds(), nil
}

func (p *SimVideoPlayer) GetPlayerState(context.Context) (PlayerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance()
	return p.state, nil
}

// VideoID returns the cued video.
func (p *SimVideoPlayer) VideoID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoID
}
