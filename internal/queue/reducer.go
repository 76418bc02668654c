package queue

import (
	"math/rand/v2"
	"slices"

	"github.com/desertthunder/mixtape/internal/models"
)

// Rand is the randomness source of a shuffle. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Reducer computes state transitions. The zero value draws from the math/rand/v2 global source.
type Reducer struct {
	Rand Rand
}

// Reduce applies intent with the default [Reducer].
func Reduce(s State, intent Intent) State {
	return Reducer{}.Reduce(s, intent)
}

// Reduce returns the state after intent. It never modifies s and returns s unchanged for unknown intents.
func (r Reducer) Reduce(s State, intent Intent) State {
	prev := s.Current()

	switch in := intent.(type) {
	case Play:
		s.IsPlaying = !s.IsEmpty()
	case Pause:
		s.IsPlaying = false
	case TogglePlay:
		s.IsPlaying = !s.IsPlaying && !s.IsEmpty()

	case EndOfTrack:
		s = endOfTrack(s)
		return trackChanged(s, prev, s.IsPlaying)

	case ShuffleOn:
		s.IsShuffleOn = true
		s = r.reshuffle(s)
	case ShuffleOff:
		s.IsShuffleOn = false
		s = r.reshuffle(s)
	case ToggleShuffle:
		s.IsShuffleOn = !s.IsShuffleOn
		s = r.reshuffle(s)

	case RepeatOn:
		s.IsRepeatOn = true
	case RepeatOff:
		s.IsRepeatOn = false
	case ToggleRepeat:
		s.IsRepeatOn = !s.IsRepeatOn

	case SetDuration:
		s.DurationMS = max(in.DurationMS, 0)
	case Seek:
		s.ProgressMS = max(in.ProgressMS, 0)
		if s.DurationMS > 0 {
			s.ProgressMS = min(s.ProgressMS, s.DurationMS)
		}
		s.IsSeeking = in.IsSeeking

	case SetVolume:
		s.Volume = clampVolume(in.Volume)
		if in.IsMuted != nil {
			s.IsMuted = *in.IsMuted
		} else {
			s.IsMuted = s.Volume == 0
		}
		s.IsAdjustingVolume = in.IsAdjusting
	case MuteOn:
		s.IsMuted = true
	case MuteOff:
		s.IsMuted = false
	case ToggleMute:
		s.IsMuted = !s.IsMuted

	case ReplacePlaylists:
		s.Playlists = slices.Clone(in.Playlists)
		if in.MediaInfo != nil {
			s.MediaInfo = s.MediaInfo.Merge(in.MediaInfo)
		}
		s = r.reshuffle(s)
	case ReplaceQueue:
		s.Queue = slices.Clone(in.Queue)
		if in.Cursor != nil {
			s.Cursor = *in.Cursor
		}
		s.Cursor = clampCursor(s.Cursor, len(s.Queue))
	case MergeMediaInfo:
		s.MediaInfo = s.MediaInfo.Merge(in.MediaInfo)

	case PlayPrevious:
		if s.IsEmpty() {
			return s
		}
		s.Cursor = (s.Cursor - 1 + len(s.Queue)) % len(s.Queue)
		return trackChanged(s, prev, true)
	case PlayNext:
		if s.IsEmpty() {
			return s
		}
		s.Cursor = (s.Cursor + 1) % len(s.Queue)
		return trackChanged(s, prev, true)
	case PlayAt:
		if in.Index < 0 || in.Index >= len(s.Queue) {
			return s
		}
		s.Cursor = in.Index
		s.IsPlaying = true
		return trackChanged(s, prev, true)

	case OpenEditor:
		s.IsPlaylistEditorOpen = true
	case CloseEditor:
		s.IsPlaylistEditorOpen = false
	case OpenKeyManager:
		s.IsKeyManagerOpen = true
	case CloseKeyManager:
		s.IsKeyManagerOpen = false

	default:
		return s
	}

	return trackChanged(s, prev, false)
}

// endOfTrack advances when there is a next track or repeat is on, and stops at the last track otherwise.
func endOfTrack(s State) State {
	n := len(s.Queue)
	if n == 0 {
		s.IsPlaying = false
		return s
	}
	if s.Cursor < n-1 || s.IsRepeatOn {
		s.Cursor = (s.Cursor + 1) % n
		return s
	}
	s.IsPlaying = false
	return s
}

// trackChanged restores the invariants tied to the current track. A new track starts at 0 with an
// unknown duration; restart applies the same reset when the track stayed the same.
func trackChanged(s State, prev models.MediaID, restart bool) State {
	if s.IsEmpty() {
		s.IsPlaying = false
		s.Cursor = 0
	}
	if cur := s.Current(); cur != prev || (restart && !cur.IsNone()) {
		s.ProgressMS = 0
		s.DurationMS = 0
		s.IsSeeking = false
	}
	return s
}

// reshuffle rebuilds the queue from the playlists, keeping the current track. See the package doc for how
// the cursor moves.
func (r Reducer) reshuffle(s State) State {
	prev := s.Current()

	l := models.Flatten(s.Playlists)
	if s.IsShuffleOn {
		r.shuffle(l)
	}

	cursor := s.Cursor
	placed := false
	if !prev.IsNone() {
		if i := slices.Index(l, prev); i >= 0 {
			if s.IsShuffleOn {
				l[0], l[i] = l[i], l[0]
				cursor = 0
			} else {
				cursor = i
			}
			placed = true
		}
	}
	if !placed {
		cursor = clampCursor(cursor, len(l))
	}

	s.Queue = l
	s.Cursor = cursor
	return s
}

// shuffle is an in-place Fisher-Yates shuffle.
func (r Reducer) shuffle(l []models.MediaID) {
	src := r.Rand
	if src == nil {
		src = globalRand{}
	}
	for i := len(l) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		l[i], l[j] = l[j], l[i]
	}
}

func clampCursor(c, n int) int {
	if c < 0 || c >= n {
		return 0
	}
	return c
}

func clampVolume(v int) int {
	return min(max(v, 0), MaxVolume)
}
