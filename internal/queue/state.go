package queue

import (
	"github.com/desertthunder/mixtape/internal/models"
)

const MaxVolume = 100

// State is the playback state of one session.
//
// Slices and maps are never modified in place by the reducer; a State obtained from a [Store] must be
// treated as read-only.
type State struct {
	IsPlaying   bool
	IsShuffleOn bool
	IsRepeatOn  bool

	DurationMS int
	ProgressMS int
	IsSeeking  bool // user is dragging the seek control and owns ProgressMS

	Volume            int
	IsMuted           bool
	IsAdjustingVolume bool // user owns Volume

	Playlists []models.PlaylistInfo
	Queue     []models.MediaID
	MediaInfo models.MediaInfoMap
	Cursor    int

	IsPlaylistEditorOpen bool
	IsKeyManagerOpen     bool
}

// NewState returns the state a session starts in: nothing queued, full volume, editor open.
func NewState() State {
	return State{
		Volume:               MaxVolume,
		MediaInfo:            models.MediaInfoMap{},
		IsPlaylistEditorOpen: true,
	}
}

// Current returns queue[cursor], or [models.NoMedia] for an empty queue.
func (s State) Current() models.MediaID {
	if s.Cursor < 0 || s.Cursor >= len(s.Queue) {
		return models.NoMedia
	}
	return s.Queue[s.Cursor]
}

func (s State) CurrentInfo() (models.MediaInfo, bool) {
	return s.MediaInfo.Get(s.Current())
}

func (s State) IsEmpty() bool {
	return len(s.Queue) == 0
}

// Refs returns the selection that produced the loaded playlists.
func (s State) Refs() []models.PlaylistRef {
	refs := make([]models.PlaylistRef, len(s.Playlists))
	for i, p := range s.Playlists {
		refs[i] = p.Ref()
	}
	return refs
}
