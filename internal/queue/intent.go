package queue

import "github.com/desertthunder/mixtape/internal/models"

// Intent is a discrete request to change [State]. Name is used in logs.
type Intent interface {
	Name() string
}

type (
	Play          struct{}
	Pause         struct{}
	TogglePlay    struct{}
	EndOfTrack    struct{}
	ShuffleOn     struct{}
	ShuffleOff    struct{}
	ToggleShuffle struct{}
	RepeatOn      struct{}
	RepeatOff     struct{}
	ToggleRepeat  struct{}
	MuteOn        struct{}
	MuteOff       struct{}
	ToggleMute    struct{}
	PlayPrevious  struct{}
	PlayNext      struct{}

	OpenEditor      struct{}
	CloseEditor     struct{}
	OpenKeyManager  struct{}
	CloseKeyManager struct{}
)

type SetDuration struct {
	DurationMS int
}

type Seek struct {
	ProgressMS int
	IsSeeking  bool
}

// SetVolume sets the volume. A nil IsMuted derives the flag from Volume == 0.
type SetVolume struct {
	Volume      int
	IsMuted     *bool
	IsAdjusting bool
}

type ReplacePlaylists struct {
	Playlists []models.PlaylistInfo
	MediaInfo models.MediaInfoMap
}

// ReplaceQueue installs an explicit play order. A nil Cursor keeps the previous one when it is in range.
type ReplaceQueue struct {
	Queue  []models.MediaID
	Cursor *int
}

// PlayAt jumps to Index. Callers keep Index within the queue.
type PlayAt struct {
	Index int
}

// MergeMediaInfo adds metadata that arrived after the playlists were installed.
type MergeMediaInfo struct {
	MediaInfo models.MediaInfoMap
}

func (Play) Name() string             { return "play" }
func (Pause) Name() string            { return "pause" }
func (TogglePlay) Name() string       { return "toggle_play" }
func (EndOfTrack) Name() string       { return "end_of_track" }
func (ShuffleOn) Name() string        { return "shuffle_on" }
func (ShuffleOff) Name() string       { return "shuffle_off" }
func (ToggleShuffle) Name() string    { return "toggle_shuffle" }
func (RepeatOn) Name() string         { return "repeat_on" }
func (RepeatOff) Name() string        { return "repeat_off" }
func (ToggleRepeat) Name() string     { return "toggle_repeat" }
func (MuteOn) Name() string           { return "mute_on" }
func (MuteOff) Name() string          { return "mute_off" }
func (ToggleMute) Name() string       { return "toggle_mute" }
func (PlayPrevious) Name() string     { return "play_previous" }
func (PlayNext) Name() string         { return "play_next" }
func (OpenEditor) Name() string       { return "open_editor" }
func (CloseEditor) Name() string      { return "close_editor" }
func (OpenKeyManager) Name() string   { return "open_key_manager" }
func (CloseKeyManager) Name() string  { return "close_key_manager" }
func (SetDuration) Name() string      { return "set_duration" }
func (Seek) Name() string             { return "seek" }
func (SetVolume) Name() string        { return "set_volume" }
func (ReplacePlaylists) Name() string { return "replace_playlists" }
func (ReplaceQueue) Name() string     { return "replace_queue" }
func (PlayAt) Name() string           { return "play_at" }
func (MergeMediaInfo) Name() string   { return "merge_media_info" }

// Bool returns a pointer to b, for the optional fields of [SetVolume].
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for [ReplaceQueue].
func Int(i int) *int { return &i }
