package queue

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
)

func seeded(seed uint64) Reducer {
	return Reducer{Rand: rand.New(rand.NewPCG(seed, seed+1))}
}

func playlist(p models.Provider, id string, n int) models.PlaylistInfo {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", id, i)
	}
	return models.PlaylistInfo{Provider: p, Type: models.PlaylistTypePlaylist, ID: id, MediaIDs: ids}
}

func loaded(r Reducer, playlists ...models.PlaylistInfo) State {
	return r.Reduce(NewState(), ReplacePlaylists{Playlists: playlists})
}

func sortedKeys(ids []models.MediaID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	slices.Sort(out)
	return out
}

func TestNewState(t *testing.T) {
	s := NewState()
	if !s.IsEmpty() || s.IsPlaying {
		t.Error("expected empty stopped queue")
	}
	if !s.IsPlaylistEditorOpen {
		t.Error("expected editor to be open on a fresh session")
	}
	if s.Volume != MaxVolume {
		t.Errorf("expected volume %d, got %d", MaxVolume, s.Volume)
	}
	if !s.Current().IsNone() {
		t.Errorf("expected no current media, got %v", s.Current())
	}
}

func TestPlayback(t *testing.T) {
	t.Run("Play on empty queue stays stopped", func(t *testing.T) {
		s := Reduce(NewState(), Play{})
		if s.IsPlaying {
			t.Error("empty queue must not play")
		}
		if s = Reduce(s, TogglePlay{}); s.IsPlaying {
			t.Error("toggle on empty queue must not play")
		}
	})

	t.Run("Play Pause Toggle", func(t *testing.T) {
		s := loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 2))
		s = Reduce(s, Play{})
		if !s.IsPlaying {
			t.Fatal("expected playing")
		}
		s = Reduce(s, TogglePlay{})
		if s.IsPlaying {
			t.Fatal("expected paused after toggle")
		}
		s = Reduce(Reduce(s, Play{}), Pause{})
		if s.IsPlaying {
			t.Fatal("expected paused")
		}
	})

	t.Run("emptying the queue stops playback", func(t *testing.T) {
		s := Reduce(loaded(Reducer{}, playlist(models.ProviderSpotify, "a", 3)), Play{})
		s = Reduce(s, ReplacePlaylists{})
		if s.IsPlaying || s.Cursor != 0 {
			t.Errorf("expected stopped at 0, got playing=%v cursor=%d", s.IsPlaying, s.Cursor)
		}
	})
}

func TestShuffle(t *testing.T) {
	t.Run("reshuffle is a permutation", func(t *testing.T) {
		for seed := uint64(0); seed < 20; seed++ {
			r := seeded(seed)
			s := loaded(r, playlist(models.ProviderYouTube, "yt", 7), playlist(models.ProviderSpotify, "sp", 5))
			want := sortedKeys(s.Queue)

			for _, in := range []Intent{ShuffleOn{}, ToggleShuffle{}, ToggleShuffle{}, ShuffleOn{}} {
				s = r.Reduce(s, in)
				if len(s.Queue) != 12 {
					t.Fatalf("seed %d %s: expected 12 items, got %d", seed, in.Name(), len(s.Queue))
				}
				if !slices.Equal(sortedKeys(s.Queue), want) {
					t.Fatalf("seed %d %s: queue is not a permutation", seed, in.Name())
				}
			}
		}
	})

	t.Run("shuffle on anchors the current track at 0", func(t *testing.T) {
		for seed := uint64(0); seed < 20; seed++ {
			r := seeded(seed)
			s := loaded(r, playlist(models.ProviderYouTube, "yt", 4), playlist(models.ProviderSpotify, "sp", 4))
			s = r.Reduce(s, PlayAt{Index: 5})
			current := s.Current()

			s = r.Reduce(s, ShuffleOn{})
			if s.Cursor != 0 {
				t.Errorf("seed %d: expected cursor 0, got %d", seed, s.Cursor)
			}
			if s.Current() != current {
				t.Errorf("seed %d: expected %v at cursor, got %v", seed, current, s.Current())
			}
		}
	})

	t.Run("shuffle off locates the current track in playlist order", func(t *testing.T) {
		r := seeded(7)
		s := loaded(r, playlist(models.ProviderYouTube, "yt", 6))
		s = r.Reduce(s, ShuffleOn{})
		s = r.Reduce(s, PlayAt{Index: 3})
		current := s.Current()

		s = r.Reduce(s, ShuffleOff{})
		if !slices.Equal(s.Queue, models.Flatten(s.Playlists)) {
			t.Error("expected playlist order after shuffle off")
		}
		if s.Current() != current {
			t.Errorf("expected %v under cursor, got %v", current, s.Current())
		}
	})

	t.Run("playlist edit keeps the current track", func(t *testing.T) {
		for _, shuffle := range []bool{false, true} {
			r := seeded(3)
			s := loaded(r, playlist(models.ProviderYouTube, "yt", 5))
			if shuffle {
				s = r.Reduce(s, ShuffleOn{})
			}
			s = r.Reduce(s, PlayAt{Index: 2})
			current := s.Current()

			s = r.Reduce(s, ReplacePlaylists{Playlists: append(slices.Clone(s.Playlists), playlist(models.ProviderSpotify, "sp", 3))})
			if len(s.Queue) != 8 {
				t.Fatalf("expected 8 tracks, got %d", len(s.Queue))
			}
			if s.Current() != current {
				t.Errorf("shuffle=%v: expected %v under cursor, got %v", shuffle, current, s.Current())
			}
		}
	})

	t.Run("removed current track clamps the cursor", func(t *testing.T) {
		s := loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 2), playlist(models.ProviderSpotify, "b", 2))
		s = Reduce(s, PlayAt{Index: 3})
		s = Reduce(s, ReplacePlaylists{Playlists: s.Playlists[:1]})
		if s.Cursor != 0 {
			t.Errorf("expected clamp to 0, got %d", s.Cursor)
		}
	})

	t.Run("does not modify the input state", func(t *testing.T) {
		r := seeded(11)
		s := loaded(r, playlist(models.ProviderYouTube, "yt", 10))
		before := slices.Clone(s.Queue)
		_ = r.Reduce(s, ShuffleOn{})
		if !slices.Equal(s.Queue, before) {
			t.Error("reducer modified the input queue")
		}
	})
}

func TestNavigation(t *testing.T) {
	t.Run("PlayNext wraps back after len(queue) steps", func(t *testing.T) {
		s := loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 3), playlist(models.ProviderSpotify, "b", 2))
		s = Reduce(s, PlayAt{Index: 2})
		for range len(s.Queue) {
			s = Reduce(s, PlayNext{})
		}
		if s.Cursor != 2 {
			t.Errorf("expected cursor 2, got %d", s.Cursor)
		}
	})

	t.Run("PlayPrevious wraps from the first track", func(t *testing.T) {
		s := loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 4))
		s = Reduce(s, PlayPrevious{})
		if s.Cursor != 3 {
			t.Errorf("expected cursor 3, got %d", s.Cursor)
		}
	})

	t.Run("navigation ignores repeat", func(t *testing.T) {
		s := loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 2))
		s = Reduce(Reduce(s, RepeatOff{}), PlayAt{Index: 1})
		if s = Reduce(s, PlayNext{}); s.Cursor != 0 {
			t.Errorf("expected wrap to 0, got %d", s.Cursor)
		}
	})

	t.Run("navigation on an empty queue is a no-op", func(t *testing.T) {
		s := NewState()
		if got := Reduce(s, PlayNext{}); got.Cursor != 0 || got.IsPlaying {
			t.Errorf("unexpected state %+v", got)
		}
		if got := Reduce(s, PlayAt{Index: 4}); got.Cursor != 0 || got.IsPlaying {
			t.Errorf("unexpected state %+v", got)
		}
	})

	t.Run("changing track resets position", func(t *testing.T) {
		s := loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 3))
		s = Reduce(s, Play{})
		s = Reduce(s, SetDuration{DurationMS: 200000})
		s = Reduce(s, Seek{ProgressMS: 90000, IsSeeking: true})

		s = Reduce(s, PlayNext{})
		if s.ProgressMS != 0 || s.DurationMS != 0 || s.IsSeeking {
			t.Errorf("expected reset position, got progress=%d duration=%d seeking=%v", s.ProgressMS, s.DurationMS, s.IsSeeking)
		}
		if !s.IsPlaying {
			t.Error("navigation must not stop playback")
		}
	})
}

func TestEndOfTrack(t *testing.T) {
	last := func(repeat bool) State {
		s := loaded(Reducer{}, playlist(models.ProviderSpotify, "a", 3))
		s = Reduce(s, PlayAt{Index: 2})
		if repeat {
			s = Reduce(s, RepeatOn{})
		}
		return s
	}

	t.Run("advances mid queue", func(t *testing.T) {
		s := Reduce(loaded(Reducer{}, playlist(models.ProviderSpotify, "a", 3)), Play{})
		s = Reduce(s, EndOfTrack{})
		if s.Cursor != 1 || !s.IsPlaying {
			t.Errorf("expected cursor 1 playing, got %d %v", s.Cursor, s.IsPlaying)
		}
	})

	t.Run("repeat wraps to the first track", func(t *testing.T) {
		s := Reduce(last(true), EndOfTrack{})
		if s.Cursor != 0 {
			t.Errorf("expected cursor 0, got %d", s.Cursor)
		}
		if !s.IsPlaying {
			t.Error("expected playback to continue")
		}
	})

	t.Run("without repeat stops on the last track", func(t *testing.T) {
		before := last(false)
		before = Reduce(before, Seek{ProgressMS: 1000})
		s := Reduce(before, EndOfTrack{})
		if s.IsPlaying {
			t.Error("expected playback to stop")
		}
		if s.Cursor != 2 {
			t.Errorf("expected cursor to stay at 2, got %d", s.Cursor)
		}
	})

	t.Run("single track repeat restarts", func(t *testing.T) {
		s := Reduce(loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 1)), RepeatOn{})
		s = Reduce(s, Play{})
		s = Reduce(s, Seek{ProgressMS: 5000})
		s = Reduce(s, EndOfTrack{})
		if s.Cursor != 0 || !s.IsPlaying || s.ProgressMS != 0 {
			t.Errorf("expected restart at 0, got cursor=%d playing=%v progress=%d", s.Cursor, s.IsPlaying, s.ProgressMS)
		}
	})
}

func TestVolume(t *testing.T) {
	tc := []struct {
		name      string
		intent    SetVolume
		wantVol   int
		wantMuted bool
	}{
		{name: "zero derives mute", intent: SetVolume{Volume: 0}, wantVol: 0, wantMuted: true},
		{name: "fifty derives unmute", intent: SetVolume{Volume: 50}, wantVol: 50, wantMuted: false},
		{name: "explicit mute wins", intent: SetVolume{Volume: 50, IsMuted: Bool(true)}, wantVol: 50, wantMuted: true},
		{name: "explicit unmute at zero", intent: SetVolume{Volume: 0, IsMuted: Bool(false)}, wantVol: 0, wantMuted: false},
		{name: "clamped high", intent: SetVolume{Volume: 180}, wantVol: 100, wantMuted: false},
		{name: "clamped low", intent: SetVolume{Volume: -4}, wantVol: 0, wantMuted: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			s := Reduce(NewState(), MuteOn{})
			s = Reduce(s, tt.intent)
			if s.Volume != tt.wantVol || s.IsMuted != tt.wantMuted {
				t.Errorf("got volume=%d muted=%v, want %d %v", s.Volume, s.IsMuted, tt.wantVol, tt.wantMuted)
			}
		})
	}

	t.Run("mute intents", func(t *testing.T) {
		s := Reduce(NewState(), MuteOn{})
		if !s.IsMuted {
			t.Error("expected muted")
		}
		if s = Reduce(s, ToggleMute{}); s.IsMuted {
			t.Error("expected unmuted")
		}
		if s = Reduce(Reduce(s, MuteOn{}), MuteOff{}); s.IsMuted || s.Volume != MaxVolume {
			t.Error("expected unmuted at full volume")
		}
	})

	t.Run("adjusting flag follows the intent", func(t *testing.T) {
		s := Reduce(NewState(), SetVolume{Volume: 30, IsAdjusting: true})
		if !s.IsAdjustingVolume {
			t.Error("expected adjusting")
		}
		if s = Reduce(s, SetVolume{Volume: 30}); s.IsAdjustingVolume {
			t.Error("expected adjusting to clear")
		}
	})
}

type renameIntent struct{}

func (renameIntent) Name() string { return "rename" }

func TestMiscIntents(t *testing.T) {
	t.Run("unknown intent is a no-op", func(t *testing.T) {
		s := loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 2))
		s = Reduce(s, Seek{ProgressMS: 10})
		got := Reduce(s, renameIntent{})
		if got.ProgressMS != s.ProgressMS || got.Cursor != s.Cursor || !slices.Equal(got.Queue, s.Queue) {
			t.Error("unknown intent changed state")
		}
	})

	t.Run("ReplaceQueue", func(t *testing.T) {
		s := loaded(Reducer{}, playlist(models.ProviderYouTube, "a", 4))
		s = Reduce(s, PlayAt{Index: 3})

		q := []models.MediaID{{Provider: models.ProviderSpotify, ID: "x"}, {Provider: models.ProviderSpotify, ID: "y"}}
		got := Reduce(s, ReplaceQueue{Queue: q})
		if got.Cursor != 0 {
			t.Errorf("expected out-of-range cursor to clamp, got %d", got.Cursor)
		}
		got = Reduce(s, ReplaceQueue{Queue: q, Cursor: Int(1)})
		if got.Current() != q[1] {
			t.Errorf("expected explicit cursor, got %v", got.Current())
		}
	})

	t.Run("Seek clamps to duration", func(t *testing.T) {
		s := Reduce(NewState(), SetDuration{DurationMS: 1000})
		if s = Reduce(s, Seek{ProgressMS: 5000}); s.ProgressMS != 1000 {
			t.Errorf("expected 1000, got %d", s.ProgressMS)
		}
		if s = Reduce(s, Seek{ProgressMS: -1}); s.ProgressMS != 0 {
			t.Errorf("expected 0, got %d", s.ProgressMS)
		}
	})

	t.Run("MergeMediaInfo and ReplacePlaylists metadata", func(t *testing.T) {
		id := models.MediaID{Provider: models.ProviderYouTube, ID: "a-0"}
		info := models.MediaInfoMap{}
		info.Set(id, models.MediaInfo{Title: "first"})

		s := Reduce(NewState(), ReplacePlaylists{Playlists: []models.PlaylistInfo{playlist(models.ProviderYouTube, "a", 1)}, MediaInfo: info})
		if got, ok := s.CurrentInfo(); !ok || got.Title != "first" {
			t.Fatalf("expected metadata for current track, got %v %v", got, ok)
		}

		more := models.MediaInfoMap{}
		more.Set(models.MediaID{Provider: models.ProviderSpotify, ID: "z"}, models.MediaInfo{Title: "late"})
		s = Reduce(s, MergeMediaInfo{MediaInfo: more})
		if s.MediaInfo.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", s.MediaInfo.Len())
		}
		if info.Len() != 1 {
			t.Error("intent metadata was modified")
		}
	})

	t.Run("modal flags", func(t *testing.T) {
		s := Reduce(NewState(), CloseEditor{})
		if s.IsPlaylistEditorOpen {
			t.Error("expected editor closed")
		}
		s = Reduce(s, OpenKeyManager{})
		if !s.IsKeyManagerOpen {
			t.Error("expected key manager open")
		}
		if s = Reduce(s, CloseKeyManager{}); s.IsKeyManagerOpen {
			t.Error("expected key manager closed")
		}
	})
}
