// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/player"
)

// FakeAdapter is an in-memory [player.Adapter]. Mutators apply instantly; tests move the native side
// with [FakeAdapter.Update].
type FakeAdapter struct {
	mu       sync.Mutex
	provider models.Provider
	loaded   models.MediaID
	snap     player.Snapshot
	calls    []string

	// LoadErr fails every Load when set.
	LoadErr error
}

func NewFakeAdapter(p models.Provider) *FakeAdapter {
	return &FakeAdapter{provider: p, snap: player.Snapshot{IsPaused: true, Volume: 100}}
}

func (f *FakeAdapter) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *FakeAdapter) Provider() models.Provider { return f.provider }

func (f *FakeAdapter) Load(_ context.Context, id models.MediaID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("load %s", id)
	if f.LoadErr != nil {
		f.loaded = models.NoMedia
		return f.LoadErr
	}
	f.loaded = id
	f.snap.MediaID = id
	f.snap.IsPaused = true
	f.snap.IsEnded = false
	f.snap.PositionMS = 0
	return nil
}

func (f *FakeAdapter) Play(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("play")
	f.snap.IsPaused = false
	f.snap.IsEnded = false
	return nil
}

func (f *FakeAdapter) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pause")
	f.snap.IsPaused = true
	return nil
}

func (f *FakeAdapter) Seek(_ context.Context, ms int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("seek %d", ms)
	f.snap.PositionMS = ms
	f.snap.IsEnded = false
	return nil
}

func (f *FakeAdapter) SetVolume(_ context.Context, volume int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("volume %d", volume)
	f.snap.Volume = volume
	return nil
}

func (f *FakeAdapter) Mute(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("mute")
	f.snap.IsMuted = true
	return nil
}

func (f *FakeAdapter) Unmute(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("unmute")
	f.snap.IsMuted = false
	return nil
}

func (f *FakeAdapter) Snapshot(context.Context) (player.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, nil
}

func (f *FakeAdapter) Loaded() models.MediaID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Update changes the snapshot as if the player had moved on its own.
func (f *FakeAdapter) Update(fn func(*player.Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.snap)
}

// Calls returns the recorded mutator calls and forgets them.
func (f *FakeAdapter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.calls
	f.calls = nil
	return out
}

// FakeFetcher serves canned playlists and media info and counts the ids it was asked for.
type FakeFetcher struct {
	mu        sync.Mutex
	provider  models.Provider
	Playlists map[string]*models.PlaylistInfo
	Info      map[string]models.MediaInfo
	Requested []string
	Err       error
}

func NewFakeFetcher(p models.Provider) *FakeFetcher {
	return &FakeFetcher{provider: p, Playlists: map[string]*models.PlaylistInfo{}, Info: map[string]models.MediaInfo{}}
}

func (f *FakeFetcher) Provider() models.Provider { return f.provider }

func (f *FakeFetcher) FetchPlaylist(_ context.Context, ref models.PlaylistRef) (*models.PlaylistInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.Playlists[ref.ID]
	if !ok {
		return nil, fmt.Errorf("playlist %s: not found", ref)
	}
	cp := *p
	return &cp, nil
}

func (f *FakeFetcher) FetchMediaInfo(_ context.Context, ids []string) (map[string]models.MediaInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make(map[string]models.MediaInfo, len(ids))
	for _, id := range ids {
		f.Requested = append(f.Requested, id)
		if info, ok := f.Info[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
