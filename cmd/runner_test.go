package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	tu "github.com/desertthunder/mixtape/internal/testing"
)

const credentialsConfig = `[credentials.spotify]
client_id = "test-id"
client_secret = "test-secret"

[server]
host = "127.0.0.1"
port = 0
`

type harness struct {
	runner    *Runner
	output    *bytes.Buffer
	db        *sql.DB
	opened    []string
	clipboard []string
}

// newHarness runs the test in a fresh directory holding configBody as config.toml, when given.
func newHarness(t *testing.T, configBody string, fetchers services.Fetchers) *harness {
	t.Helper()

	wd := tu.MustGetwd(t)
	tu.MustChdir(t, t.TempDir())
	t.Cleanup(func() { tu.MustChdir(t, wd) })

	if configBody != "" {
		if err := os.WriteFile("config.toml", []byte(configBody), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
	}

	db, err := shared.OpenDatabase(shared.DatabaseConfig{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := &harness{output: &bytes.Buffer{}, db: db}
	h.runner = NewRunner(RunnerOpts{
		Logger:   log.New(io.Discard),
		Output:   h.output,
		DB:       db,
		Fetchers: fetchers,
		OpenBrowser: func(u string) error {
			h.opened = append(h.opened, u)
			return nil
		},
		Clipboard: func(s string) error {
			h.clipboard = append(h.clipboard, s)
			return nil
		},
	})
	return h
}

func (h *harness) run(args ...string) error {
	return rootCommand(h.runner).Run(context.Background(), append([]string{"mixtape"}, args...))
}

func testFetchers() services.Fetchers {
	yt := tu.NewFakeFetcher(models.ProviderYouTube)
	info := models.PlaylistInfo{
		Provider: models.ProviderYouTube,
		Type:     models.PlaylistTypePlaylist,
		ID:       "PL1",
		Title:    "Lo-fi",
	}.WithMediaIDs([]string{"v1", "v2"})
	yt.Playlists["PL1"] = &info
	yt.Info["v1"] = models.MediaInfo{Title: "Video One", Authors: []string{"Channel"}, DurationMS: 90000}
	yt.Info["v2"] = models.MediaInfo{Title: "Video Two", DurationMS: 30000}
	return services.NewFetchers(yt)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			fetchers := testFetchers()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Fetchers:   fetchers,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if len(runner.fetchers) != 1 {
				t.Error("expected fetchers to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.openBrowser == nil || runner.clipboard == nil {
				t.Error("expected browser and clipboard defaults")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "logout", "play", "queue", "share", "cache"} {
			if !names[want] {
				t.Errorf("expected %s command", want)
			}
		}
	})
}

func TestShare(t *testing.T) {
	t.Run("prints the encoded selection", func(t *testing.T) {
		h := newHarness(t, "", nil)

		if err := h.run("share", "spotify:album:A1", "https://www.youtube.com/watch?v=V1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := "p=spotify%3Aalbum%3AA1&p=youtube%3Avideo%3AV1\n"
		if h.output.String() != want {
			t.Errorf("expected %q, got %q", want, h.output.String())
		}
		if len(h.clipboard) != 0 {
			t.Error("clipboard should not be touched without --copy")
		}
	})

	t.Run("copies with a base URL", func(t *testing.T) {
		h := newHarness(t, "", nil)

		if err := h.run("share", "--copy", "--base", "https://mixtape.local/play", "spotify:track:T1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := "https://mixtape.local/play?p=spotify%3Atrack%3AT1"
		if len(h.clipboard) != 1 || h.clipboard[0] != want {
			t.Errorf("expected clipboard %q, got %v", want, h.clipboard)
		}
	})

	t.Run("requires refs", func(t *testing.T) {
		h := newHarness(t, "", nil)

		if err := h.run("share"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("rejects invalid refs", func(t *testing.T) {
		h := newHarness(t, "", nil)

		if err := h.run("share", "youtube:album:x"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestQueue(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		h := newHarness(t, "", testFetchers())

		if err := h.run("queue", "--format", "json", "youtube:playlist:PL1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var out queueOutput
		if err := json.Unmarshal(h.output.Bytes(), &out); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, h.output.String())
		}
		if out.Selection != "p=youtube%3Aplaylist%3APL1" {
			t.Errorf("unexpected selection %s", out.Selection)
		}
		if len(out.Queue) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(out.Queue))
		}
		if out.Queue[0].ID != "youtube:v1" || out.Queue[0].Title != "Video One" || !out.Queue[0].Current {
			t.Errorf("unexpected first entry %+v", out.Queue[0])
		}
	})

	t.Run("table", func(t *testing.T) {
		h := newHarness(t, "", testFetchers())

		if err := h.run("queue", "youtube:playlist:PL1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Video One", "Video Two", "Channel"} {
			if !strings.Contains(h.output.String(), want) {
				t.Errorf("expected %q in table:\n%s", want, h.output.String())
			}
		}
	})

	t.Run("csv to stdout and file", func(t *testing.T) {
		h := newHarness(t, "", testFetchers())

		if err := h.run("queue", "-f", "csv", "youtube:playlist:PL1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(h.output.String(), "Position,Provider,ID,Title,Artist,DurationMS") {
			t.Errorf("expected CSV header, got %q", h.output.String())
		}

		path := filepath.Join(t.TempDir(), "queue.csv")
		if err := h.run("queue", "-f", "csv", "-o", path, "youtube:playlist:PL1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "Video Two") {
			t.Error("expected exported rows")
		}
	})

	t.Run("metadata is cached", func(t *testing.T) {
		fetchers := testFetchers()
		h := newHarness(t, "", fetchers)

		if err := h.run("queue", "-f", "txt", "youtube:playlist:PL1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := repositories.NewMediaInfoRepository(h.db).Get(context.Background(), models.MediaID{Provider: models.ProviderYouTube, ID: "v2"})
		if err != nil {
			t.Fatalf("expected cached entry: %v", err)
		}
		if info.Title != "Video Two" {
			t.Errorf("unexpected cached title %s", info.Title)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		h := newHarness(t, "", testFetchers())

		if err := h.run("queue", "-f", "yaml", "youtube:playlist:PL1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("nothing resolves", func(t *testing.T) {
		h := newHarness(t, "", testFetchers())

		if err := h.run("queue", "youtube:playlist:missing"); !errors.Is(err, tasks.ErrNothingLoaded) {
			t.Errorf("expected ErrNothingLoaded, got %v", err)
		}
	})
}

func TestCache(t *testing.T) {
	h := newHarness(t, "", nil)
	repo := repositories.NewMediaInfoRepository(h.db)
	ctx := context.Background()

	if err := repo.Put(ctx, models.MediaID{Provider: models.ProviderYouTube, ID: "v1"}, models.MediaInfo{Title: "One"}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	t.Run("stats", func(t *testing.T) {
		h.output.Reset()
		if err := h.run("cache", "stats"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := h.output.String()
		if !strings.Contains(out, "youtube    1") || !strings.Contains(out, "spotify    0") {
			t.Errorf("unexpected stats:\n%s", out)
		}
	})

	t.Run("clear", func(t *testing.T) {
		h.output.Reset()
		if err := h.run("cache", "clear"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "Removed 1 cached entries") {
			t.Errorf("unexpected output %q", h.output.String())
		}

		counts, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(counts) != 0 {
			t.Errorf("expected empty cache, got %v", counts)
		}
	})
}

func TestAuth(t *testing.T) {
	t.Run("status and logout", func(t *testing.T) {
		h := newHarness(t, credentialsConfig, nil)
		ctx := context.Background()

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "no session") {
			t.Errorf("expected no session, got %q", h.output.String())
		}

		store := repositories.NewCookieRepository(h.db)
		tokens := session.Tokens{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}
		if err := store.Save(ctx, tokens); err != nil {
			t.Fatalf("failed to save tokens: %v", err)
		}

		h.output.Reset()
		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.output.String(), "active") {
			t.Errorf("expected active session, got %q", h.output.String())
		}

		if err := h.run("logout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		loaded, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loaded.AccessToken != "" || loaded.RefreshToken != "" {
			t.Errorf("expected both tokens cleared, got %+v", loaded)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		h := newHarness(t, "[credentials.spotify]\nclient_id = \"\"\nclient_secret = \"\"\n", nil)

		if err := h.run("auth", "status"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("login times out", func(t *testing.T) {
		h := newHarness(t, credentialsConfig, nil)

		err := h.run("auth", "login", "--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if len(h.opened) != 1 {
			t.Fatalf("expected the browser to be opened once, got %d", len(h.opened))
		}
		if !strings.Contains(h.opened[0], "client_id=test-id") || !strings.Contains(h.opened[0], "state=") {
			t.Errorf("unexpected authorization URL %s", h.opened[0])
		}
	})

	t.Run("login without a browser prints the URL", func(t *testing.T) {
		h := newHarness(t, credentialsConfig, nil)

		if err := h.run("auth", "login", "--no-browser", "--timeout", "20ms"); !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if len(h.opened) != 0 {
			t.Error("browser should not be opened")
		}
		if !strings.Contains(h.output.String(), "accounts.spotify.com/authorize") {
			t.Errorf("expected authorization URL in output, got %q", h.output.String())
		}
	})
}

func TestSetup(t *testing.T) {
	h := newHarness(t, "", nil)

	if err := h.run("setup"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tu.AssertFileExists(t, "config.toml")
	if !strings.Contains(h.output.String(), "schema version 2") {
		t.Errorf("unexpected output %q", h.output.String())
	}

	h.output.Reset()
	if err := h.run("setup"); err != nil {
		t.Fatalf("second setup should reuse the config, got %v", err)
	}
}
