package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

func youtubeAPI(t *testing.T) *YouTubeService {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /youtube/v3/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "PL1" {
			writeJSON(w, map[string]any{"items": []any{}})
			return
		}
		writeJSON(w, map[string]any{"items": []any{map[string]any{
			"id": "PL1",
			"snippet": map[string]any{
				"title": "Lo-fi",
				"thumbnails": map[string]any{
					"default": map[string]any{"url": "https://i.ytimg.com/d.jpg", "width": 120, "height": 90},
					"high":    map[string]any{"url": "https://i.ytimg.com/h.jpg", "width": 480, "height": 360},
				},
			},
			"contentDetails": map[string]any{"itemCount": 3},
		}}})
	})
	mux.HandleFunc("GET /youtube/v3/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"nextPageToken": "page2",
				"items": []any{
					map[string]any{"contentDetails": map[string]any{"videoId": "v1"}},
					map[string]any{"contentDetails": map[string]any{"videoId": "v2"}},
				},
			})
			return
		}
		writeJSON(w, map[string]any{"items": []any{
			map[string]any{"contentDetails": map[string]any{"videoId": "v3"}},
		}})
	})
	mux.HandleFunc("GET /youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		var items []any
		for id := range strings.SplitSeq(r.URL.Query().Get("id"), ",") {
			if id == "gone" {
				continue
			}
			items = append(items, map[string]any{
				"id": id,
				"snippet": map[string]any{
					"title":        "Video " + id,
					"channelTitle": "Channel",
				},
				"contentDetails": map[string]any{"duration": "PT3M21S"},
			})
		}
		writeJSON(w, map[string]any{"items": items})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("key") {
		case "test-key":
			mux.ServeHTTP(w, r)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"code":400,"message":"API key not valid."}}`))
		}
	}))
	t.Cleanup(srv.Close)

	y, err := NewYouTubeService(context.Background(), "test-key",
		WithYouTubeEndpoint(srv.URL+"/"),
		WithYouTubeHTTPClient(srv.Client()),
		WithYouTubeRateLimit(1000),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return y
}

func TestYouTubeService(t *testing.T) {
	ctx := context.Background()

	t.Run("requires an API key", func(t *testing.T) {
		if _, err := NewYouTubeService(ctx, ""); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("FetchPlaylist pages through items", func(t *testing.T) {
		y := youtubeAPI(t)

		info, err := y.FetchPlaylist(ctx, models.PlaylistRef{Provider: models.ProviderYouTube, Type: models.PlaylistTypePlaylist, ID: "PL1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Title != "Lo-fi" {
			t.Errorf("expected title Lo-fi, got %s", info.Title)
		}
		if strings.Join(info.MediaIDs, ",") != "v1,v2,v3" {
			t.Errorf("expected v1,v2,v3, got %v", info.MediaIDs)
		}
		if info.Thumbnail.URL != "https://i.ytimg.com/h.jpg" || info.Thumbnail.Width != 480 {
			t.Errorf("expected the largest thumbnail, got %+v", info.Thumbnail)
		}
	})

	t.Run("FetchPlaylist missing playlist", func(t *testing.T) {
		y := youtubeAPI(t)

		_, err := y.FetchPlaylist(ctx, models.PlaylistRef{Provider: models.ProviderYouTube, Type: models.PlaylistTypePlaylist, ID: "nope"})
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("FetchPlaylist video", func(t *testing.T) {
		y := youtubeAPI(t)

		info, err := y.FetchPlaylist(ctx, models.PlaylistRef{Provider: models.ProviderYouTube, Type: models.PlaylistTypeVideo, ID: "v9"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Title != "Video v9" || len(info.MediaIDs) != 1 {
			t.Errorf("unexpected video playlist %+v", info)
		}
		if info.Thumbnail != (models.Thumbnail{}) {
			t.Errorf("expected zero thumbnail, got %+v", info.Thumbnail)
		}
	})

	t.Run("FetchPlaylist rejects album refs", func(t *testing.T) {
		y := youtubeAPI(t)

		_, err := y.FetchPlaylist(ctx, models.PlaylistRef{Provider: models.ProviderYouTube, Type: models.PlaylistTypeAlbum, ID: "x"})
		if !errors.Is(err, shared.ErrUnsupportedRef) {
			t.Errorf("expected ErrUnsupportedRef, got %v", err)
		}
	})

	t.Run("FetchMediaInfo", func(t *testing.T) {
		y := youtubeAPI(t)

		info, err := y.FetchMediaInfo(ctx, []string{"v1", "gone", "v2"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(info) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(info))
		}
		if got := info["v1"]; got.Title != "Video v1" || got.Artist() != "Channel" || got.DurationMS != 201000 {
			t.Errorf("unexpected media info %+v", got)
		}
	})

	t.Run("upstream errors keep the status", func(t *testing.T) {
		y := youtubeAPI(t)
		y.apiKey = "wrong"

		_, err := y.FetchMediaInfo(ctx, []string{"v1"})
		var upstream *shared.UpstreamError
		if !errors.As(err, &upstream) || upstream.Status != http.StatusBadRequest {
			t.Fatalf("expected 400 upstream error, got %v", err)
		}
		if !strings.Contains(upstream.Body, "API key not valid") {
			t.Errorf("expected body to be kept, got %q", upstream.Body)
		}
	})
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT3M21S", 3*time.Minute + 21*time.Second},
		{"PT1H", time.Hour},
		{"PT45S", 45 * time.Second},
		{"P1DT2H", 26 * time.Hour},
		{"PT1.5S", 1500 * time.Millisecond},
		{"P0D", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseISODuration(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	for _, bad := range []string{"", "PT", "3M21S", "PT3X"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			if _, err := ParseISODuration(bad); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
