package shared

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	EnvSpotifyClientID     = "MIXTAPE_SPOTIFY_CLIENT_ID"
	EnvSpotifyClientSecret = "MIXTAPE_SPOTIFY_CLIENT_SECRET"
	EnvYouTubeAPIKey       = "MIXTAPE_YOUTUBE_API_KEY"
	EnvDatabasePath        = "MIXTAPE_DATABASE_PATH"
)

// LoadEnvFiles loads .env style files into the process environment. Missing files are skipped and
// variables already set in the environment win.
func LoadEnvFiles(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides credential and database settings from MIXTAPE_* environment variables.
func ApplyEnv(c *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	set(&c.Credentials.Spotify.ClientID, EnvSpotifyClientID)
	set(&c.Credentials.Spotify.ClientSecret, EnvSpotifyClientSecret)
	set(&c.Credentials.YouTube.APIKey, EnvYouTubeAPIKey)
	set(&c.Database.Path, EnvDatabasePath)
}
