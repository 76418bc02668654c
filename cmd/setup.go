package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the template when missing, then opens the database to run migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("using existing config file", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.ResolveConfig(configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	version, err := shared.NewMigrator(db).Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.writePlain("✓ Config: %s\n", configPath)
	r.writePlain("✓ Database: %s (schema version %d)\n", r.config.Database.Path, version)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials in %s or via %s, %s and %s\n", configPath,
		shared.EnvSpotifyClientID, shared.EnvSpotifyClientSecret, shared.EnvYouTubeAPIKey)
	r.writePlain("2. Run 'mixtape auth login' to enable Spotify playback\n")
	r.writePlain("3. Run 'mixtape play <ref>...' to start listening\n")
	return nil
}
