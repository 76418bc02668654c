package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheStats prints the number of cached metadata entries per provider.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	counts, err := repositories.NewMediaInfoRepository(db).Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count cache entries: %w", err)
	}

	r.writePlainHeader("Metadata cache")
	total := 0
	for _, p := range []models.Provider{models.ProviderSpotify, models.ProviderYouTube} {
		r.writePlain("%-10s %d\n", p, counts[p])
		total += counts[p]
	}
	return r.writePlain("%-10s %d\n", "total", total)
}

// CacheClear removes every cached metadata entry. Stored credentials are kept.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	n, err := repositories.NewMediaInfoRepository(db).Clear(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	r.logger.Info("cache cleared", "entries", n)
	return r.writePlain("✓ Removed %d cached entries\n", n)
}
