package maintenance

import (
	"context"
	"log/slog"
	"time"

	"sightline/pkg/db"
)

// Elevation samples are effectively static terrain data; a long retention
// keeps reopened frames cheap without letting the table grow unbounded.
const elevationRetention = 90 * 24 * time.Hour

// Run executes startup maintenance tasks. It blocks until completion.
func Run(ctx context.Context, d *db.DB) error {
	slog.Info("Starting database maintenance...")

	if err := d.PruneElevationCache(elevationRetention); err != nil {
		slog.Error("Elevation cache pruning failed", "error", err)
		return err
	}
	slog.Info("Elevation cache pruning completed")
	return nil
}
