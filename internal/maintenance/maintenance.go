// Package maintenance provides one-shot database tasks run instead of the monitor loop.
package maintenance

import (
	"context"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/config"
	"github.com/rs/zerolog/log"
)

// Pruner deletes old event rows.
type Pruner interface {
	PruneEvents(ctx context.Context, before time.Time) (serverEvents, playerEvents int64, err error)
}

// Run executes the maintenance task selected by the configuration.
// Returns true if a task was executed (indicating the program should exit).
func Run(ctx context.Context, cfg *config.Config, store Pruner) bool {
	if cfg.Storage.PruneOlderThan <= 0 {
		return false
	}

	cutoff := time.Now().Add(-cfg.Storage.PruneOlderThan)
	log.Info().Time("before", cutoff).Msg("Pruning server and player events")

	serverEvents, playerEvents, err := store.PruneEvents(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune events")
		return true
	}

	log.Info().
		Int64("server_events", serverEvents).
		Int64("player_events", playerEvents).
		Msg("Prune finished")

	return true
}
