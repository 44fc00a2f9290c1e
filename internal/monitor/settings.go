package monitor

import (
	"context"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/rs/zerolog/log"
)

// SettingsSource returns the newest persisted settings of a server address.
type SettingsSource interface {
	LatestSettings(ctx context.Context, address string) (models.Settings, bool, error)
}

// SettingsDetector decides whether fetched server info carries new settings,
// comparing against the in-memory info first and the persisted history second.
type SettingsDetector struct {
	source SettingsSource
}

// NewSettingsDetector returns a detector. A nil source disables the persisted fallback.
func NewSettingsDetector(source SettingsSource) *SettingsDetector {
	return &SettingsDetector{source: source}
}

// Prime loads the persisted settings of every endpoint that has no in-memory
// info yet. It runs on the coordinator goroutine before the scans so storage
// is never read concurrently. Failed lookups are retried on the next cycle.
func (d *SettingsDetector) Prime(ctx context.Context, state *State, endpoints []models.Endpoint) {
	if d.source == nil {
		return
	}

	for _, ep := range endpoints {
		c := state.cell(ep)
		if c == nil || c.info != nil || c.primed {
			continue
		}

		settings, ok, err := d.source.LatestSettings(ctx, ep.String())
		if err != nil {
			log.Warn().Err(err).Str("server", ep.String()).Msg("Failed to load persisted server settings")
			continue
		}

		c.primed = true
		if ok {
			c.persisted = &settings
		}
	}
}

// Changed reports whether next differs from the last known settings of the cell.
// A server never seen before always counts as changed.
func (d *SettingsDetector) Changed(c *cell, next models.Settings) bool {
	switch {
	case c.info != nil:
		return c.info.Settings() != next
	case c.persisted != nil:
		return *c.persisted != next
	}

	return true
}
