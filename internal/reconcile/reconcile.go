// Package reconcile turns the transient results of one scan cycle into
// durable storage records.
package reconcile

import (
	"context"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/rs/zerolog/log"
)

// entityBatch is the number of names inserted per transaction.
const entityBatch = 200

// Store is the persistence surface used by the reconciler.
type Store interface {
	UpsertServer(ctx context.Context, address, countryCode string, at time.Time) (int64, error)
	InsertServerEvent(ctx context.Context, serverID int64, ev models.ServerEvent, at time.Time) error
	InsertSettings(ctx context.Context, serverID int64, info models.ServerInfo, at time.Time) error
	UpsertEntities(ctx context.Context, names []string, at time.Time) (int64, error)
	EntityIDs(ctx context.Context, names []string) (map[string]int64, error)
	InsertPlayerEvent(ctx context.Context, serverID, entityID int64, ev models.PlayerEvent, at time.Time) error
	InsertSession(ctx context.Context, s models.Session) error
}

// Locator resolves the country code of a server address.
type Locator interface {
	CountryCode(address string) string
}

// Stats counts what one reconciliation wrote.
type Stats struct {
	Duration     time.Duration
	Servers      int
	ServerEvents int
	Settings     int
	Entities     int64
	PlayerEvents int
	Sessions     int
	Failures     int
}

// Reconciler writes cycles to the store. It is used from a single goroutine.
type Reconciler struct {
	store   Store
	locator Locator
	now     func() time.Time

	// servers caches the ids of servers already upserted during this run.
	servers map[string]int64
}

// New returns a reconciler. locator may be nil; now defaults to time.Now.
func New(store Store, locator Locator, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}

	return &Reconciler{
		store:   store,
		locator: locator,
		now:     now,
		servers: make(map[string]int64),
	}
}

// Reconcile persists one cycle. A record that cannot be resolved or written is
// logged and skipped, the rest of the cycle is still written.
// Every record of the cycle shares one timestamp.
func (r *Reconciler) Reconcile(ctx context.Context, cycle models.Cycle) Stats {
	start := time.Now()
	now := r.now()

	var stats Stats
	r.upsertServers(ctx, cycle.Endpoints, now, &stats)
	r.writeServerEvents(ctx, cycle.Reports, now, &stats)
	entities := r.upsertEntities(ctx, cycle.Reports, now, &stats)
	r.writePlayerEvents(ctx, cycle.Reports, entities, now, &stats)

	stats.Duration = time.Since(start)
	return stats
}

func (r *Reconciler) upsertServers(ctx context.Context, endpoints []models.Endpoint, now time.Time, stats *Stats) {
	for _, ep := range endpoints {
		address := ep.String()
		if _, ok := r.servers[address]; ok {
			continue
		}

		var country string
		if r.locator != nil {
			country = r.locator.CountryCode(address)
		}

		id, err := r.store.UpsertServer(ctx, address, country, now)
		if err != nil {
			stats.Failures++
			log.Error().Err(err).Str("server", address).Msg("Failed to upsert server")
			continue
		}

		r.servers[address] = id
		stats.Servers++
	}
}

func (r *Reconciler) writeServerEvents(ctx context.Context, reports []models.EndpointReport, now time.Time, stats *Stats) {
	for _, report := range reports {
		if len(report.ServerEvents) == 0 {
			continue
		}

		serverID, ok := r.servers[report.Endpoint.String()]
		if !ok {
			stats.Failures += len(report.ServerEvents)
			log.Error().Str("server", report.Endpoint.String()).Msg("Server not found, skipping server events")
			continue
		}

		for _, ev := range report.ServerEvents {
			if err := r.store.InsertServerEvent(ctx, serverID, ev, now); err != nil {
				stats.Failures++
				log.Error().Err(err).Str("server", report.Endpoint.String()).Str("event", ev.Kind.String()).Msg("Failed to write server event")
			} else {
				stats.ServerEvents++
			}

			if ev.Kind != models.SettingsChanged || ev.Info == nil {
				continue
			}

			if err := r.store.InsertSettings(ctx, serverID, *ev.Info, now); err != nil {
				stats.Failures++
				log.Error().Err(err).Str("server", report.Endpoint.String()).Msg("Failed to write server settings")
			} else {
				stats.Settings++
			}
		}
	}
}

// upsertEntities stores every distinct non-blank name seen this cycle and returns their ids.
func (r *Reconciler) upsertEntities(ctx context.Context, reports []models.EndpointReport, now time.Time, stats *Stats) map[string]int64 {
	names := distinctNames(reports)
	if len(names) == 0 {
		return nil
	}

	for start := 0; start < len(names); start += entityBatch {
		batch := names[start:min(start+entityBatch, len(names))]

		inserted, err := r.store.UpsertEntities(ctx, batch, now)
		if err != nil {
			stats.Failures += len(batch)
			log.Error().Err(err).Int("batch", len(batch)).Msg("Failed to upsert players")
			continue
		}
		stats.Entities += inserted
	}

	ids, err := r.store.EntityIDs(ctx, names)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve players")
		return nil
	}

	return ids
}

func (r *Reconciler) writePlayerEvents(ctx context.Context, reports []models.EndpointReport, entities map[string]int64, now time.Time, stats *Stats) {
	for _, report := range reports {
		if len(report.PlayerEvents) == 0 {
			continue
		}

		address := report.Endpoint.String()
		serverID, ok := r.servers[address]
		if !ok {
			stats.Failures += len(report.PlayerEvents)
			log.Error().Str("server", address).Msg("Server not found, skipping player events")
			continue
		}

		for _, ev := range report.PlayerEvents {
			entityID, ok := entities[ev.Player.Name]
			if !ok {
				stats.Failures++
				log.Error().Str("server", address).Str("player", ev.Player.Name).Msg("Player not found, skipping player event")
				continue
			}

			if err := r.store.InsertPlayerEvent(ctx, serverID, entityID, ev, now); err != nil {
				stats.Failures++
				log.Error().Err(err).Str("server", address).Str("player", ev.Player.Name).Msg("Failed to write player event")
			} else {
				stats.PlayerEvents++
			}

			if !ev.Kind.IsLeave() {
				continue
			}

			if err := r.store.InsertSession(ctx, SessionFor(serverID, entityID, ev, now)); err != nil {
				stats.Failures++
				log.Error().Err(err).Str("server", address).Str("player", ev.Player.Name).Msg("Failed to write session")
			} else {
				stats.Sessions++
			}
		}
	}
}

// SessionFor reconstructs the session closed by a leave event observed at leftAt.
func SessionFor(serverID, entityID int64, ev models.PlayerEvent, leftAt time.Time) models.Session {
	return models.Session{
		ServerID: serverID,
		EntityID: entityID,
		Score:    ev.Player.Score,
		Duration: ev.Player.Duration,
		LeftAt:   leftAt,
		JoinedAt: leftAt.Add(-ev.Player.Duration),
	}
}

// distinctNames collects roster and event names in first-seen order, skipping blanks.
func distinctNames(reports []models.EndpointReport) []string {
	seen := make(map[string]struct{})
	var names []string

	add := func(p models.PlayerSnapshot) {
		if p.Blank() {
			return
		}
		if _, ok := seen[p.Name]; ok {
			return
		}
		seen[p.Name] = struct{}{}
		names = append(names, p.Name)
	}

	for _, report := range reports {
		for _, p := range report.Roster {
			add(p)
		}
		for _, ev := range report.PlayerEvents {
			add(ev.Player)
		}
	}

	return names
}
