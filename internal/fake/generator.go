// Package fake drives synthetic scan cycles through the real diff engine and
// reconciler to populate a database for development.
package fake

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/1Michael23/tf2-surveillance/internal/monitor"
	"github.com/1Michael23/tf2-surveillance/internal/reconcile"
	"github.com/1Michael23/tf2-surveillance/internal/storage"
	"github.com/1Michael23/tf2-surveillance/internal/watchlist"
	"github.com/rs/zerolog/log"
)

const (
	servers   = 8
	cycleStep = 15 * time.Second
)

var (
	maps  = []string{"cp_badlands", "pl_upward", "ctf_2fort", "koth_harvest_final", "cp_process_final", "pl_badwater", "cp_gullywash_final1"}
	names = []string{
		"Heavy Weapons Guy", "Scout", "soldier main", "pyro", "[TF2] demoknight", "Engie", "medic!!!",
		"sniper", "spy", "bonk", "Saxton Hale", "Gray Mann", "Miss Pauling", "Merasmus", "Redmond",
		"BLU", "Blutarch", "Zhanna", "Maggot", "Cpt. Tavish",
	}
)

var errOffline = errors.New("server offline")

type server struct {
	info   models.ServerInfo
	roster []models.PlayerSnapshot
	down   bool
}

// world is a set of simulated servers. It is mutated only between cycles.
type world struct {
	rng     *rand.Rand
	servers map[models.Endpoint]*server
}

func (w *world) FetchInfo(ctx context.Context, ep models.Endpoint) (*models.ServerInfo, error) {
	s := w.servers[ep]
	if s == nil || s.down {
		return nil, errOffline
	}
	info := s.info
	info.Players = len(s.roster)

	return &info, nil
}

func (w *world) FetchPlayers(ctx context.Context, ep models.Endpoint) ([]models.PlayerSnapshot, error) {
	s := w.servers[ep]
	if s == nil || s.down {
		return nil, errOffline
	}

	return slices.Clone(s.roster), nil
}

// advance moves every server forward by one cycle.
func (w *world) advance(step time.Duration) {
	for _, s := range w.servers {
		if w.rng.Float32() < 0.05 {
			s.down = !s.down
		}
		if w.rng.Float32() < 0.03 {
			s.info.Map = maps[w.rng.Intn(len(maps))]
		}

		var next []models.PlayerSnapshot
		for _, p := range s.roster {
			if w.rng.Float32() < 0.08 {
				continue
			}
			p.Duration += step
			if w.rng.Float32() < 0.3 {
				p.Score += w.rng.Intn(3)
			}
			next = append(next, p)
		}

		if len(next) < s.info.MaxPlayers && w.rng.Float32() < 0.4 {
			name := names[w.rng.Intn(len(names))]
			if !slices.ContainsFunc(next, func(p models.PlayerSnapshot) bool { return p.Name == name }) {
				next = append(next, models.PlayerSnapshot{Name: name, Duration: time.Duration(w.rng.Intn(10)) * time.Second})
			}
		}

		s.roster = next
	}
}

type targets struct {
	list watchlist.Watchlist
}

func (t targets) Load() (watchlist.Watchlist, bool) {
	return t.list, true
}

// GenerateData runs the given number of simulated cycles, spaced like real ones
// and ending now, and writes them to the store.
func GenerateData(ctx context.Context, store *storage.Repository, cycles int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 synthetic data

	w := &world{rng: rng, servers: make(map[models.Endpoint]*server, servers)}
	endpoints := make([]models.Endpoint, 0, servers)
	for i := range servers {
		ep := models.Endpoint(fmt.Sprintf("198.51.100.%d:27015", i+10))
		endpoints = append(endpoints, ep)
		w.servers[ep] = &server{info: models.ServerInfo{
			Name:        fmt.Sprintf("Synthetic Server #%d | 24/7", i+1),
			Map:         maps[rng.Intn(len(maps))],
			Game:        "Team Fortress",
			Version:     "8622567",
			Environment: "Linux",
			MaxPlayers:  24,
			VAC:         true,
		}}
	}

	clock := time.Now().Add(-time.Duration(cycles) * cycleStep)
	rec := reconcile.New(store, nil, func() time.Time { return clock })
	scanner := monitor.NewScanner(w, monitor.NewSettingsDetector(store), 0, false)
	sched := monitor.NewScheduler(endpoints, scanner, targets{list: watchlist.New(names[:3])}, rec, nil, nil,
		monitor.Options{Workers: servers})

	for range cycles {
		if ctx.Err() != nil {
			break
		}
		sched.RunCycle(ctx)
		w.advance(cycleStep)
		clock = clock.Add(cycleStep)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to count generated rows")
		return
	}

	log.Info().
		Int("cycles", cycles).
		Int64("servers", counts.Servers).
		Int64("players", counts.Entities).
		Int64("sessions", counts.Sessions).
		Int64("server_events", counts.ServerEvents).
		Int64("player_events", counts.PlayerEvents).
		Msg("Fake data generated")
}
