package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/1Michael23/tf2-surveillance/internal/reconcile"
	"github.com/1Michael23/tf2-surveillance/internal/watchlist"
)

var errUnreachable = errors.New("unreachable")

// fakeQuerier answers from per-endpoint values that tests change between cycles.
type fakeQuerier struct {
	mu       sync.Mutex
	info     map[models.Endpoint]*models.ServerInfo
	rosters  map[models.Endpoint][]models.PlayerSnapshot
	infoErr  map[models.Endpoint]error
	players  map[models.Endpoint]error
	inFlight int
	peak     int
	delay    time.Duration
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		info:    make(map[models.Endpoint]*models.ServerInfo),
		rosters: make(map[models.Endpoint][]models.PlayerSnapshot),
		infoErr: make(map[models.Endpoint]error),
		players: make(map[models.Endpoint]error),
	}
}

func (f *fakeQuerier) set(ep models.Endpoint, info models.ServerInfo, roster ...models.PlayerSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.info[ep] = &info
	f.rosters[ep] = roster
	delete(f.infoErr, ep)
	delete(f.players, ep)
}

func (f *fakeQuerier) fail(ep models.Endpoint) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.infoErr[ep] = errUnreachable
	f.players[ep] = errUnreachable
}

func (f *fakeQuerier) FetchInfo(ctx context.Context, ep models.Endpoint) (*models.ServerInfo, error) {
	f.mu.Lock()
	f.inFlight++
	f.peak = max(f.peak, f.inFlight)
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if err := f.infoErr[ep]; err != nil {
		return nil, err
	}
	info, ok := f.info[ep]
	if !ok {
		return nil, errUnreachable
	}
	copied := *info

	return &copied, nil
}

func (f *fakeQuerier) FetchPlayers(ctx context.Context, ep models.Endpoint) ([]models.PlayerSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.players[ep]; err != nil {
		return nil, err
	}

	return append([]models.PlayerSnapshot(nil), f.rosters[ep]...), nil
}

// fakeSettings is an in-memory SettingsSource.
type fakeSettings struct {
	byAddress map[string]models.Settings
	calls     int
}

func (f *fakeSettings) LatestSettings(ctx context.Context, address string) (models.Settings, bool, error) {
	f.calls++
	s, ok := f.byAddress[address]
	return s, ok, nil
}

type staticTargets struct {
	names []string
	ok    bool
}

func (s *staticTargets) Load() (watchlist.Watchlist, bool) {
	return watchlist.New(s.names), s.ok
}

type recordingReconciler struct {
	cycles []models.Cycle
}

func (r *recordingReconciler) Reconcile(ctx context.Context, cycle models.Cycle) reconcile.Stats {
	r.cycles = append(r.cycles, cycle)
	return reconcile.Stats{}
}

type recordingNotifier struct {
	alerts []Alert
}

func (n *recordingNotifier) Notify(ctx context.Context, title, description string, color int) error {
	n.alerts = append(n.alerts, Alert{Title: title, Description: description, Color: color})
	return nil
}

type recordingPinger struct {
	latencies []*time.Duration
}

func (p *recordingPinger) Ping(ctx context.Context, latency *time.Duration) error {
	p.latencies = append(p.latencies, latency)
	return errors.New("push endpoint down")
}

// stalledQuerier never answers and returns only when the context ends.
type stalledQuerier struct{}

func (stalledQuerier) FetchInfo(ctx context.Context, ep models.Endpoint) (*models.ServerInfo, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledQuerier) FetchPlayers(ctx context.Context, ep models.Endpoint) ([]models.PlayerSnapshot, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
