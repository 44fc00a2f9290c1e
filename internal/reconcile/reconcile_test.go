package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/1Michael23/tf2-surveillance/internal/storage"
)

const address = "192.0.2.1:27015"

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *storage.Repository {
	t.Helper()

	repo, err := storage.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func snapshot(name string, score, seconds int) models.PlayerSnapshot {
	return models.PlayerSnapshot{Name: name, Score: score, Duration: time.Duration(seconds) * time.Second}
}

type countryLocator map[string]string

func (l countryLocator) CountryCode(address string) string {
	return l[address]
}

func TestReconcileTargetLeaveWritesSession(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t)
	r := New(repo, countryLocator{address: "NL"}, func() time.Time { return fixedNow })

	bob := snapshot("bob", 3, 120)
	cycle := models.Cycle{
		Endpoints: []models.Endpoint{address},
		Reports: []models.EndpointReport{{
			Endpoint:     address,
			ServerEvents: []models.ServerEvent{{Kind: models.ServerUp}},
			PlayerEvents: []models.PlayerEvent{{Kind: models.TargetLeft, Player: bob, Score: 3}},
		}},
	}

	stats := r.Reconcile(ctx, cycle)
	if stats.Failures != 0 || stats.Sessions != 1 || stats.PlayerEvents != 1 || stats.ServerEvents != 1 || stats.Entities != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	server, err := repo.ServerByAddress(ctx, address)
	if err != nil {
		t.Fatal(err)
	}
	if server.CountryCode != "NL" {
		t.Errorf("country = %q, want NL", server.CountryCode)
	}

	sessions, err := repo.Sessions(ctx, server.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}

	s := sessions[0]
	if s.Duration != 120*time.Second || s.Score != 3 {
		t.Errorf("session = %+v", s)
	}
	if !s.LeftAt.Equal(fixedNow) || !s.JoinedAt.Equal(fixedNow.Add(-120*time.Second)) {
		t.Errorf("session times = %s .. %s", s.JoinedAt, s.LeftAt)
	}

	events, err := repo.PlayerEvents(ctx, server.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Kind != models.TargetLeft {
		t.Fatalf("player events = %+v", events)
	}
}

func TestReconcileIsIdempotentForServersAndEntities(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t)

	cycle := models.Cycle{
		Endpoints: []models.Endpoint{address, "192.0.2.2:27015"},
		Reports: []models.EndpointReport{
			{Endpoint: address, Roster: []models.PlayerSnapshot{snapshot("alice", 0, 1), snapshot("", 0, 1)}},
			{Endpoint: "192.0.2.2:27015", Roster: []models.PlayerSnapshot{snapshot("alice", 5, 9)}},
		},
	}

	// a fresh reconciler per run drops the in-memory server cache
	for i := 0; i < 3; i++ {
		New(repo, nil, nil).Reconcile(ctx, cycle)
	}

	counts, err := repo.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Servers != 2 || counts.Entities != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestReconcileSettingsChanged(t *testing.T) {
	ctx := context.Background()
	repo := openStore(t)
	r := New(repo, nil, func() time.Time { return fixedNow })

	info := &models.ServerInfo{Name: "srv", Map: "ctf_2fort", MaxPlayers: 32, Version: "1"}
	cycle := models.Cycle{
		Endpoints: []models.Endpoint{address},
		Reports: []models.EndpointReport{{
			Endpoint: address,
			ServerEvents: []models.ServerEvent{
				{Kind: models.ServerUp},
				{Kind: models.SettingsChanged, Info: info},
			},
		}},
	}

	stats := r.Reconcile(ctx, cycle)
	if stats.Settings != 1 || stats.ServerEvents != 2 {
		t.Fatalf("stats = %+v", stats)
	}

	latest, ok, err := repo.LatestSettings(ctx, address)
	if err != nil || !ok {
		t.Fatalf("LatestSettings = %v, %v", ok, err)
	}
	if latest != info.Settings() {
		t.Fatalf("latest = %+v, want %+v", latest, info.Settings())
	}
}

// flakyStore fails selected writes and records the rest.
type flakyStore struct {
	failServer   string
	failPlayer   string
	failEntities bool
	nextID       int64
	servers      map[string]int64
	entities     map[string]int64
	playerRows   int
	sessionRows  int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{servers: map[string]int64{}, entities: map[string]int64{}}
}

var errWrite = errors.New("disk I/O error")

func (f *flakyStore) UpsertServer(ctx context.Context, address, country string, at time.Time) (int64, error) {
	if address == f.failServer {
		return 0, errWrite
	}
	if id, ok := f.servers[address]; ok {
		return id, nil
	}
	f.nextID++
	f.servers[address] = f.nextID
	return f.nextID, nil
}

func (f *flakyStore) InsertServerEvent(ctx context.Context, serverID int64, ev models.ServerEvent, at time.Time) error {
	return nil
}

func (f *flakyStore) InsertSettings(ctx context.Context, serverID int64, info models.ServerInfo, at time.Time) error {
	return nil
}

func (f *flakyStore) UpsertEntities(ctx context.Context, names []string, at time.Time) (int64, error) {
	if f.failEntities {
		return 0, errWrite
	}
	var n int64
	for _, name := range names {
		if _, ok := f.entities[name]; !ok {
			f.nextID++
			f.entities[name] = f.nextID
			n++
		}
	}
	return n, nil
}

func (f *flakyStore) EntityIDs(ctx context.Context, names []string) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, name := range names {
		if id, ok := f.entities[name]; ok {
			ids[name] = id
		}
	}
	return ids, nil
}

func (f *flakyStore) InsertPlayerEvent(ctx context.Context, serverID, entityID int64, ev models.PlayerEvent, at time.Time) error {
	if ev.Player.Name == f.failPlayer {
		return errWrite
	}
	f.playerRows++
	return nil
}

func (f *flakyStore) InsertSession(ctx context.Context, s models.Session) error {
	f.sessionRows++
	return nil
}

func TestReconcileSkipsFailedRecords(t *testing.T) {
	store := newFlakyStore()
	store.failServer = "192.0.2.9:27015"
	store.failPlayer = "mallory"

	cycle := models.Cycle{
		Endpoints: []models.Endpoint{address, "192.0.2.9:27015"},
		Reports: []models.EndpointReport{
			{
				Endpoint: "192.0.2.9:27015",
				PlayerEvents: []models.PlayerEvent{
					{Kind: models.PlayerJoined, Player: snapshot("eve", 0, 1)},
				},
			},
			{
				Endpoint: address,
				PlayerEvents: []models.PlayerEvent{
					{Kind: models.PlayerLeft, Player: snapshot("mallory", 1, 30)},
					{Kind: models.PlayerLeft, Player: snapshot("trent", 2, 40)},
				},
			},
		},
	}

	stats := New(store, nil, nil).Reconcile(context.Background(), cycle)

	// server upsert, eve's event, mallory's event
	if stats.Failures != 3 {
		t.Fatalf("failures = %d, want 3", stats.Failures)
	}
	if store.playerRows != 1 || stats.PlayerEvents != 1 {
		t.Fatalf("player rows = %d, stats = %+v", store.playerRows, stats)
	}
	// a leave still closes its session even when the event row failed
	if store.sessionRows != 2 || stats.Sessions != 2 {
		t.Fatalf("session rows = %d, stats = %+v", store.sessionRows, stats)
	}
}

func TestReconcileCountsFailedEntityBatch(t *testing.T) {
	store := newFlakyStore()
	store.failEntities = true

	cycle := models.Cycle{
		Endpoints: []models.Endpoint{address},
		Reports: []models.EndpointReport{{
			Endpoint: address,
			Roster:   []models.PlayerSnapshot{snapshot("alice", 0, 10), snapshot("bob", 1, 20)},
			PlayerEvents: []models.PlayerEvent{
				{Kind: models.PlayerJoined, Player: snapshot("eve", 0, 1)},
			},
		}},
	}

	stats := New(store, nil, nil).Reconcile(context.Background(), cycle)

	// three names in the failed batch, then eve's event has no entity id
	if stats.Failures != 4 {
		t.Fatalf("failures = %d, want 4", stats.Failures)
	}
	if stats.Entities != 0 || stats.PlayerEvents != 0 || store.playerRows != 0 {
		t.Fatalf("stats = %+v, player rows = %d", stats, store.playerRows)
	}
}

func TestSessionFor(t *testing.T) {
	ev := models.PlayerEvent{Kind: models.TargetLeft, Player: snapshot("bob", 3, 120)}
	s := SessionFor(7, 9, ev, fixedNow)

	if s.ServerID != 7 || s.EntityID != 9 || s.Score != 3 {
		t.Fatalf("session = %+v", s)
	}
	if got := s.LeftAt.Sub(s.JoinedAt); got != 120*time.Second {
		t.Fatalf("left_at - joined_at = %s, want 2m0s", got)
	}
}
