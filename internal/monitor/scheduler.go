// Package monitor drives the poll, diff and reconcile loop over a fixed fleet
// of game servers.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/1Michael23/tf2-surveillance/internal/reconcile"
	"github.com/1Michael23/tf2-surveillance/internal/watchlist"
	"github.com/rs/zerolog/log"
)

// WatchlistSource re-reads the watched names. The bool is false when the source is unreadable.
type WatchlistSource interface {
	Load() (watchlist.Watchlist, bool)
}

// Reconciler persists a completed cycle.
type Reconciler interface {
	Reconcile(ctx context.Context, cycle models.Cycle) reconcile.Stats
}

// Notifier delivers an alert message.
type Notifier interface {
	Notify(ctx context.Context, title, description string, color int) error
}

// Pinger reports liveness after every cycle. latency is nil when it should not be reported.
type Pinger interface {
	Ping(ctx context.Context, latency *time.Duration) error
}

// Options tune the scheduler loop.
type Options struct {
	// Workers caps the number of concurrent scans.
	Workers int

	// Delay is the pause between the end of one cycle and the start of the next.
	Delay time.Duration

	// ReportLatency appends the scan latency to heartbeats.
	ReportLatency bool

	// Once stops the loop after the first cycle.
	Once bool
}

// Scheduler owns the per-endpoint state and runs scan cycles.
type Scheduler struct {
	// scanner queries one endpoint and updates its cell.
	scanner *Scanner

	// targets re-reads the watchlist every cycle.
	targets WatchlistSource

	// reconciler writes each cycle to storage. Required.
	reconciler Reconciler

	// notifier and pinger are optional and may be nil.
	notifier Notifier
	pinger   Pinger

	// state holds one cell per endpoint of the fixed fleet.
	state *State

	endpoints []models.Endpoint
	watch     watchlist.Watchlist
	opts      Options
	cycle     uint64
}

// NewScheduler returns a scheduler for the given endpoints.
func NewScheduler(
	endpoints []models.Endpoint,
	scanner *Scanner,
	targets WatchlistSource,
	reconciler Reconciler,
	notifier Notifier,
	pinger Pinger,
	opts Options,
) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &Scheduler{
		scanner:    scanner,
		targets:    targets,
		reconciler: reconciler,
		notifier:   notifier,
		pinger:     pinger,
		state:      NewState(endpoints),
		endpoints:  endpoints,
		watch:      watchlist.New(nil),
		opts:       opts,
	}
}

// State exposes the per-endpoint state. It must not be read while a cycle runs.
func (s *Scheduler) State() *State {
	return s.state
}

// Run executes cycles until ctx is cancelled, sleeping Delay after each one.
// A cycle already in progress when ctx is cancelled still completes its scans
// and reconciliation.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().
		Int("servers", len(s.endpoints)).
		Int("workers", s.workers()).
		Dur("delay", s.opts.Delay).
		Msg("Monitor started")

	for {
		if ctx.Err() != nil {
			break
		}

		s.RunCycle(ctx)
		if s.opts.Once {
			break
		}

		timer := time.NewTimer(s.opts.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	log.Info().Uint64("cycles", s.cycle).Msg("Monitor stopped")
}

// RunCycle performs one full cycle: watchlist refresh, concurrent scans,
// reconciliation, alerts and heartbeat.
func (s *Scheduler) RunCycle(ctx context.Context) models.Cycle {
	s.cycle++
	s.refreshWatchlist()

	// scans and persistence are not interrupted by shutdown
	work := context.WithoutCancel(ctx)

	cycle := models.Cycle{
		Number:    s.cycle,
		Started:   time.Now(),
		Endpoints: s.endpoints,
	}

	s.scanner.detector.Prime(work, s.state, s.endpoints)
	cycle.Reports = s.scanAll(work)
	scanTime := time.Since(cycle.Started)

	stats := s.reconciler.Reconcile(work, cycle)

	s.sendAlerts(ctx, cycle.Reports)
	s.sendHeartbeat(ctx, scanTime)

	summary := summarize(cycle.Reports)
	log.Info().
		Uint64("cycle", cycle.Number).
		Int("servers", len(s.endpoints)).
		Int("succeeded", summary.succeeded).
		Int("failed", summary.failed).
		Int("events", summary.events).
		Int("players", summary.players).
		Int("failures", stats.Failures).
		Dur("scan", scanTime).
		Dur("db", stats.Duration).
		Msg("Cycle finished")

	return cycle
}

func (s *Scheduler) refreshWatchlist() {
	next, ok := s.targets.Load()
	if !ok {
		log.Debug().Msg("Watchlist unreadable, keeping previous targets")
		return
	}

	if next.Equal(s.watch) {
		return
	}

	s.watch = next
	log.Info().Int("count", next.Len()).Strs("targets", next.Names()).Msg("Watchlist updated")
}

func (s *Scheduler) workers() int {
	return max(1, min(len(s.endpoints), s.opts.Workers))
}

// scanAll scans every endpoint on a bounded worker pool. Each worker writes
// only its own slot of the result slice and its own endpoint cell.
func (s *Scheduler) scanAll(ctx context.Context) []models.EndpointReport {
	reports := make([]models.EndpointReport, len(s.endpoints))
	if len(s.endpoints) == 0 {
		return reports
	}

	jobs := make(chan int, len(s.endpoints))
	var wg sync.WaitGroup

	for range s.workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				ep := s.endpoints[i]
				reports[i] = s.scanner.Scan(ctx, ep, s.state.cell(ep), s.watch)
			}
		}()
	}

	for i := range s.endpoints {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	return reports
}

func (s *Scheduler) sendAlerts(ctx context.Context, reports []models.EndpointReport) {
	if s.notifier == nil {
		return
	}

	for _, report := range reports {
		for _, alert := range Alerts(report) {
			if err := s.notifier.Notify(ctx, alert.Title, alert.Description, alert.Color); err != nil {
				log.Warn().Err(err).Str("server", report.Endpoint.String()).Msg("Failed to send alert")
			}
		}
	}
}

func (s *Scheduler) sendHeartbeat(ctx context.Context, scanTime time.Duration) {
	if s.pinger == nil {
		return
	}

	var latency *time.Duration
	if s.opts.ReportLatency {
		latency = &scanTime
	}

	if err := s.pinger.Ping(ctx, latency); err != nil {
		log.Warn().Err(err).Msg("Failed to send heartbeat")
	}
}

type cycleSummary struct {
	succeeded int
	failed    int
	events    int
	players   int
}

func summarize(reports []models.EndpointReport) cycleSummary {
	var sum cycleSummary
	for _, r := range reports {
		if r.Succeeded() {
			sum.succeeded++
		} else {
			sum.failed++
		}
		sum.events += len(r.ServerEvents) + len(r.PlayerEvents)
		sum.players += len(r.Roster)
	}

	return sum
}
