// main is the entry point of tf2-scan.
// It loads the configuration, opens the database and runs the monitor loop
// over the configured server fleet until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/1Michael23/tf2-surveillance/internal/config"
	"github.com/1Michael23/tf2-surveillance/internal/fake"
	"github.com/1Michael23/tf2-surveillance/internal/fleet"
	"github.com/1Michael23/tf2-surveillance/internal/game"
	"github.com/1Michael23/tf2-surveillance/internal/geoip"
	"github.com/1Michael23/tf2-surveillance/internal/heartbeat"
	"github.com/1Michael23/tf2-surveillance/internal/logger"
	"github.com/1Michael23/tf2-surveillance/internal/maintenance"
	"github.com/1Michael23/tf2-surveillance/internal/monitor"
	"github.com/1Michael23/tf2-surveillance/internal/notify"
	"github.com/1Michael23/tf2-surveillance/internal/reconcile"
	"github.com/1Michael23/tf2-surveillance/internal/storage"
	"github.com/1Michael23/tf2-surveillance/internal/vars"
	"github.com/1Michael23/tf2-surveillance/internal/watchlist"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Str("version", vars.Version).Str("commit", vars.CommitShort()).Msg("Starting tf2-scan")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	store, err := storage.New(ctx, cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// data generation or database maintenance
	if cfg.Storage.GenerateCount > 0 {
		fake.GenerateData(ctx, store, cfg.Storage.GenerateCount)
		return
	} else if maintenance.Run(ctx, cfg, store) {
		return
	}

	endpoints, err := fleet.Load(cfg.Monitor.ServerFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load server list")
	}
	if len(endpoints) == 0 {
		log.Warn().Str("path", cfg.Monitor.ServerFile).Msg("Server list has no usable addresses")
	}

	// GeoIP is optional, country tagging is skipped without it
	var locator reconcile.Locator
	if cfg.GeoIP.Path != "" {
		if err := geoip.EnsureDB(ctx, cfg.GeoIP.Path, cfg.GeoIP.URL, cfg.GeoIP.Interval); err != nil {
			log.Error().Err(err).Msg("Failed to download GeoIP database")
		}

		geoProvider, err := geoip.Open(cfg.GeoIP.Path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		} else {
			locator = geoProvider
			defer func() { _ = geoProvider.Close() }()
		}
	}

	var notifier monitor.Notifier
	if cfg.Webhook.Enabled {
		notifier = notify.New(cfg.Webhook)
	}

	var pinger monitor.Pinger
	if cfg.Heartbeat.Enabled {
		pinger = heartbeat.New(cfg.Heartbeat)
	}

	scanner := monitor.NewScanner(
		game.NewClient(cfg.A2S),
		monitor.NewSettingsDetector(store),
		cfg.Monitor.ScanTimeout,
		cfg.Monitor.Verbose,
	)

	scheduler := monitor.NewScheduler(
		endpoints,
		scanner,
		watchlist.NewLoader(cfg.Monitor.TargetFile),
		reconcile.New(store, locator, nil),
		notifier,
		pinger,
		monitor.Options{
			Workers:       cfg.Monitor.Workers,
			Delay:         cfg.Monitor.Delay(),
			ReportLatency: !cfg.Heartbeat.NoLatency,
			Once:          cfg.Monitor.Once,
		},
	)

	scheduler.Run(ctx)
}
