package monitor

import (
	"context"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Querier fetches server info and the player roster of one endpoint.
type Querier interface {
	FetchInfo(ctx context.Context, endpoint models.Endpoint) (*models.ServerInfo, error)
	FetchPlayers(ctx context.Context, endpoint models.Endpoint) ([]models.PlayerSnapshot, error)
}

// Scanner queries one endpoint per call and updates its state cell.
type Scanner struct {
	querier  Querier
	detector *SettingsDetector
	timeout  time.Duration
	verbose  bool
}

// NewScanner returns a scanner. A zero timeout leaves the queries bounded only by ctx.
// With verbose set every plain join and leave is logged at info level.
func NewScanner(querier Querier, detector *SettingsDetector, timeout time.Duration, verbose bool) *Scanner {
	return &Scanner{
		querier:  querier,
		detector: detector,
		timeout:  timeout,
		verbose:  verbose,
	}
}

// Scan runs the info and roster queries of one endpoint. The info and roster
// channels fail independently: a failed info query records Down and keeps the
// last info, a failed roster query emits nothing and keeps the last roster.
func (s *Scanner) Scan(ctx context.Context, endpoint models.Endpoint, c *cell, watch Watched) models.EndpointReport {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report := models.EndpointReport{Endpoint: endpoint}
	logCtx := log.With().Str("server", endpoint.String()).Logger()

	info, err := s.querier.FetchInfo(ctx, endpoint)
	if err != nil {
		report.InfoErr = err
		report.ServerEvents = append(report.ServerEvents, models.ServerEvent{Kind: models.ServerDown})
		logCtx.Debug().Err(err).Msg("Server info query failed")
	} else {
		report.ServerEvents = append(report.ServerEvents, models.ServerEvent{Kind: models.ServerUp})
		if s.detector.Changed(c, info.Settings()) {
			report.ServerEvents = append(report.ServerEvents, models.ServerEvent{Kind: models.SettingsChanged, Info: info})
			logCtx.Info().
				Str("name", info.Name).
				Str("map", info.Map).
				Int("max_players", info.MaxPlayers).
				Msg("Server settings changed")
		}
		c.info = info
	}
	report.Info = c.info

	roster, err := s.querier.FetchPlayers(ctx, endpoint)
	if err != nil {
		report.RosterErr = err
		logCtx.Debug().Err(err).Msg("Server players query failed")
		return report
	}

	report.PlayerEvents = Diff(c.roster, roster, watch)
	report.Roster = roster
	c.roster = roster

	for _, ev := range report.PlayerEvents {
		s.logEvent(logCtx, ev)
	}

	return report
}

func (s *Scanner) logEvent(logCtx zerolog.Logger, ev models.PlayerEvent) {
	var e *zerolog.Event
	switch {
	case ev.Kind.IsTarget():
		e = logCtx.Info()
	case ev.Kind == models.PointUpdate:
		e = logCtx.Trace()
	case s.verbose:
		e = logCtx.Info()
	default:
		e = logCtx.Debug()
	}

	e.Str("event", ev.Kind.String()).
		Str("player", ev.Player.Name).
		Int("score", ev.Score).
		Str("duration", FormatDuration(ev.Player.Duration)).
		Msg("Player event")
}
