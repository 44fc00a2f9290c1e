package monitor

import (
	"slices"

	"github.com/1Michael23/tf2-surveillance/internal/models"
)

// cell is the state owned by one endpoint. During a cycle only the worker
// scanning that endpoint touches it, so it needs no lock.
type cell struct {
	// info is the last successfully fetched server info, nil until the first success.
	info *models.ServerInfo

	// persisted is the newest stored settings record, loaded once when info is nil.
	persisted *models.Settings

	// roster is the last successfully fetched roster.
	roster []models.PlayerSnapshot

	// primed is set once the persisted settings lookup has completed.
	primed bool
}

// State holds the per-endpoint cells for a fixed fleet. The map itself is
// never modified after construction.
type State struct {
	cells map[models.Endpoint]*cell
}

// NewState creates empty cells for every endpoint.
func NewState(endpoints []models.Endpoint) *State {
	s := &State{cells: make(map[models.Endpoint]*cell, len(endpoints))}
	for _, ep := range endpoints {
		s.cells[ep] = &cell{}
	}

	return s
}

func (s *State) cell(ep models.Endpoint) *cell {
	return s.cells[ep]
}

// Roster returns a copy of the last successfully observed roster of ep.
func (s *State) Roster(ep models.Endpoint) []models.PlayerSnapshot {
	c := s.cells[ep]
	if c == nil {
		return nil
	}

	return slices.Clone(c.roster)
}

// Info returns the last successfully fetched server info of ep.
func (s *State) Info(ep models.Endpoint) (models.ServerInfo, bool) {
	c := s.cells[ep]
	if c == nil || c.info == nil {
		return models.ServerInfo{}, false
	}

	return *c.info, true
}
