package monitor

import (
	"github.com/1Michael23/tf2-surveillance/internal/models"
)

// Watched reports whether a player name is on the watchlist.
type Watched interface {
	Contains(name string) bool
}

// Diff compares two roster snapshots of one endpoint and returns the player events
// between them: joins and point updates in current roster order, then leaves in
// previous roster order. Blank names are ignored. When a name appears more than
// once in a snapshot the first occurrence is used for score comparison.
func Diff(prev, curr []models.PlayerSnapshot, watch Watched) []models.PlayerEvent {
	before := index(prev)
	after := index(curr)

	var events []models.PlayerEvent
	for _, player := range curr {
		if player.Blank() {
			continue
		}

		old, seen := before[player.Name]
		switch {
		case !seen:
			kind := models.PlayerJoined
			if watch != nil && watch.Contains(player.Name) {
				kind = models.TargetJoined
			}
			events = append(events, models.PlayerEvent{Kind: kind, Player: player, Score: player.Score})

		case old.Score != player.Score:
			events = append(events, models.PlayerEvent{Kind: models.PointUpdate, Player: player, Score: player.Score})
		}
	}

	for _, player := range prev {
		if player.Blank() {
			continue
		}
		if _, ok := after[player.Name]; ok {
			continue
		}

		kind := models.PlayerLeft
		if watch != nil && watch.Contains(player.Name) {
			kind = models.TargetLeft
		}
		events = append(events, models.PlayerEvent{Kind: kind, Player: player, Score: player.Score})
	}

	return events
}

// index maps each name to its first occurrence in the roster.
func index(roster []models.PlayerSnapshot) map[string]models.PlayerSnapshot {
	byName := make(map[string]models.PlayerSnapshot, len(roster))
	for _, p := range roster {
		if _, ok := byName[p.Name]; !ok {
			byName[p.Name] = p
		}
	}

	return byName
}
