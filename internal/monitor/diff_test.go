package monitor

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/1Michael23/tf2-surveillance/internal/watchlist"
)

func player(name string, score int, seconds int) models.PlayerSnapshot {
	return models.PlayerSnapshot{Name: name, Score: score, Duration: time.Duration(seconds) * time.Second}
}

func TestDiffScenarios(t *testing.T) {
	tests := []struct {
		name  string
		prev  []models.PlayerSnapshot
		curr  []models.PlayerSnapshot
		watch []string
		want  []models.PlayerEvent
	}{
		{
			name: "plain join",
			curr: []models.PlayerSnapshot{player("alice", 0, 5)},
			want: []models.PlayerEvent{{Kind: models.PlayerJoined, Player: player("alice", 0, 5), Score: 0}},
		},
		{
			name:  "target leave",
			prev:  []models.PlayerSnapshot{player("bob", 3, 120)},
			watch: []string{"bob"},
			want:  []models.PlayerEvent{{Kind: models.TargetLeft, Player: player("bob", 3, 120), Score: 3}},
		},
		{
			name: "point update",
			prev: []models.PlayerSnapshot{player("carol", 1, 60)},
			curr: []models.PlayerSnapshot{player("carol", 2, 65)},
			want: []models.PlayerEvent{{Kind: models.PointUpdate, Player: player("carol", 2, 65), Score: 2}},
		},
		{
			name: "duration change alone is silent",
			prev: []models.PlayerSnapshot{player("dave", 4, 10)},
			curr: []models.PlayerSnapshot{player("dave", 4, 70)},
		},
		{
			name:  "target join",
			curr:  []models.PlayerSnapshot{player("erin", 0, 1)},
			watch: []string{"erin"},
			want:  []models.PlayerEvent{{Kind: models.TargetJoined, Player: player("erin", 0, 1), Score: 0}},
		},
		{
			name: "blank names ignored",
			prev: []models.PlayerSnapshot{player("", 0, 3)},
			curr: []models.PlayerSnapshot{player("   ", 0, 1), player("", 0, 4)},
		},
		{
			name: "joins before leaves",
			prev: []models.PlayerSnapshot{player("x", 0, 1), player("y", 1, 1), player("z", 0, 1)},
			curr: []models.PlayerSnapshot{player("w", 0, 1), player("y", 2, 2)},
			want: []models.PlayerEvent{
				{Kind: models.PlayerJoined, Player: player("w", 0, 1), Score: 0},
				{Kind: models.PointUpdate, Player: player("y", 2, 2), Score: 2},
				{Kind: models.PlayerLeft, Player: player("x", 0, 1), Score: 0},
				{Kind: models.PlayerLeft, Player: player("z", 0, 1), Score: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.prev, tt.curr, watchlist.New(tt.watch))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Diff = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDiffDuplicateNamesUseFirstOccurrence(t *testing.T) {
	prev := []models.PlayerSnapshot{player("twin", 1, 10), player("twin", 9, 10)}
	curr := []models.PlayerSnapshot{player("twin", 1, 20)}

	if got := Diff(prev, curr, nil); len(got) != 0 {
		t.Fatalf("Diff = %+v, want no events", got)
	}
}

func TestDiffProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pool := make([]string, 12)
	for i := range pool {
		pool[i] = fmt.Sprintf("player-%d", i)
	}
	pool = append(pool, "", " ")

	for round := 0; round < 500; round++ {
		prev := randomRoster(rng, pool)
		curr := randomRoster(rng, pool)
		watch := watchlist.New([]string{pool[rng.Intn(len(pool))], pool[rng.Intn(len(pool))]})

		events := Diff(prev, curr, watch)

		before, after := index(prev), index(curr)
		counts := make(map[string]int)
		for _, ev := range events {
			name := ev.Player.Name
			counts[name]++

			if ev.Player.Blank() {
				t.Fatalf("round %d: blank name in event %+v", round, ev)
			}

			_, inPrev := before[name]
			_, inCurr := after[name]
			switch ev.Kind {
			case models.PlayerJoined, models.TargetJoined:
				if inPrev || !inCurr {
					t.Fatalf("round %d: bad join for %q", round, name)
				}
			case models.PlayerLeft, models.TargetLeft:
				if !inPrev || inCurr {
					t.Fatalf("round %d: bad leave for %q", round, name)
				}
			case models.PointUpdate:
				if before[name].Score == after[name].Score {
					t.Fatalf("round %d: point update without score change for %q", round, name)
				}
			}

			if ev.Kind != models.PointUpdate && ev.Kind.IsTarget() != watch.Contains(name) {
				t.Fatalf("round %d: variant %s does not match watchlist for %q", round, ev.Kind, name)
			}
		}

		for name := range before {
			if name == "" || name == " " {
				continue
			}
			if _, ok := after[name]; ok && before[name].Score == after[name].Score && counts[name] != 0 {
				t.Fatalf("round %d: unchanged %q produced %d events", round, name, counts[name])
			}
		}
		for name, n := range counts {
			if n != 1 {
				t.Fatalf("round %d: %q produced %d events, want 1", round, name, n)
			}
		}
	}
}

// randomRoster returns a roster with unique names drawn from pool.
func randomRoster(rng *rand.Rand, pool []string) []models.PlayerSnapshot {
	var roster []models.PlayerSnapshot
	for _, i := range rng.Perm(len(pool))[:rng.Intn(len(pool))] {
		roster = append(roster, player(pool[i], rng.Intn(3), rng.Intn(600)))
	}

	return roster
}
