package rating

import (
	"fmt"

	"pickup-match-system/models"
)

// Snapshot is the part of a player the propagation touches.
type Snapshot struct {
	ID            string
	Elo           int
	GamesPlayed   int
	GamesWon      int
	RecentResults []bool
}

// RelationDelta is the increment to apply to one canonical pair.
type RelationDelta struct {
	Player1ID string
	Player2ID string
	Together  int
	Apart     int
}

// Outcome is everything a closed match changes.
type Outcome struct {
	Players   []Snapshot
	Relations []RelationDelta
}

// Advance applies one finished game to a snapshot.
func Advance(s Snapshot, won bool) Snapshot {
	s.GamesPlayed++
	if won {
		s.GamesWon++
	}
	s.RecentResults = PushRecent(s.RecentResults, won)
	s.Elo = ComputeElo(s.GamesPlayed, s.GamesWon, s.RecentResults, s.Elo)
	return s
}

// Plan computes the new snapshots and pair deltas for a match won by winner.
// Every participant must have a side. The input is not modified.
func Plan(participants []Snapshot, sides map[string]models.Side, winner models.Side) (Outcome, error) {
	if !winner.Valid() {
		return Outcome{}, fmt.Errorf("rating: invalid winner %q", winner)
	}
	for _, p := range participants {
		if !sides[p.ID].Valid() {
			return Outcome{}, fmt.Errorf("rating: player %s has no side", p.ID)
		}
	}

	out := Outcome{Players: make([]Snapshot, len(participants))}
	for i, p := range participants {
		out.Players[i] = Advance(p, sides[p.ID] == winner)
	}

	for i := 0; i < len(participants); i++ {
		for j := i + 1; j < len(participants); j++ {
			a, b := models.CanonicalPair(participants[i].ID, participants[j].ID)
			d := RelationDelta{Player1ID: a, Player2ID: b}
			if sides[a] == sides[b] {
				d.Together = 1
			} else {
				d.Apart = 1
			}
			out.Relations = append(out.Relations, d)
		}
	}
	return out, nil
}
