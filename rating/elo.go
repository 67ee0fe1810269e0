// Package rating holds the pure rating math applied when a match closes.
package rating

import "math"

const (
	BaselineElo  = 1000
	MinElo       = 0
	MaxElo       = 2000
	RecentWindow = 10

	// Below this many games the rating is derived from the win rate alone.
	ProvisionalGames = 10

	streakBonusPerPoint   = 5
	streakPenaltyPerPoint = 7
)

// PushRecent appends a result and keeps only the newest RecentWindow entries.
// The input slice is never modified.
func PushRecent(recent []bool, won bool) []bool {
	start := 0
	if len(recent) >= RecentWindow {
		start = len(recent) - RecentWindow + 1
	}
	out := make([]bool, 0, RecentWindow)
	out = append(out, recent[start:]...)
	return append(out, won)
}

// StreakScore is +1 per win and -1 per loss over the recent window.
func StreakScore(recent []bool) int {
	score := 0
	for _, won := range recent {
		if won {
			score++
		} else {
			score--
		}
	}
	return score
}

// ComputeElo derives a rating from the already updated counters.
//
// Provisional players (fewer than ProvisionalGames) sit at the baseline
// shifted by half their win-rate edge. Established players move from their
// current rating by the full win-rate edge plus a streak adjustment, where a
// losing streak costs more per point than a winning one earns.
func ComputeElo(gamesPlayed, gamesWon int, recent []bool, current int) int {
	if gamesPlayed <= 0 {
		return BaselineElo
	}
	edge := float64(gamesWon)/float64(gamesPlayed) - 0.5

	if gamesPlayed < ProvisionalGames {
		return clampInt(BaselineElo+int(math.Round(edge*100)), MinElo, MaxElo)
	}

	streak := StreakScore(recent)
	adjust := 0
	if streak > 0 {
		adjust = streak * streakBonusPerPoint
	} else if streak < 0 {
		adjust = streak * streakPenaltyPerPoint
	}
	return clampInt(current+int(math.Round(edge*200))+adjust, MinElo, MaxElo)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
