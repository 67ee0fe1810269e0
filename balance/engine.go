package balance

import (
	"fmt"
	"iter"
)

// Partition is one candidate split. TeamA holds the chosen units in roster
// order and TeamB holds the rest in roster order.
type Partition struct {
	TeamA []Player
	TeamB []Player
}

// Result is the winning split plus how many feasible candidates were scored.
type Result struct {
	TeamA      []Player
	TeamB      []Player
	Score      Score
	Candidates int
}

// Validate checks the roster shape before any search runs.
// Checks run in a fixed order so callers always see the same error for the same input.
func Validate(units []RosterUnit) error {
	total := countPlayers(units)
	if total%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrEvenCountRequired, total)
	}
	half := total / 2
	multi := 0
	for _, u := range units {
		if u.Size() > half {
			return fmt.Errorf("%w: group of %d with half of %d", ErrGroupTooLarge, u.Size(), half)
		}
		if isMultiPlayer(u) {
			multi++
		}
	}
	if multi > 2 {
		return fmt.Errorf("%w: got %d", ErrTooManyMultiUnitGroups, multi)
	}
	seen := make(map[string]struct{}, total)
	for _, u := range units {
		for _, p := range u.Players() {
			if _, dup := seen[p.ID]; dup {
				return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
			}
			seen[p.ID] = struct{}{}
		}
	}
	return nil
}

// Candidates yields every split where the chosen units hold exactly half the
// players. Subsets are visited by ascending size and then in lexicographic
// order of unit indices, so the sequence is deterministic for a given roster.
func Candidates(units []RosterUnit) iter.Seq[Partition] {
	half := countPlayers(units) / 2
	n := len(units)
	return func(yield func(Partition) bool) {
		for r := 1; r < n; r++ {
			idx := make([]int, r)
			for i := range idx {
				idx[i] = i
			}
			for {
				if chosenSize(units, idx) == half {
					if !yield(split(units, idx)) {
						return
					}
				}
				i := r - 1
				for i >= 0 && idx[i] == n-r+i {
					i--
				}
				if i < 0 {
					break
				}
				idx[i]++
				for j := i + 1; j < r; j++ {
					idx[j] = idx[j-1] + 1
				}
			}
		}
	}
}

func chosenSize(units []RosterUnit, idx []int) int {
	n := 0
	for _, i := range idx {
		n += units[i].Size()
	}
	return n
}

func split(units []RosterUnit, idx []int) Partition {
	chosen := make([]bool, len(units))
	for _, i := range idx {
		chosen[i] = true
	}
	var p Partition
	for i, u := range units {
		if chosen[i] {
			p.TeamA = append(p.TeamA, u.Players()...)
		} else {
			p.TeamB = append(p.TeamB, u.Players()...)
		}
	}
	return p
}

func fold[T, A any](seq iter.Seq[T], acc A, f func(A, T) A) A {
	for v := range seq {
		acc = f(acc, v)
	}
	return acc
}

type best struct {
	partition Partition
	score     Score
	seen      int
}

// keepMin replaces the incumbent only on a strictly lower total, so the
// earliest candidate wins ties.
func keepMin(units []RosterUnit, relations RelationLookup) func(best, Partition) best {
	return func(b best, p Partition) best {
		s := Evaluate(units, p.TeamA, p.TeamB, relations)
		b.seen++
		if b.seen == 1 || s.Total < b.score.Total {
			b.partition = p
			b.score = s
		}
		return b
	}
}

// Balance validates the roster and returns the lowest scoring split.
// The result is a pure function of the units, their order and the relations.
func Balance(units []RosterUnit, relations RelationLookup) (Result, error) {
	if err := Validate(units); err != nil {
		return Result{}, err
	}
	b := fold(Candidates(units), best{}, keepMin(units, relations))
	if b.seen == 0 {
		return Result{}, fmt.Errorf("%w: %d units, %d players", ErrInfeasiblePartition, len(units), countPlayers(units))
	}
	return Result{
		TeamA:      b.partition.TeamA,
		TeamB:      b.partition.TeamB,
		Score:      b.score,
		Candidates: b.seen,
	}, nil
}
