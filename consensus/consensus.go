// Package consensus decides when the reported results of a match are
// conclusive enough to declare a winner.
package consensus

import (
	"errors"
	"fmt"
	"time"

	"pickup-match-system/models"
)

// DefaultTimeout is how long after kick-off a plurality is enough to close.
const DefaultTimeout = 24 * time.Hour

type Trigger string

const (
	TriggerNone         Trigger = ""
	TriggerUnanimity    Trigger = models.CloseTriggerUnanimity
	TriggerIrreversible Trigger = models.CloseTriggerIrreversible
	TriggerTimeout      Trigger = models.CloseTriggerTimeout
)

var ErrInvalidVote = errors.New("consensus: invalid vote")

// Tally counts credited votes per side.
type Tally struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

func (t Tally) Total() int { return t.Team1 + t.Team2 }

// Add returns the tally with one more vote credited to side.
func (t Tally) Add(side models.Side) Tally {
	switch side {
	case models.SideTeam1:
		t.Team1++
	case models.SideTeam2:
		t.Team2++
	}
	return t
}

// Leader returns the side with more votes. ok is false on a tie.
func (t Tally) Leader() (side models.Side, ok bool) {
	switch {
	case t.Team1 > t.Team2:
		return models.SideTeam1, true
	case t.Team2 > t.Team1:
		return models.SideTeam2, true
	}
	return "", false
}

func (t Tally) lead() int {
	if t.Team1 > t.Team2 {
		return t.Team1 - t.Team2
	}
	return t.Team2 - t.Team1
}

// Meta is the match state the decision depends on besides the tally.
type Meta struct {
	Capacity int
	StartsAt time.Time
	Timeout  time.Duration
	Closed   bool
}

// Decision is the outcome of one evaluation.
type Decision struct {
	Close   bool        `json:"close"`
	Winner  models.Side `json:"winner,omitempty"`
	Trigger Trigger     `json:"trigger,omitempty"`
}

// Stay is the no-op decision.
func Stay() Decision { return Decision{} }

// Credit maps a voter's report to the side that receives the vote:
// a win credits the voter's own side, a loss credits the opponent.
func Credit(voterSide models.Side, result models.VoteResult) (models.Side, error) {
	if !voterSide.Valid() {
		return "", fmt.Errorf("%w: side %q", ErrInvalidVote, voterSide)
	}
	switch result {
	case models.VoteWin:
		return voterSide, nil
	case models.VoteLoss:
		return voterSide.Opponent(), nil
	}
	return "", fmt.Errorf("%w: result %q", ErrInvalidVote, result)
}

// Decide evaluates the close triggers in priority order: unanimity, then an
// irreversible lead, then the timeout. A tied tally never closes, whatever fired.
func Decide(t Tally, now time.Time, m Meta) Decision {
	if m.Closed {
		return Stay()
	}
	trigger := fired(t, now, m)
	if trigger == TriggerNone {
		return Stay()
	}
	winner, ok := t.Leader()
	if !ok {
		return Stay()
	}
	return Decision{Close: true, Winner: winner, Trigger: trigger}
}

func fired(t Tally, now time.Time, m Meta) Trigger {
	total := t.Total()
	if m.Capacity > 0 && total >= m.Capacity {
		return TriggerUnanimity
	}
	remaining := m.Capacity - total
	if remaining < 0 {
		remaining = 0
	}
	if total > 0 && t.lead() > remaining {
		return TriggerIrreversible
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if !now.Before(m.StartsAt.Add(timeout)) {
		return TriggerTimeout
	}
	return TriggerNone
}

// Remaining is how many votes are still outstanding for a match of the given capacity.
func Remaining(t Tally, capacity int) int {
	if r := capacity - t.Total(); r > 0 {
		return r
	}
	return 0
}
