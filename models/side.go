package models

import (
	"database/sql/driver"
	"fmt"
)

// Side identifies one of the two teams in a match.
type Side string

const (
	SideTeam1 Side = "team1"
	SideTeam2 Side = "team2"
)

func (s Side) Valid() bool {
	return s == SideTeam1 || s == SideTeam2
}

// Opponent returns the other side. An invalid side stays invalid.
func (s Side) Opponent() Side {
	switch s {
	case SideTeam1:
		return SideTeam2
	case SideTeam2:
		return SideTeam1
	}
	return s
}

func (s Side) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *Side) Scan(value any) error {
	switch v := value.(type) {
	case string:
		*s = Side(v)
	case []byte:
		*s = Side(v)
	case nil:
		*s = ""
	default:
		return fmt.Errorf("cannot scan %T into Side", value)
	}
	return nil
}

// SidePtr is a small helper for optional side columns.
func SidePtr(s Side) *Side {
	return &s
}

// VoteResult is what a player reports about their own team.
type VoteResult string

const (
	VoteWin  VoteResult = "win"
	VoteLoss VoteResult = "loss"
)

func (r VoteResult) Valid() bool {
	return r == VoteWin || r == VoteLoss
}

func (r VoteResult) Value() (driver.Value, error) {
	return string(r), nil
}

func (r *VoteResult) Scan(value any) error {
	switch v := value.(type) {
	case string:
		*r = VoteResult(v)
	case []byte:
		*r = VoteResult(v)
	case nil:
		*r = ""
	default:
		return fmt.Errorf("cannot scan %T into VoteResult", value)
	}
	return nil
}
