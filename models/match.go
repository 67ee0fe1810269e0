package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultMaxPlayers = 10

// Close triggers recorded on a closed match.
const (
	CloseTriggerUnanimity    = "unanimity"
	CloseTriggerIrreversible = "irreversible_lead"
	CloseTriggerTimeout      = "timeout"
)

// Match is a scheduled pickup game. A non-nil WinnerSide means the match is closed.
type Match struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MaxPlayers int       `gorm:"not null" json:"max_players"`
	StartsAt   time.Time `gorm:"not null;index" json:"starts_at"`

	// Groups the last balancing run kept together, as player ids.
	PreSetGroups [][]string `gorm:"serializer:json;type:text" json:"pre_set_groups,omitempty"`
	BalancedAt   *time.Time `json:"balanced_at,omitempty"`

	// Consensus tallies. Only the closing tick writes these.
	VotesTeam1 int `gorm:"not null" json:"votes_team1"`
	VotesTeam2 int `gorm:"not null" json:"votes_team2"`

	WinnerSide   *Side      `gorm:"type:varchar(8);index" json:"winner_side,omitempty"`
	CloseTrigger string     `gorm:"type:varchar(24)" json:"close_trigger,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`

	Timestamps
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

func (m *Match) IsClosed() bool {
	return m.WinnerSide != nil
}

func (m *Match) IsBalanced() bool {
	return m.BalancedAt != nil
}

// MatchPlayer is a roster entry. Side is nil until teams are generated
// unless the player joined with a pre-set side.
type MatchPlayer struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MatchID  string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_match_player" json:"match_id"`
	PlayerID string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_match_player;index" json:"player_id"`
	Side     *Side     `gorm:"type:varchar(8)" json:"side,omitempty"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (mp *MatchPlayer) BeforeCreate(tx *gorm.DB) error {
	assignID(&mp.ID)
	return nil
}

// MatchVote is one player's report of the outcome. Pending votes have not
// been folded into the match tallies yet.
type MatchVote struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	MatchID   string     `gorm:"type:varchar(36);not null;uniqueIndex:uq_match_vote" json:"match_id"`
	VoterID   string     `gorm:"type:varchar(36);not null;uniqueIndex:uq_match_vote" json:"voter_id"`
	Result    VoteResult `gorm:"type:varchar(8);not null" json:"result"`
	Pending   bool       `gorm:"not null;index" json:"pending"`
	RepliedAt time.Time  `gorm:"autoCreateTime" json:"replied_at"`
}

func (v *MatchVote) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}
