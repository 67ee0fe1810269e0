package models

import "gorm.io/gorm"

// Attribute names in the order the balancer sums them.
const (
	AttrShooting = "shooting"
	AttrPace     = "pace"
	AttrPhysical = "physical"
	AttrDefense  = "defense"
	AttrAura     = "aura"
)

var AttributeNames = []string{AttrShooting, AttrPace, AttrPhysical, AttrDefense, AttrAura}

const (
	DefaultAttribute = 50
	DefaultElo       = 1000
)

// Player is a registered participant, human or bot.
type Player struct {
	ID   string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Attributes, 0..100
	Shooting int `gorm:"not null" json:"shooting"`
	Pace     int `gorm:"not null" json:"pace"`
	Physical int `gorm:"not null" json:"physical"`
	Defense  int `gorm:"not null" json:"defense"`
	Aura     int `gorm:"not null" json:"aura"`

	Elo           int    `gorm:"not null;index" json:"elo"`
	RecentResults []bool `gorm:"serializer:json;type:text" json:"recent_results"` // oldest first, true = win
	GamesPlayed   int    `gorm:"not null" json:"games_played"`
	GamesWon      int    `gorm:"not null" json:"games_won"`

	IsBot    bool   `gorm:"not null;index" json:"is_bot"`
	PhotoURL string `json:"photo_url,omitempty"`

	Timestamps
}

func (p *Player) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// AttributeValues returns the attributes in AttributeNames order.
func (p *Player) AttributeValues() [5]int {
	return [5]int{p.Shooting, p.Pace, p.Physical, p.Defense, p.Aura}
}

func (p *Player) AttributeMap() map[string]int {
	vals := p.AttributeValues()
	out := make(map[string]int, len(AttributeNames))
	for i, name := range AttributeNames {
		out[name] = vals[i]
	}
	return out
}

// SetAttribute writes one attribute by name and reports whether the name is known.
func (p *Player) SetAttribute(name string, v int) bool {
	switch name {
	case AttrShooting:
		p.Shooting = v
	case AttrPace:
		p.Pace = v
	case AttrPhysical:
		p.Physical = v
	case AttrDefense:
		p.Defense = v
	case AttrAura:
		p.Aura = v
	default:
		return false
	}
	return true
}

// WinRate is 0 before the first game.
func (p *Player) WinRate() float64 {
	if p.GamesPlayed == 0 {
		return 0
	}
	return float64(p.GamesWon) / float64(p.GamesPlayed)
}

// PlayerRelation counts how often two players shared or opposed a team.
// Player1ID is always the lexically smaller id.
type PlayerRelation struct {
	ID            string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Player1ID     string `gorm:"type:varchar(36);not null;uniqueIndex:uq_player_relation_pair" json:"player1_id"`
	Player2ID     string `gorm:"type:varchar(36);not null;uniqueIndex:uq_player_relation_pair;index" json:"player2_id"`
	GamesTogether int    `gorm:"not null" json:"games_together"`
	GamesApart    int    `gorm:"not null" json:"games_apart"`

	Timestamps
}

func (r *PlayerRelation) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// Other returns the id on the opposite end of the relation.
func (r *PlayerRelation) Other(playerID string) string {
	if r.Player1ID == playerID {
		return r.Player2ID
	}
	return r.Player1ID
}

// CanonicalPair orders two player ids the way relations are stored.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
