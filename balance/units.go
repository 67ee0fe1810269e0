// Package balance splits a match roster into two even teams while keeping
// declared groups of friends on the same side.
package balance

// NumAttributes is the number of rated attributes per player.
const NumAttributes = 5

type Attributes [NumAttributes]int

// Player is the balancer's view of a participant.
type Player struct {
	ID         string
	Attributes Attributes
}

// RosterUnit is an indivisible set of players that must end up on the same team.
// Only Singleton and Group satisfy it.
type RosterUnit interface {
	Players() []Player
	Size() int
	isRosterUnit()
}

// Singleton is a player with no co-play preference.
type Singleton struct {
	Player Player
}

func (s Singleton) Players() []Player { return []Player{s.Player} }
func (s Singleton) Size() int         { return 1 }
func (Singleton) isRosterUnit()       {}

// Group is a declared set of players who want to play together.
type Group struct {
	Members []Player
}

func (g Group) Players() []Player { return g.Members }
func (g Group) Size() int         { return len(g.Members) }
func (Group) isRosterUnit()       {}

// Unit wraps members as a Singleton when there is exactly one, otherwise as a Group.
func Unit(members ...Player) RosterUnit {
	if len(members) == 1 {
		return Singleton{Player: members[0]}
	}
	return Group{Members: members}
}

// Singletons wraps each player in its own unit, preserving order.
func Singletons(players []Player) []RosterUnit {
	units := make([]RosterUnit, len(players))
	for i, p := range players {
		units[i] = Singleton{Player: p}
	}
	return units
}

func isMultiPlayer(u RosterUnit) bool {
	return u.Size() > 1
}

func countPlayers(units []RosterUnit) int {
	n := 0
	for _, u := range units {
		n += u.Size()
	}
	return n
}

// Relation holds how often two players shared a team or faced each other.
type Relation struct {
	GamesTogether int
	GamesApart    int
}

// RelationLookup resolves the relation between two players in either order.
type RelationLookup interface {
	Relation(a, b string) (Relation, bool)
}

type pairKey struct{ a, b string }

func makePairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// RelationMap is an in-memory RelationLookup.
type RelationMap map[pairKey]Relation

func (m RelationMap) Set(a, b string, r Relation) {
	m[makePairKey(a, b)] = r
}

func (m RelationMap) Relation(a, b string) (Relation, bool) {
	r, ok := m[makePairKey(a, b)]
	return r, ok
}
