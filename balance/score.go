package balance

// GroupBonusWeight is subtracted from the score for every multi-player group kept intact.
const GroupBonusWeight = 5

// Score is the breakdown of a candidate's quality. Lower Total is better.
type Score struct {
	AttributeDiff Attributes `json:"attribute_diff"`
	StatDiff      int        `json:"stat_diff"`
	ChemistryA    int        `json:"chemistry_a"`
	ChemistryB    int        `json:"chemistry_b"`
	GroupsKept    int        `json:"groups_kept"`
	Total         int        `json:"total"`
}

// TeamTotals sums each attribute across a team.
func TeamTotals(team []Player) Attributes {
	var out Attributes
	for _, p := range team {
		for i, v := range p.Attributes {
			out[i] += v
		}
	}
	return out
}

// StatDiff returns the per-attribute absolute difference between two teams and its sum.
func StatDiff(a, b []Player) (Attributes, int) {
	ta, tb := TeamTotals(a), TeamTotals(b)
	var diff Attributes
	sum := 0
	for i := range diff {
		d := ta[i] - tb[i]
		if d < 0 {
			d = -d
		}
		diff[i] = d
		sum += d
	}
	return diff, sum
}

// Chemistry sums GamesTogether minus GamesApart over every unordered pair in
// the team. Pairs with no history count as zero, as does a nil lookup.
func Chemistry(team []Player, relations RelationLookup) int {
	if relations == nil {
		return 0
	}
	total := 0
	for i := 0; i < len(team); i++ {
		for j := i + 1; j < len(team); j++ {
			if r, ok := relations.Relation(team[i].ID, team[j].ID); ok {
				total += r.GamesTogether - r.GamesApart
			}
		}
	}
	return total
}

// GroupsKept counts multi-player units whose members all sit on one side.
func GroupsKept(units []RosterUnit, teamA []Player) int {
	onA := make(map[string]bool, len(teamA))
	for _, p := range teamA {
		onA[p.ID] = true
	}
	kept := 0
	for _, u := range units {
		if !isMultiPlayer(u) {
			continue
		}
		members := u.Players()
		side := onA[members[0].ID]
		intact := true
		for _, m := range members[1:] {
			if onA[m.ID] != side {
				intact = false
				break
			}
		}
		if intact {
			kept++
		}
	}
	return kept
}

// Evaluate scores a split of the given units into teamA and teamB.
func Evaluate(units []RosterUnit, teamA, teamB []Player, relations RelationLookup) Score {
	diff, sum := StatDiff(teamA, teamB)
	s := Score{
		AttributeDiff: diff,
		StatDiff:      sum,
		ChemistryA:    Chemistry(teamA, relations),
		ChemistryB:    Chemistry(teamB, relations),
		GroupsKept:    GroupsKept(units, teamA),
	}
	s.Total = s.StatDiff - s.ChemistryA - s.ChemistryB - GroupBonusWeight*s.GroupsKept
	return s
}
