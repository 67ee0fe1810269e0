package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pickup-match-system/balance"
	"pickup-match-system/consensus"
	"pickup-match-system/models"
)

type MatchService struct {
	DB    *gorm.DB
	Clock clockwork.Clock
}

func NewMatchService(db *gorm.DB, clock clockwork.Clock) *MatchService {
	return &MatchService{DB: db, Clock: clock}
}

type CreateMatchInput struct {
	MaxPlayers int        `json:"max_players"`
	StartsAt   *time.Time `json:"starts_at"`
}

func (s *MatchService) CreateMatch(ctx context.Context, in CreateMatchInput) (*models.Match, error) {
	capacity := in.MaxPlayers
	if capacity == 0 {
		capacity = models.DefaultMaxPlayers
	}
	if capacity < 2 || capacity%2 != 0 {
		return nil, ErrInvalidCapacity
	}
	startsAt := s.Clock.Now()
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}

	m := models.Match{MaxPlayers: capacity, StartsAt: startsAt.UTC()}
	if err := s.DB.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func findMatch(tx *gorm.DB, id string) (*models.Match, error) {
	var m models.Match
	if err := tx.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

// forUpdate row-locks whatever the next query reads until the transaction ends.
// Writers that read a match and then decide on its state take this lock first.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// roster returns the match players in join order.
func roster(tx *gorm.DB, matchID string) ([]models.MatchPlayer, error) {
	var mps []models.MatchPlayer
	err := tx.Where("match_id = ?", matchID).Order("joined_at, id").Find(&mps).Error
	return mps, err
}

func playersByID(tx *gorm.DB, ids []string) (map[string]models.Player, error) {
	if len(ids) == 0 {
		return map[string]models.Player{}, nil
	}
	var players []models.Player
	if err := tx.Where("id IN ?", ids).Order("id").Find(&players).Error; err != nil {
		return nil, err
	}
	return lo.KeyBy(players, func(p models.Player) string { return p.ID }), nil
}

func sideMap(mps []models.MatchPlayer) map[string]models.Side {
	out := make(map[string]models.Side, len(mps))
	for _, mp := range mps {
		if mp.Side != nil {
			out[mp.PlayerID] = *mp.Side
		}
	}
	return out
}

// RosterEntry is a player as seen from inside one match.
type RosterEntry struct {
	models.Player
	Side *models.Side `json:"side,omitempty"`
}

type MatchDetails struct {
	Match        models.Match    `json:"match"`
	Players      []RosterEntry   `json:"players"`
	Tally        consensus.Tally `json:"tally"`
	PendingVotes int64           `json:"pending_votes"`
}

func (s *MatchService) GetMatch(ctx context.Context, id string) (*MatchDetails, error) {
	db := s.DB.WithContext(ctx)
	m, err := findMatch(db, id)
	if err != nil {
		return nil, err
	}
	mps, err := roster(db, id)
	if err != nil {
		return nil, err
	}
	byID, err := playersByID(db, lo.Map(mps, func(mp models.MatchPlayer, _ int) string { return mp.PlayerID }))
	if err != nil {
		return nil, err
	}

	d := &MatchDetails{
		Match: *m,
		Tally: consensus.Tally{Team1: m.VotesTeam1, Team2: m.VotesTeam2},
	}
	for _, mp := range mps {
		d.Players = append(d.Players, RosterEntry{Player: byID[mp.PlayerID], Side: mp.Side})
	}
	if err := db.Model(&models.MatchVote{}).Where("match_id = ? AND pending = ?", id, true).Count(&d.PendingVotes).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (s *MatchService) ListOpenMatches(ctx context.Context) ([]models.Match, error) {
	var matches []models.Match
	err := s.DB.WithContext(ctx).Where("winner_side IS NULL").Order("starts_at").Find(&matches).Error
	return matches, err
}

// AddPlayer puts a player on the roster, optionally pre-tagged to a side.
func (s *MatchService) AddPlayer(ctx context.Context, matchID, playerID string, side *models.Side) (*models.MatchPlayer, error) {
	if side != nil && !side.Valid() {
		return nil, ErrInvalidSide
	}

	var mp models.MatchPlayer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := findMatch(forUpdate(tx), matchID)
		if err != nil {
			return err
		}
		if m.IsClosed() {
			return ErrMatchAlreadyClosed
		}
		if m.IsBalanced() {
			return ErrRosterLocked
		}

		var p models.Player
		if err := tx.First(&p, "id = ?", playerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}

		var joined int64
		if err := tx.Model(&models.MatchPlayer{}).Where("match_id = ? AND player_id = ?", matchID, playerID).Count(&joined).Error; err != nil {
			return err
		}
		if joined > 0 {
			return ErrAlreadyInMatch
		}

		var count int64
		if err := tx.Model(&models.MatchPlayer{}).Where("match_id = ?", matchID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= m.MaxPlayers {
			return ErrMatchFull
		}

		mp = models.MatchPlayer{MatchID: matchID, PlayerID: playerID, Side: side}
		if err := tx.Create(&mp).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyInMatch
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

// FillWithBots tops the roster up to capacity with bot players, reusing
// existing bots before creating new ones. Returns how many were added.
func (s *MatchService) FillWithBots(ctx context.Context, matchID string) (int, error) {
	added := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := findMatch(forUpdate(tx), matchID)
		if err != nil {
			return err
		}
		if m.IsClosed() {
			return ErrMatchAlreadyClosed
		}
		if m.IsBalanced() {
			return ErrRosterLocked
		}

		mps, err := roster(tx, matchID)
		if err != nil {
			return err
		}
		missing := m.MaxPlayers - len(mps)
		if missing <= 0 {
			return nil
		}

		var bots []models.Player
		q := tx.Where("is_bot = ?", true).Order("name").Limit(missing)
		if len(mps) > 0 {
			q = q.Where("id NOT IN ?", lo.Map(mps, func(mp models.MatchPlayer, _ int) string { return mp.PlayerID }))
		}
		if err := q.Find(&bots).Error; err != nil {
			return err
		}
		for len(bots) < missing {
			bot := newPlayer("Bot "+uuid.NewString()[:8], nil, true)
			if err := tx.Create(&bot).Error; err != nil {
				return err
			}
			bots = append(bots, bot)
		}

		entries := lo.Map(bots, func(b models.Player, _ int) models.MatchPlayer {
			return models.MatchPlayer{MatchID: matchID, PlayerID: b.ID}
		})
		if err := tx.Create(&entries).Error; err != nil {
			return err
		}
		added = len(entries)
		return nil
	})
	return added, err
}

type TeamsResult struct {
	Match      models.Match    `json:"match"`
	Team1      []models.Player `json:"team1"`
	Team2      []models.Player `json:"team2"`
	Score      balance.Score   `json:"score"`
	Candidates int             `json:"candidates"`
	Groups     [][]string      `json:"groups"`
}

func toBalancePlayer(p models.Player) balance.Player {
	return balance.Player{ID: p.ID, Attributes: balance.Attributes(p.AttributeValues())}
}

func loadRelations(tx *gorm.DB, ids []string) (balance.RelationMap, error) {
	rel := balance.RelationMap{}
	if len(ids) < 2 {
		return rel, nil
	}
	var rows []models.PlayerRelation
	if err := tx.Where("player1_id IN ? AND player2_id IN ?", ids, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		rel.Set(r.Player1ID, r.Player2ID, balance.Relation{GamesTogether: r.GamesTogether, GamesApart: r.GamesApart})
	}
	return rel, nil
}

// buildUnits turns declared groups plus the rest of the roster into roster units.
// The first two groups of two or more players are kept; later ones collapse to singletons.
func buildUnits(mps []models.MatchPlayer, byID map[string]models.Player, declared [][]string) ([]balance.RosterUnit, [][]string, error) {
	inMatch := lo.SliceToMap(mps, func(mp models.MatchPlayer) (string, bool) { return mp.PlayerID, true })
	placed := map[string]bool{}

	for _, group := range declared {
		for _, id := range group {
			if !inMatch[id] {
				return nil, nil, fmt.Errorf("%w: %s", ErrNotParticipant, id)
			}
		}
	}

	var units []balance.RosterUnit
	var kept [][]string
	for _, group := range declared {
		group = lo.Uniq(group)
		for _, id := range group {
			if placed[id] {
				return nil, nil, fmt.Errorf("%w: %s", balance.ErrDuplicatePlayer, id)
			}
			placed[id] = true
		}
		if len(group) >= 2 && len(kept) < 2 {
			members := lo.Map(group, func(id string, _ int) balance.Player { return toBalancePlayer(byID[id]) })
			units = append(units, balance.Unit(members...))
			kept = append(kept, group)
			continue
		}
		for _, id := range group {
			units = append(units, balance.Singleton{Player: toBalancePlayer(byID[id])})
		}
	}
	for _, mp := range mps {
		if !placed[mp.PlayerID] {
			units = append(units, balance.Singleton{Player: toBalancePlayer(byID[mp.PlayerID])})
		}
	}
	return units, kept, nil
}

// GenerateTeams balances the roster and stores each player's side.
//
// Before the first run, players who joined with a side form one group per
// side. A regeneration starts from the groups the first run kept instead, so
// a group is never split. Explicit groups from the request follow.
// Regenerating is only allowed until the first vote arrives.
func (s *MatchService) GenerateTeams(ctx context.Context, matchID string, groups [][]string) (*TeamsResult, error) {
	var out TeamsResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := findMatch(forUpdate(tx), matchID)
		if err != nil {
			return err
		}
		if m.IsClosed() {
			return ErrMatchAlreadyClosed
		}
		var votes int64
		if err := tx.Model(&models.MatchVote{}).Where("match_id = ?", matchID).Count(&votes).Error; err != nil {
			return err
		}
		if votes > 0 {
			return ErrVotingStarted
		}

		mps, err := roster(tx, matchID)
		if err != nil {
			return err
		}
		if len(mps) < 2 {
			return ErrNotEnoughPlayers
		}
		ids := lo.Map(mps, func(mp models.MatchPlayer, _ int) string { return mp.PlayerID })
		byID, err := playersByID(tx, ids)
		if err != nil {
			return err
		}

		var declared [][]string
		if m.IsBalanced() {
			declared = append(declared, m.PreSetGroups...)
			// repeating a stored group is not a conflict
			groups = lo.Reject(groups, func(g []string, _ int) bool {
				return lo.SomeBy(m.PreSetGroups, func(stored []string) bool {
					return len(stored) == len(lo.Uniq(g)) && lo.Every(stored, g)
				})
			})
		} else {
			for _, side := range []models.Side{models.SideTeam1, models.SideTeam2} {
				tagged := lo.FilterMap(mps, func(mp models.MatchPlayer, _ int) (string, bool) {
					return mp.PlayerID, mp.Side != nil && *mp.Side == side
				})
				if len(tagged) > 0 {
					declared = append(declared, tagged)
				}
			}
		}
		declared = append(declared, groups...)

		units, kept, err := buildUnits(mps, byID, declared)
		if err != nil {
			return err
		}
		rel, err := loadRelations(tx, ids)
		if err != nil {
			return err
		}
		res, err := balance.Balance(units, rel)
		if err != nil {
			return err
		}

		teamIDs := func(team []balance.Player) []string {
			return lo.Map(team, func(p balance.Player, _ int) string { return p.ID })
		}
		if err := tx.Model(&models.MatchPlayer{}).
			Where("match_id = ? AND player_id IN ?", matchID, teamIDs(res.TeamA)).
			Update("side", models.SideTeam1).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.MatchPlayer{}).
			Where("match_id = ? AND player_id IN ?", matchID, teamIDs(res.TeamB)).
			Update("side", models.SideTeam2).Error; err != nil {
			return err
		}

		now := s.Clock.Now()
		m.BalancedAt = &now
		m.PreSetGroups = kept
		if err := tx.Save(m).Error; err != nil {
			return err
		}

		toModels := func(team []balance.Player) []models.Player {
			return lo.Map(team, func(p balance.Player, _ int) models.Player { return byID[p.ID] })
		}
		out = TeamsResult{
			Match:      *m,
			Team1:      toModels(res.TeamA),
			Team2:      toModels(res.TeamB),
			Score:      res.Score,
			Candidates: res.Candidates,
			Groups:     kept,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type TeamReport struct {
	Players    []models.Player `json:"players"`
	Totals     map[string]int  `json:"totals"`
	Chemistry  int             `json:"chemistry"`
	AverageElo float64         `json:"average_elo"`
}

type BalanceReport struct {
	MatchID      string         `json:"match_id"`
	Team1        TeamReport     `json:"team1"`
	Team2        TeamReport     `json:"team2"`
	StatDiff     map[string]int `json:"stat_diff"`
	TotalDiff    int            `json:"total_diff"`
	PreSetGroups [][]string     `json:"pre_set_groups"`
}

func attributeMap(a balance.Attributes) map[string]int {
	out := make(map[string]int, len(a))
	for i, name := range models.AttributeNames {
		out[name] = a[i]
	}
	return out
}

// BalanceReport explains the current split of a balanced match.
func (s *MatchService) BalanceReport(ctx context.Context, matchID string) (*BalanceReport, error) {
	db := s.DB.WithContext(ctx)
	m, err := findMatch(db, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsBalanced() {
		return nil, ErrTeamsNotAssigned
	}
	mps, err := roster(db, matchID)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(mps, func(mp models.MatchPlayer, _ int) string { return mp.PlayerID })
	byID, err := playersByID(db, ids)
	if err != nil {
		return nil, err
	}
	rel, err := loadRelations(db, ids)
	if err != nil {
		return nil, err
	}

	sides := sideMap(mps)
	team := func(side models.Side) ([]models.Player, []balance.Player) {
		var ps []models.Player
		for _, id := range ids {
			if sides[id] == side {
				ps = append(ps, byID[id])
			}
		}
		return ps, lo.Map(ps, func(p models.Player, _ int) balance.Player { return toBalancePlayer(p) })
	}
	report := func(ps []models.Player, bp []balance.Player) TeamReport {
		r := TeamReport{
			Players:   ps,
			Totals:    attributeMap(balance.TeamTotals(bp)),
			Chemistry: balance.Chemistry(bp, rel),
		}
		if len(ps) > 0 {
			r.AverageElo = float64(lo.SumBy(ps, func(p models.Player) int { return p.Elo })) / float64(len(ps))
		}
		return r
	}

	p1, b1 := team(models.SideTeam1)
	p2, b2 := team(models.SideTeam2)
	diff, total := balance.StatDiff(b1, b2)

	return &BalanceReport{
		MatchID:      m.ID,
		Team1:        report(p1, b1),
		Team2:        report(p2, b2),
		StatDiff:     attributeMap(diff),
		TotalDiff:    total,
		PreSetGroups: m.PreSetGroups,
	}, nil
}

// RecordVote stores a player's reported result as a pending vote.
// Tallies are only touched by the closing tick.
func (s *MatchService) RecordVote(ctx context.Context, matchID, voterID string, result models.VoteResult) (*models.MatchVote, error) {
	if !result.Valid() {
		return nil, ErrInvalidResult
	}

	var vote models.MatchVote
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := findMatch(forUpdate(tx), matchID)
		if err != nil {
			return err
		}
		if m.IsClosed() {
			return ErrMatchAlreadyClosed
		}

		var mp models.MatchPlayer
		if err := tx.Where("match_id = ? AND player_id = ?", matchID, voterID).First(&mp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotParticipant
			}
			return err
		}
		if !m.IsBalanced() || mp.Side == nil {
			return ErrTeamsNotAssigned
		}

		var existing int64
		if err := tx.Model(&models.MatchVote{}).Where("match_id = ? AND voter_id = ?", matchID, voterID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateVote
		}

		vote = models.MatchVote{MatchID: matchID, VoterID: voterID, Result: result, Pending: true}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateVote
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &vote, nil
}
