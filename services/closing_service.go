package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pickup-match-system/consensus"
	"pickup-match-system/events"
	"pickup-match-system/models"
)

// ClosingService runs the consensus check against open matches and, when a
// match closes, applies everything that follows in the same transaction.
type ClosingService struct {
	DB            *gorm.DB
	Clock         clockwork.Clock
	Timeout       time.Duration
	Propagator    Propagator
	Notifications *NotificationService
	Emitter       events.Emitter
}

func NewClosingService(db *gorm.DB, clock clockwork.Clock, timeout time.Duration, notifications *NotificationService, emitter events.Emitter) *ClosingService {
	if emitter == nil {
		emitter = events.LogEmitter{}
	}
	return &ClosingService{
		DB:            db,
		Clock:         clock,
		Timeout:       timeout,
		Propagator:    NewStatsPropagator(),
		Notifications: notifications,
		Emitter:       emitter,
	}
}

// CloseOutcome is the result of evaluating one match.
type CloseOutcome struct {
	MatchID  string
	Tally    consensus.Tally
	Decision consensus.Decision
	Closed   bool
	Players  []string
	ClosedAt time.Time
}

// Tick evaluates every open, balanced match. A failure on one match is
// logged and does not stop the others; that match is retried next tick.
func (s *ClosingService) Tick(ctx context.Context) (int, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("winner_side IS NULL AND balanced_at IS NOT NULL").
		Order("starts_at").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		out, err := s.EvaluateMatch(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("match_id", id).Msg("[CLOSER] ❌ failed to evaluate match")
			continue
		}
		if out.Closed {
			closed++
		}
	}
	return closed, nil
}

// EvaluateMatch folds pending votes into the tallies, decides, and closes the
// match if a trigger fired. The event is published only after commit.
func (s *ClosingService) EvaluateMatch(ctx context.Context, matchID string) (CloseOutcome, error) {
	out := CloseOutcome{MatchID: matchID}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// overlapping ticks queue here, so tallies are always read after the previous write
		m, err := findMatch(forUpdate(tx), matchID)
		if err != nil {
			return err
		}
		out.Tally = consensus.Tally{Team1: m.VotesTeam1, Team2: m.VotesTeam2}
		if m.IsClosed() {
			return nil
		}

		mps, err := roster(tx, matchID)
		if err != nil {
			return err
		}
		sides := sideMap(mps)

		tally, err := s.consumePendingVotes(tx, m, sides)
		if err != nil {
			return err
		}
		out.Tally = tally

		now := s.Clock.Now()
		out.Decision = consensus.Decide(tally, now, consensus.Meta{
			Capacity: m.MaxPlayers,
			StartsAt: m.StartsAt,
			Timeout:  s.Timeout,
		})
		if !out.Decision.Close {
			return nil
		}

		won, err := closeMatch(tx, m, out.Decision, now)
		if err != nil || !won {
			return err
		}

		if err := s.Propagator.Apply(tx, m, out.Decision.Winner); err != nil {
			return err
		}
		if err := grantEvaluations(tx, matchID, mps); err != nil {
			return err
		}
		if s.Notifications != nil {
			ids := lo.Map(mps, func(mp models.MatchPlayer, _ int) string { return mp.PlayerID })
			bots, err := botSet(tx, ids)
			if err != nil {
				return err
			}
			if err := s.Notifications.EnqueueMatchClosed(tx, m, sides, bots); err != nil {
				return err
			}
		}

		out.Closed = true
		out.ClosedAt = now
		out.Players = lo.Map(mps, func(mp models.MatchPlayer, _ int) string { return mp.PlayerID })
		return nil
	})
	if err != nil {
		return CloseOutcome{MatchID: matchID}, err
	}

	if out.Closed {
		log.Info().
			Str("match_id", matchID).
			Str("winner", string(out.Decision.Winner)).
			Str("trigger", string(out.Decision.Trigger)).
			Int("team1", out.Tally.Team1).
			Int("team2", out.Tally.Team2).
			Msg("[CLOSER] ✅ match closed")
		s.emit(ctx, out)
	}
	return out, nil
}

func (s *ClosingService) emit(ctx context.Context, out CloseOutcome) {
	if s.Emitter == nil {
		return
	}
	evt := events.MatchClosed{
		EventType:  events.EventTypeMatchClosed,
		MatchID:    out.MatchID,
		WinnerSide: out.Decision.Winner,
		Trigger:    string(out.Decision.Trigger),
		Team1Votes: out.Tally.Team1,
		Team2Votes: out.Tally.Team2,
		Players:    out.Players,
		ClosedAt:   out.ClosedAt,
	}
	// the match is already closed; a lost event is logged, not retried
	if err := s.Emitter.PublishMatchClosed(ctx, evt); err != nil {
		log.Error().Err(err).Str("match_id", out.MatchID).Msg("[CLOSER] failed to publish match closed event")
	}
}

// consumePendingVotes credits every pending vote to a side, clears the
// pending flag and stores the new tallies. Each vote is counted once.
func (s *ClosingService) consumePendingVotes(tx *gorm.DB, m *models.Match, sides map[string]models.Side) (consensus.Tally, error) {
	tally := consensus.Tally{Team1: m.VotesTeam1, Team2: m.VotesTeam2}

	var votes []models.MatchVote
	if err := tx.Where("match_id = ? AND pending = ?", m.ID, true).Order("replied_at, id").Find(&votes).Error; err != nil {
		return tally, err
	}
	if len(votes) == 0 {
		return tally, nil
	}

	var consumed []string
	for _, v := range votes {
		side, err := consensus.Credit(sides[v.VoterID], v.Result)
		if err != nil {
			log.Warn().Err(err).Str("vote_id", v.ID).Msg("[CLOSER] skipping vote without a valid side")
			continue
		}
		tally = tally.Add(side)
		consumed = append(consumed, v.ID)
	}
	if len(consumed) == 0 {
		return tally, nil
	}

	if err := tx.Model(&models.MatchVote{}).Where("id IN ?", consumed).Update("pending", false).Error; err != nil {
		return tally, err
	}
	if err := tx.Model(&models.Match{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
		"votes_team1": tally.Team1,
		"votes_team2": tally.Team2,
	}).Error; err != nil {
		return tally, err
	}
	m.VotesTeam1, m.VotesTeam2 = tally.Team1, tally.Team2
	return tally, nil
}

// closeMatch sets the winner only if none is set yet. It reports false when
// another writer closed the match first, in which case nothing else may run.
func closeMatch(tx *gorm.DB, m *models.Match, d consensus.Decision, now time.Time) (bool, error) {
	res := tx.Model(&models.Match{}).
		Where("id = ? AND winner_side IS NULL", m.ID).
		Updates(map[string]interface{}{
			"winner_side":   d.Winner,
			"close_trigger": string(d.Trigger),
			"closed_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		log.Info().Str("match_id", m.ID).Msg("[CLOSER] match already closed by another writer")
		return false, nil
	}
	m.WinnerSide = models.SidePtr(d.Winner)
	m.CloseTrigger = string(d.Trigger)
	m.ClosedAt = &now
	return true, nil
}

// grantEvaluations lets every participant rate every other participant.
func grantEvaluations(tx *gorm.DB, matchID string, mps []models.MatchPlayer) error {
	var perms []models.EvaluationPermission
	for _, a := range mps {
		for _, b := range mps {
			if a.PlayerID == b.PlayerID {
				continue
			}
			perms = append(perms, models.EvaluationPermission{EvaluatorID: a.PlayerID, TargetID: b.PlayerID, MatchID: matchID})
		}
	}
	if len(perms) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&perms).Error
}

func botSet(tx *gorm.DB, ids []string) (map[string]bool, error) {
	var botIDs []string
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	if err := tx.Model(&models.Player{}).Where("id IN ? AND is_bot = ?", ids, true).Pluck("id", &botIDs).Error; err != nil {
		return nil, err
	}
	return lo.SliceToMap(botIDs, func(id string) (string, bool) { return id, true }), nil
}
