package services

import (
	"context"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"pickup-match-system/models"
)

// EvaluationDelay is how long after kick-off players are asked to rate each other.
const EvaluationDelay = time.Hour

type NotificationService struct {
	DB          *gorm.DB
	Clock       clockwork.Clock
	MaxAttempts int
}

func NewNotificationService(db *gorm.DB, clock clockwork.Clock, maxAttempts int) *NotificationService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &NotificationService{DB: db, Clock: clock, MaxAttempts: maxAttempts}
}

// EnqueueMatchClosed queues a result notice and an evaluation prompt for every
// human participant. Runs inside the closing transaction.
func (s *NotificationService) EnqueueMatchClosed(tx *gorm.DB, match *models.Match, sides map[string]models.Side, bots map[string]bool) error {
	now := s.Clock.Now()
	ids := lo.Keys(sides)
	sort.Strings(ids)

	var rows []models.Notification
	for _, id := range ids {
		if bots[id] {
			continue
		}
		won := match.WinnerSide != nil && sides[id] == *match.WinnerSide
		rows = append(rows,
			models.Notification{
				PlayerID:    id,
				MatchID:     match.ID,
				EventType:   models.NotificationMatchResult,
				Status:      models.NotificationPending,
				Payload:     map[string]any{"match_id": match.ID, "side": string(sides[id]), "won": won},
				AvailableAt: now,
			},
			models.Notification{
				PlayerID:    id,
				MatchID:     match.ID,
				EventType:   models.NotificationMatchEvaluation,
				Status:      models.NotificationPending,
				Payload:     map[string]any{"match_id": match.ID},
				AvailableAt: match.StartsAt.Add(EvaluationDelay),
			},
		)
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// CanSend reports whether a pending notification may be released now.
// Evaluation prompts wait until an hour after the match started.
func CanSend(n *models.Notification, match *models.Match, now time.Time) bool {
	if n.Status != models.NotificationPending || now.Before(n.AvailableAt) {
		return false
	}
	switch n.EventType {
	case models.NotificationMatchEvaluation:
		return match != nil && !now.Before(match.StartsAt.Add(EvaluationDelay))
	case models.NotificationMatchResult:
		return match != nil && match.IsClosed()
	}
	return true
}

// DispatchPending promotes sendable pending notifications to ready.
func (s *NotificationService) DispatchPending(ctx context.Context, limit int) (int, error) {
	now := s.Clock.Now()
	db := s.DB.WithContext(ctx)

	var pending []models.Notification
	if err := db.Where("status = ? AND available_at <= ?", models.NotificationPending, now).
		Order("available_at").Limit(limit).Find(&pending).Error; err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	matchIDs := lo.Uniq(lo.Map(pending, func(n models.Notification, _ int) string { return n.MatchID }))
	var matches []models.Match
	if err := db.Where("id IN ?", matchIDs).Find(&matches).Error; err != nil {
		return 0, err
	}
	byID := lo.KeyBy(matches, func(m models.Match) string { return m.ID })

	ready := lo.FilterMap(pending, func(n models.Notification, _ int) (string, bool) {
		m, ok := byID[n.MatchID]
		if !ok {
			return n.ID, CanSend(&n, nil, now)
		}
		return n.ID, CanSend(&n, &m, now)
	})
	if len(ready) == 0 {
		return 0, nil
	}
	res := db.Model(&models.Notification{}).
		Where("id IN ? AND status = ?", ready, models.NotificationPending).
		Update("status", models.NotificationReady)
	return int(res.RowsAffected), res.Error
}

func (s *NotificationService) ListReady(ctx context.Context, limit int) ([]models.Notification, error) {
	var out []models.Notification
	err := s.DB.WithContext(ctx).Where("status = ?", models.NotificationReady).
		Order("available_at").Limit(limit).Find(&out).Error
	return out, err
}

func (s *NotificationService) MarkSent(ctx context.Context, id string) error {
	now := s.Clock.Now()
	return s.DB.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   models.NotificationSent,
			"sent_at":  now,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

// MarkFailed records a delivery error. The notification stays ready for a
// retry until it runs out of attempts.
func (s *NotificationService) MarkFailed(ctx context.Context, n *models.Notification, cause error) error {
	status := models.NotificationReady
	if n.Attempts+1 >= s.MaxAttempts {
		status = models.NotificationFailed
	}
	return s.DB.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", n.ID).
		Updates(map[string]interface{}{
			"status":     status,
			"attempts":   n.Attempts + 1,
			"last_error": cause.Error(),
		}).Error
}

func (s *NotificationService) ListForPlayer(ctx context.Context, playerID string) ([]models.Notification, error) {
	var out []models.Notification
	err := s.DB.WithContext(ctx).Where("player_id = ?", playerID).Order("created_at DESC").Find(&out).Error
	return out, err
}
