package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pickup-match-system/models"
	"pickup-match-system/rating"
)

// saveAttributes writes only the skill attributes of p.
func saveAttributes(tx *gorm.DB, p *models.Player) *gorm.DB {
	return tx.Model(p).Select(models.AttributeNames).Updates(p)
}

// EvaluationService applies peer ratings to a player's attributes.
type EvaluationService struct {
	DB *gorm.DB
}

func NewEvaluationService(db *gorm.DB) *EvaluationService {
	return &EvaluationService{DB: db}
}

// Evaluate moves the target's attributes toward the evaluator's ratings.
// The evaluator must have shared a closed match with the target.
func (s *EvaluationService) Evaluate(ctx context.Context, evaluatorID, targetID string, ratings map[string]int) (*models.Player, error) {
	if evaluatorID == targetID {
		return nil, ErrEvaluationNotAllowed
	}
	if len(ratings) == 0 {
		return nil, ErrInvalidAttribute
	}
	if err := ValidateAttributes(ratings); err != nil {
		return nil, err
	}

	var target models.Player
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var allowed int64
		if err := tx.Model(&models.EvaluationPermission{}).
			Where("evaluator_id = ? AND target_id = ?", evaluatorID, targetID).
			Count(&allowed).Error; err != nil {
			return err
		}
		if allowed == 0 {
			return ErrEvaluationNotAllowed
		}

		var evaluator models.Player
		if err := tx.First(&evaluator, "id = ?", evaluatorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		if err := forUpdate(tx).First(&target, "id = ?", targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}

		updated := rating.AdjustAttributes(target.AttributeMap(), evaluator.AttributeMap(), ratings, target.Elo)
		for name, v := range updated {
			target.SetAttribute(name, v)
		}
		return saveAttributes(tx, &target).Error
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}
