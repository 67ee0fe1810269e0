package models

import (
	"time"

	"gorm.io/gorm"
)

// EvaluationPermission lets one player rate another's attributes.
// Granted to every ordered pair of players in a closed match.
type EvaluationPermission struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EvaluatorID string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_evaluation_permission" json:"evaluator_id"`
	TargetID    string    `gorm:"type:varchar(36);not null;uniqueIndex:uq_evaluation_permission" json:"target_id"`
	MatchID     string    `gorm:"type:varchar(36);index" json:"match_id"`
	GrantedAt   time.Time `gorm:"autoCreateTime" json:"granted_at"`
}

func (e *EvaluationPermission) BeforeCreate(tx *gorm.DB) error {
	assignID(&e.ID)
	return nil
}
