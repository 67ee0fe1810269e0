package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// assignID fills an empty primary key before insert so every dialect gets a uuid.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Player{},
		&PlayerRelation{},
		&Match{},
		&MatchPlayer{},
		&MatchVote{},
		&EvaluationPermission{},
		&Notification{},
	)
}
