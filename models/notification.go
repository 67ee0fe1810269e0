package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationMatchResult     = "MATCH_RESULT"
	NotificationMatchEvaluation = "MATCH_EVALUATION"
)

const (
	NotificationPending = "pending"
	NotificationReady   = "ready"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an outbox row picked up by the notification worker.
type Notification struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PlayerID    string         `gorm:"type:varchar(36);not null;index" json:"player_id"`
	MatchID     string         `gorm:"type:varchar(36);index" json:"match_id"`
	EventType   string         `gorm:"type:varchar(32);not null" json:"event_type"`
	Status      string         `gorm:"type:varchar(16);not null;index" json:"status"`
	Payload     map[string]any `gorm:"serializer:json;type:text" json:"payload"`
	Attempts    int            `gorm:"not null" json:"attempts"`
	AvailableAt time.Time      `gorm:"not null;index" json:"available_at"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	LastError   string         `json:"last_error,omitempty"`

	Timestamps
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	return nil
}
