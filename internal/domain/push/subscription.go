package push

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PushSubscription struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Endpoint  string `gorm:"column:endpoint;type:text;not null;uniqueIndex" json:"endpoint"`
	P256dh    string `gorm:"column:p256dh;not null" json:"-"`
	Auth      string `gorm:"column:auth;not null" json:"-"`
	UserAgent string `gorm:"column:user_agent" json:"user_agent,omitempty"`

	LastUsedAt *time.Time `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

func (PushSubscription) TableName() string { return "push_subscription" }

func (s *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
