package leads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Agent is one chat widget deployment owned by an account.
type Agent struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Name              string         `gorm:"column:name;not null" json:"name"`
	NotificationEmail string         `gorm:"column:notification_email" json:"notification_email,omitempty"`
	Settings          datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings,omitempty"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (Agent) TableName() string { return "agent" }

func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
