package leads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Conversation struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"agent_id"`
	LeadID    *uuid.UUID     `gorm:"type:uuid;index" json:"lead_id,omitempty"`
	Lead      *Lead          `gorm:"constraint:OnDelete:SET NULL;foreignKey:LeadID;references:ID" json:"-"`
	Status    string         `gorm:"column:status;not null;default:'open'" json:"status"`
	Channel   string         `gorm:"column:channel;default:'widget'" json:"channel"`
	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "open"
	}
	return nil
}
