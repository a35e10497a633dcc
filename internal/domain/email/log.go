package email

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusQueued     = "queued"
	StatusSent       = "sent"
	StatusFailed     = "failed"
	StatusDelivered  = "delivered"
	StatusDelayed    = "delivery_delayed"
	StatusBounced    = "bounced"
	StatusComplained = "complained"
	StatusOpened     = "opened"
	StatusClicked    = "clicked"
)

// EmailLog records one outbound message and its latest delivery state.
type EmailLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderID string    `gorm:"column:provider_id;index" json:"provider_id,omitempty"`

	To       string `gorm:"column:to_address;not null" json:"to"`
	Subject  string `gorm:"column:subject" json:"subject"`
	Template string `gorm:"column:template;index" json:"template,omitempty"`
	Status   string `gorm:"column:status;not null;index" json:"status"`
	Error    string `gorm:"column:error" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (EmailLog) TableName() string { return "email_log" }

func (l *EmailLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = StatusQueued
	}
	return nil
}

// EmailEvent is an append-only record of provider webhook deliveries.
type EmailEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EmailLogID *uuid.UUID     `gorm:"type:uuid;index" json:"email_log_id,omitempty"`
	ProviderID string         `gorm:"column:provider_id;index" json:"provider_id"`
	MessageID  string         `gorm:"column:message_id;uniqueIndex" json:"message_id"`
	Type       string         `gorm:"column:type;not null;index" json:"type"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (EmailEvent) TableName() string { return "email_event" }

func (e *EmailEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// StatusForEvent maps a provider event type to a log status. ok is false for
// event types the service does not track.
func StatusForEvent(eventType string) (string, bool) {
	switch eventType {
	case "email.sent":
		return StatusSent, true
	case "email.delivered":
		return StatusDelivered, true
	case "email.delivery_delayed":
		return StatusDelayed, true
	case "email.bounced":
		return StatusBounced, true
	case "email.complained":
		return StatusComplained, true
	case "email.opened":
		return StatusOpened, true
	case "email.clicked":
		return StatusClicked, true
	}
	return "", false
}
