package leads

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sentinel lead ids returned for soft-blocked submissions.
const (
	BlockedBot       = "bot-blocked"
	BlockedSpam      = "spam-blocked"
	BlockedRateLimit = "rate-limited"
)

type Lead struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id"`

	Name    string `gorm:"column:name" json:"name,omitempty"`
	Email   string `gorm:"column:email;index" json:"email,omitempty"`
	Phone   string `gorm:"column:phone" json:"phone,omitempty"`
	Message string `gorm:"column:message;type:text" json:"message,omitempty"`
	Source  string `gorm:"column:source;not null;default:'widget_form'" json:"source"`

	CustomFields datatypes.JSON `gorm:"column:custom_fields;type:jsonb" json:"custom_fields,omitempty"`

	Metadata datatypes.JSONType[LeadMetadata] `gorm:"column:metadata;type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lead) TableName() string { return "lead" }

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Source == "" {
		l.Source = "widget_form"
	}
	return nil
}

// LeadMetadata is the visitor context captured by the widget.
type LeadMetadata struct {
	IPHash    string            `json:"ip_hash,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Device    *Device           `json:"device,omitempty"`
	Geo       *Geo              `json:"geo,omitempty"`
	Referrer  string            `json:"referrer,omitempty"`
	PageURL   string            `json:"page_url,omitempty"`
	Journey   []JourneyStep     `json:"journey,omitempty"`
	UTM       map[string]string `json:"utm,omitempty"`
}

type Device struct {
	Type     string `json:"type,omitempty"`
	OS       string `json:"os,omitempty"`
	Browser  string `json:"browser,omitempty"`
	Screen   string `json:"screen,omitempty"`
	Language string `json:"language,omitempty"`
}

type Geo struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type JourneyStep struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}
