package wordpress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ConnectionActive       = "active"
	ConnectionError        = "error"
	ConnectionDisconnected = "disconnected"
)

// Connection is one agent's link to a WordPress site.
type Connection struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"agent_id"`

	SiteURL     string `gorm:"column:site_url;not null" json:"site_url"`
	Username    string `gorm:"column:username" json:"username,omitempty"`
	AppPassword string `gorm:"column:app_password" json:"-"`

	CommunityEndpoint string `gorm:"column:community_endpoint" json:"community_endpoint,omitempty"`
	HomeEndpoint      string `gorm:"column:home_endpoint" json:"home_endpoint,omitempty"`

	FieldMapping datatypes.JSONType[FieldMapping] `gorm:"column:field_mapping;type:jsonb" json:"field_mapping"`

	Status         string         `gorm:"column:status;not null;default:'active'" json:"status"`
	LastError      string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LastSyncAt     *time.Time     `gorm:"column:last_sync_at" json:"last_sync_at,omitempty"`
	LastSyncResult datatypes.JSON `gorm:"column:last_sync_result;type:jsonb" json:"last_sync_result,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Connection) TableName() string { return "wordpress_connection" }

func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = ConnectionActive
	}
	return nil
}

// FieldMapping maps local field names to dotted paths in the upstream
// record (e.g. "price" -> "acf.home_price").
type FieldMapping struct {
	Community map[string]string `json:"community,omitempty"`
	Home      map[string]string `json:"home,omitempty"`
}
