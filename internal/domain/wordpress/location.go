package wordpress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Location mirrors a WordPress "community" post.
type Location struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_location_agent_wp,priority:1" json:"agent_id"`
	WPID    int64     `gorm:"column:wp_id;not null;uniqueIndex:idx_location_agent_wp,priority:2" json:"wp_id"`

	Name        string   `gorm:"column:name;not null" json:"name"`
	Slug        string   `gorm:"column:slug;index" json:"slug,omitempty"`
	Description string   `gorm:"column:description;type:text" json:"description,omitempty"`
	Address     string   `gorm:"column:address" json:"address,omitempty"`
	City        string   `gorm:"column:city" json:"city,omitempty"`
	State       string   `gorm:"column:state" json:"state,omitempty"`
	Zip         string   `gorm:"column:zip" json:"zip,omitempty"`
	PriceFrom   *float64 `gorm:"column:price_from" json:"price_from,omitempty"`
	URL         string   `gorm:"column:url" json:"url,omitempty"`

	Attributes   datatypes.JSON `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty"`
	ContentHash  string         `gorm:"column:content_hash;not null" json:"content_hash"`
	WPModifiedAt *time.Time     `gorm:"column:wp_modified_at" json:"wp_modified_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Location) TableName() string { return "location" }

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
