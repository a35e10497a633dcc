package wordpress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Property mirrors a WordPress "home" post.
type Property struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_property_agent_wp,priority:1" json:"agent_id"`
	WPID    int64     `gorm:"column:wp_id;not null;uniqueIndex:idx_property_agent_wp,priority:2" json:"wp_id"`

	// Upstream id of the community the home belongs to, when mapped.
	LocationWPID *int64 `gorm:"column:location_wp_id;index" json:"location_wp_id,omitempty"`

	Title       string   `gorm:"column:title;not null" json:"title"`
	Slug        string   `gorm:"column:slug;index" json:"slug,omitempty"`
	Description string   `gorm:"column:description;type:text" json:"description,omitempty"`
	Address     string   `gorm:"column:address" json:"address,omitempty"`
	Price       *float64 `gorm:"column:price" json:"price,omitempty"`
	Bedrooms    *float64 `gorm:"column:bedrooms" json:"bedrooms,omitempty"`
	Bathrooms   *float64 `gorm:"column:bathrooms" json:"bathrooms,omitempty"`
	SquareFeet  *float64 `gorm:"column:square_feet" json:"square_feet,omitempty"`
	Status      string   `gorm:"column:status" json:"status,omitempty"`
	URL         string   `gorm:"column:url" json:"url,omitempty"`

	Attributes   datatypes.JSON `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty"`
	ContentHash  string         `gorm:"column:content_hash;not null" json:"content_hash"`
	WPModifiedAt *time.Time     `gorm:"column:wp_modified_at" json:"wp_modified_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Property) TableName() string { return "property" }

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
