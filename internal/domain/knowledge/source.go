package knowledge

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SourceTypeURL     = "url"
	SourceTypeSitemap = "sitemap"
	SourceTypePDF     = "pdf"
	SourceTypeText    = "text"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

type KnowledgeSource struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID     uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;index" json:"owner_user_id"`

	Type   string `gorm:"column:type;not null;index" json:"type"`
	Source string `gorm:"column:source;type:text;not null" json:"source"`
	Title  string `gorm:"column:title" json:"title,omitempty"`
	Status string `gorm:"column:status;not null;index;default:'pending'" json:"status"`

	Content string `gorm:"column:content;type:text" json:"content,omitempty"`

	// Denormalized out of Metadata so batch queries stay indexable.
	BatchID        *uuid.UUID `gorm:"type:uuid;column:batch_id;index" json:"batch_id,omitempty"`
	ParentSourceID *uuid.UUID `gorm:"type:uuid;column:parent_source_id;index" json:"parent_source_id,omitempty"`

	Metadata datatypes.JSONType[SourceMetadata] `gorm:"column:metadata;type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (KnowledgeSource) TableName() string { return "knowledge_source" }

func (s *KnowledgeSource) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	return nil
}

// Meta returns a copy of the decoded metadata.
func (s *KnowledgeSource) Meta() SourceMetadata {
	if s == nil {
		return SourceMetadata{}
	}
	return s.Metadata.Data()
}

func (s *KnowledgeSource) IsSitemapChild() bool {
	return s != nil && s.ParentSourceID != nil && *s.ParentSourceID != uuid.Nil
}

func ValidSourceType(t string) bool {
	switch t {
	case SourceTypeURL, SourceTypeSitemap, SourceTypePDF, SourceTypeText:
		return true
	}
	return false
}
