package knowledge

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KnowledgeChunk struct {
	ID       uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID uuid.UUID        `gorm:"type:uuid;not null;index" json:"source_id"`
	Source   *KnowledgeSource `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceID;references:ID" json:"-"`
	AgentID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"agent_id"`

	ChunkIndex int             `gorm:"column:chunk_index;not null" json:"chunk_index"`
	Content    string          `gorm:"column:content;type:text;not null" json:"content"`
	Embedding  pgvector.Vector `gorm:"column:embedding;type:vector" json:"-"`
	TokenCount int             `gorm:"column:token_count;not null;default:0" json:"token_count"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (KnowledgeChunk) TableName() string { return "knowledge_chunk" }

func (c *KnowledgeChunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ChunkMatch is one similarity search hit.
type ChunkMatch struct {
	ID         uuid.UUID `json:"id"`
	SourceID   uuid.UUID `json:"sourceId"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
}
