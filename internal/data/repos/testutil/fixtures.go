package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/knowledge"
)

func SeedAgent(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID) *types.Agent {
	tb.Helper()
	a := &types.Agent{
		ID:                uuid.New(),
		OwnerUserID:       ownerUserID,
		Name:              "Front desk",
		NotificationEmail: "owner@example.com",
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed agent: %v", err)
	}
	return a
}

func SeedSource(tb testing.TB, ctx context.Context, tx *gorm.DB, agentID uuid.UUID, sourceType, source string) *types.KnowledgeSource {
	tb.Helper()
	s := &types.KnowledgeSource{
		ID:      uuid.New(),
		AgentID: agentID,
		Type:    sourceType,
		Source:  source,
		Status:  knowledge.StatusPending,
	}
	if sourceType == knowledge.SourceTypeText {
		s.Content = source
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed source: %v", err)
	}
	return s
}

// SeedChild creates a pending sitemap child of parent within batchID.
func SeedChild(tb testing.TB, ctx context.Context, tx *gorm.DB, parent *types.KnowledgeSource, batchID uuid.UUID, url string) *types.KnowledgeSource {
	tb.Helper()
	parentID := parent.ID
	b := batchID
	s := &types.KnowledgeSource{
		ID:             uuid.New(),
		AgentID:        parent.AgentID,
		OwnerUserID:    parent.OwnerUserID,
		Type:           knowledge.SourceTypeURL,
		Source:         url,
		Status:         knowledge.StatusPending,
		BatchID:        &b,
		ParentSourceID: &parentID,
	}
	s.Metadata = knowledge.NewSourceMetadata(knowledge.SourceMetadata{BatchID: &b, ParentSourceID: &parentID})
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed child: %v", err)
	}
	return s
}
