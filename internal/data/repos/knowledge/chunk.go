package knowledge

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type KnowledgeChunkRepo interface {
	ReplaceForSource(dbc dbctx.Context, sourceID uuid.UUID, chunks []*types.KnowledgeChunk) (int, error)
	CountBySource(dbc dbctx.Context, sourceID uuid.UUID) (int64, error)
	ListBySource(dbc dbctx.Context, sourceID uuid.UUID) ([]*types.KnowledgeChunk, error)
	Search(dbc dbctx.Context, agentID uuid.UUID, query []float32, threshold float64, count int) ([]types.ChunkMatch, error)
}

type knowledgeChunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeChunkRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeChunkRepo {
	return &knowledgeChunkRepo{
		db:  db,
		log: baseLog.With("repo", "KnowledgeChunkRepo"),
	}
}

// ReplaceForSource deletes every existing chunk of sourceID and inserts
// chunks in the same transaction, so reprocessing never accumulates rows.
func (r *knowledgeChunkRepo) ReplaceForSource(dbc dbctx.Context, sourceID uuid.UUID, chunks []*types.KnowledgeChunk) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sourceID == uuid.Nil {
		return 0, nil
	}
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("source_id = ?", sourceID).Delete(&types.KnowledgeChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		for _, c := range chunks {
			c.SourceID = sourceID
		}
		return txx.CreateInBatches(&chunks, 100).Error
	})
	if err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (r *knowledgeChunkRepo) CountBySource(dbc dbctx.Context, sourceID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.KnowledgeChunk{}).
		Where("source_id = ?", sourceID).
		Count(&n).Error
	return n, err
}

func (r *knowledgeChunkRepo) ListBySource(dbc dbctx.Context, sourceID uuid.UUID) ([]*types.KnowledgeChunk, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.KnowledgeChunk
	err := transaction.WithContext(dbc.Ctx).
		Where("source_id = ?", sourceID).
		Order("chunk_index ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns the agent's chunks whose cosine similarity to query is
// above threshold, best first. Postgres delegates to pgvector; other
// dialects score in process.
func (r *knowledgeChunkRepo) Search(dbc dbctx.Context, agentID uuid.UUID, query []float32, threshold float64, count int) ([]types.ChunkMatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if agentID == uuid.Nil || len(query) == 0 {
		return []types.ChunkMatch{}, nil
	}
	if count <= 0 {
		count = 5
	}
	if transaction.Dialector.Name() == "postgres" {
		return r.searchPgvector(dbc, transaction, agentID, query, threshold, count)
	}
	return r.searchInProcess(dbc, transaction, agentID, query, threshold, count)
}

func (r *knowledgeChunkRepo) searchPgvector(dbc dbctx.Context, tx *gorm.DB, agentID uuid.UUID, query []float32, threshold float64, count int) ([]types.ChunkMatch, error) {
	vec := pgvector.NewVector(query)
	var out []types.ChunkMatch
	err := tx.WithContext(dbc.Ctx).Raw(`
    SELECT id, source_id, content, 1 - (embedding <=> ?) AS similarity
    FROM knowledge_chunk
    WHERE agent_id = ? AND 1 - (embedding <=> ?) > ?
    ORDER BY embedding <=> ?
    LIMIT ?
  `, vec, agentID, vec, threshold, vec, count).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *knowledgeChunkRepo) searchInProcess(dbc dbctx.Context, tx *gorm.DB, agentID uuid.UUID, query []float32, threshold float64, count int) ([]types.ChunkMatch, error) {
	var rows []*types.KnowledgeChunk
	err := tx.WithContext(dbc.Ctx).
		Where("agent_id = ?", agentID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]types.ChunkMatch, 0, count)
	for _, row := range rows {
		sim := CosineSimilarity(query, row.Embedding.Slice())
		if sim <= threshold {
			continue
		}
		out = append(out, types.ChunkMatch{
			ID:         row.ID,
			SourceID:   row.SourceID,
			Content:    row.Content,
			Similarity: sim,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// CosineSimilarity returns 0 for mismatched or zero-length vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
