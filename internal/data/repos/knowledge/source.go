package knowledge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/knowledge"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type KnowledgeSourceRepo interface {
	Create(dbc dbctx.Context, sources []*types.KnowledgeSource) ([]*types.KnowledgeSource, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.KnowledgeSource, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.KnowledgeSource, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SetStatus(dbc dbctx.Context, id uuid.UUID, status string, meta types.SourceMetadata) error
	ListPendingChildren(dbc dbctx.Context, batchID uuid.UUID, limit int) ([]*types.KnowledgeSource, error)
	ClaimPending(dbc dbctx.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	CountChildrenByStatus(dbc dbctx.Context, batchID uuid.UUID) (map[string]int, error)
	ReapStalled(dbc dbctx.Context, batchID uuid.UUID, olderThan time.Time) (int, error)
	ListInFlightParents(dbc dbctx.Context, limit int) ([]*types.KnowledgeSource, error)
	ListOrphanChildren(dbc dbctx.Context, limit int) ([]*types.KnowledgeSource, error)
	Delete(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	DeleteChildren(dbc dbctx.Context, parentID uuid.UUID) (int64, error)
}

type knowledgeSourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeSourceRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeSourceRepo {
	return &knowledgeSourceRepo{
		db:  db,
		log: baseLog.With("repo", "KnowledgeSourceRepo"),
	}
}

func (r *knowledgeSourceRepo) Create(dbc dbctx.Context, sources []*types.KnowledgeSource) ([]*types.KnowledgeSource, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sources) == 0 {
		return []*types.KnowledgeSource{}, nil
	}
	for _, s := range sources {
		if !knowledge.ValidSourceType(s.Type) {
			return nil, fmt.Errorf("invalid source type %q", s.Type)
		}
		if err := s.Meta().Validate(s.Type); err != nil {
			return nil, fmt.Errorf("source %s metadata: %w", s.Source, err)
		}
	}
	if err := transaction.WithContext(dbc.Ctx).CreateInBatches(&sources, 100).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *knowledgeSourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.KnowledgeSource, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var src types.KnowledgeSource
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&src).Error
	if err != nil {
		return nil, err
	}
	if src.ID == uuid.Nil {
		return nil, nil
	}
	return &src, nil
}

func (r *knowledgeSourceRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.KnowledgeSource, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.KnowledgeSource
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *knowledgeSourceRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.KnowledgeSource{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *knowledgeSourceRepo) SetStatus(dbc dbctx.Context, id uuid.UUID, status string, meta types.SourceMetadata) error {
	return r.UpdateFields(dbc, id, map[string]interface{}{
		"status":   status,
		"metadata": knowledge.NewSourceMetadata(meta),
	})
}

func (r *knowledgeSourceRepo) ListPendingChildren(dbc dbctx.Context, batchID uuid.UUID, limit int) ([]*types.KnowledgeSource, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.KnowledgeSource
	if batchID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 5
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("batch_id = ? AND parent_source_id IS NOT NULL AND status = ?", batchID, knowledge.StatusPending).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimPending moves each id from pending to processing with a conditional
// update. Only ids this caller actually flipped are returned, so two racing
// batch runs never process the same child.
func (r *knowledgeSourceRepo) ClaimPending(dbc dbctx.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	claimed := make([]uuid.UUID, 0, len(ids))
	now := time.Now().UTC()
	for _, id := range ids {
		res := transaction.WithContext(dbc.Ctx).
			Model(&types.KnowledgeSource{}).
			Where("id = ? AND status = ?", id, knowledge.StatusPending).
			Updates(map[string]interface{}{
				"status":     knowledge.StatusProcessing,
				"updated_at": now,
			})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected > 0 {
			claimed = append(claimed, id)
		}
	}
	return claimed, nil
}

func (r *knowledgeSourceRepo) CountChildrenByStatus(dbc dbctx.Context, batchID uuid.UUID) (map[string]int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]int{}
	if batchID == uuid.Nil {
		return out, nil
	}
	var rows []struct {
		Status string
		N      int
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.KnowledgeSource{}).
		Select("status, COUNT(*) AS n").
		Where("batch_id = ? AND parent_source_id IS NOT NULL", batchID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

// ReapStalled marks children of batchID that have sat in processing since
// before olderThan as errored.
func (r *knowledgeSourceRepo) ReapStalled(dbc dbctx.Context, batchID uuid.UUID, olderThan time.Time) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if batchID == uuid.Nil {
		return 0, nil
	}
	var stalled []*types.KnowledgeSource
	err := transaction.WithContext(dbc.Ctx).
		Where("batch_id = ? AND parent_source_id IS NOT NULL AND status = ? AND updated_at < ?",
			batchID, knowledge.StatusProcessing, olderThan).
		Find(&stalled).Error
	if err != nil {
		return 0, err
	}
	reaped := 0
	now := time.Now().UTC()
	for _, s := range stalled {
		meta := s.Meta()
		meta.Error = "timed out"
		meta.ProcessedAt = &now
		res := transaction.WithContext(dbc.Ctx).
			Model(&types.KnowledgeSource{}).
			Where("id = ? AND status = ? AND updated_at < ?", s.ID, knowledge.StatusProcessing, olderThan).
			Updates(map[string]interface{}{
				"status":     knowledge.StatusError,
				"metadata":   knowledge.NewSourceMetadata(meta),
				"updated_at": now,
			})
		if res.Error != nil {
			return reaped, res.Error
		}
		reaped += int(res.RowsAffected)
	}
	if reaped > 0 {
		r.log.Warn("Reaped stalled sources", "batch_id", batchID, "count", reaped)
	}
	return reaped, nil
}

// ListInFlightParents returns sitemap parents still expanding or batching.
func (r *knowledgeSourceRepo) ListInFlightParents(dbc dbctx.Context, limit int) ([]*types.KnowledgeSource, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.KnowledgeSource
	err := transaction.WithContext(dbc.Ctx).
		Where("type = ? AND status = ? AND batch_id IS NOT NULL AND parent_source_id IS NULL",
			knowledge.SourceTypeSitemap, knowledge.StatusProcessing).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *knowledgeSourceRepo) ListOrphanChildren(dbc dbctx.Context, limit int) ([]*types.KnowledgeSource, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	var out []*types.KnowledgeSource
	err := transaction.WithContext(dbc.Ctx).
		Where("parent_source_id IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM knowledge_source p WHERE p.id = knowledge_source.parent_source_id)").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the sources and every chunk that belongs to them.
func (r *knowledgeSourceRepo) Delete(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("source_id IN ?", ids).Delete(&types.KnowledgeChunk{}).Error; err != nil {
			return err
		}
		res := txx.Where("id IN ?", ids).Delete(&types.KnowledgeSource{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// DeleteChildren removes every sitemap child of parentID and their chunks.
func (r *knowledgeSourceRepo) DeleteChildren(dbc dbctx.Context, parentID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if parentID == uuid.Nil {
		return 0, nil
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.KnowledgeSource{}).
		Where("parent_source_id = ?", parentID).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	return r.Delete(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, ids)
}
