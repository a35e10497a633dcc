package wordpress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type PropertyRepo interface {
	Index(dbc dbctx.Context, agentID uuid.UUID) (map[int64]MirrorRow, error)
	Create(dbc dbctx.Context, p *types.Property) error
	Replace(dbc dbctx.Context, id uuid.UUID, p *types.Property) error
	DeleteMissing(dbc dbctx.Context, agentID uuid.UUID, keepWPIDs []int64) (int64, error)
	ListByAgent(dbc dbctx.Context, agentID uuid.UUID) ([]*types.Property, error)
}

type propertyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPropertyRepo(db *gorm.DB, baseLog *logger.Logger) PropertyRepo {
	return &propertyRepo{
		db:  db,
		log: baseLog.With("repo", "PropertyRepo"),
	}
}

func (r *propertyRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *propertyRepo) Index(dbc dbctx.Context, agentID uuid.UUID) (map[int64]MirrorRow, error) {
	return listIndex[types.Property](dbc, r.tx(dbc), agentID)
}

func (r *propertyRepo) Create(dbc dbctx.Context, p *types.Property) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(p).Error
}

func (r *propertyRepo) Replace(dbc dbctx.Context, id uuid.UUID, p *types.Property) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Property{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"location_wp_id": p.LocationWPID,
			"title":          p.Title,
			"slug":           p.Slug,
			"description":    p.Description,
			"address":        p.Address,
			"price":          p.Price,
			"bedrooms":       p.Bedrooms,
			"bathrooms":      p.Bathrooms,
			"square_feet":    p.SquareFeet,
			"status":         p.Status,
			"url":            p.URL,
			"attributes":     p.Attributes,
			"content_hash":   p.ContentHash,
			"wp_modified_at": p.WPModifiedAt,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *propertyRepo) DeleteMissing(dbc dbctx.Context, agentID uuid.UUID, keepWPIDs []int64) (int64, error) {
	return deleteMissing[types.Property](dbc, r.tx(dbc), agentID, keepWPIDs)
}

func (r *propertyRepo) ListByAgent(dbc dbctx.Context, agentID uuid.UUID) ([]*types.Property, error) {
	var out []*types.Property
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("agent_id = ?", agentID).
		Order("wp_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
