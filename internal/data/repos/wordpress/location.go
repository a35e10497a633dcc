package wordpress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type LocationRepo interface {
	Index(dbc dbctx.Context, agentID uuid.UUID) (map[int64]MirrorRow, error)
	Create(dbc dbctx.Context, loc *types.Location) error
	Replace(dbc dbctx.Context, id uuid.UUID, loc *types.Location) error
	DeleteMissing(dbc dbctx.Context, agentID uuid.UUID, keepWPIDs []int64) (int64, error)
	ListByAgent(dbc dbctx.Context, agentID uuid.UUID) ([]*types.Location, error)
}

type locationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLocationRepo(db *gorm.DB, baseLog *logger.Logger) LocationRepo {
	return &locationRepo{
		db:  db,
		log: baseLog.With("repo", "LocationRepo"),
	}
}

func (r *locationRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *locationRepo) Index(dbc dbctx.Context, agentID uuid.UUID) (map[int64]MirrorRow, error) {
	return listIndex[types.Location](dbc, r.tx(dbc), agentID)
}

func (r *locationRepo) Create(dbc dbctx.Context, loc *types.Location) error {
	return r.tx(dbc).WithContext(dbc.Ctx).Create(loc).Error
}

// Replace overwrites every mapped column of an existing row, keeping its id.
func (r *locationRepo) Replace(dbc dbctx.Context, id uuid.UUID, loc *types.Location) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Location{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":           loc.Name,
			"slug":           loc.Slug,
			"description":    loc.Description,
			"address":        loc.Address,
			"city":           loc.City,
			"state":          loc.State,
			"zip":            loc.Zip,
			"price_from":     loc.PriceFrom,
			"url":            loc.URL,
			"attributes":     loc.Attributes,
			"content_hash":   loc.ContentHash,
			"wp_modified_at": loc.WPModifiedAt,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *locationRepo) DeleteMissing(dbc dbctx.Context, agentID uuid.UUID, keepWPIDs []int64) (int64, error) {
	return deleteMissing[types.Location](dbc, r.tx(dbc), agentID, keepWPIDs)
}

func (r *locationRepo) ListByAgent(dbc dbctx.Context, agentID uuid.UUID) ([]*types.Location, error) {
	var out []*types.Location
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("agent_id = ?", agentID).
		Order("wp_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
