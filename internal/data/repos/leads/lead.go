package leads

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type LeadRepo interface {
	Create(dbc dbctx.Context, lead *types.Lead) (*types.Lead, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lead, error)
	CountByAgent(dbc dbctx.Context, agentID uuid.UUID) (int64, error)
}

type leadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo {
	return &leadRepo{
		db:  db,
		log: baseLog.With("repo", "LeadRepo"),
	}
}

func (r *leadRepo) Create(dbc dbctx.Context, lead *types.Lead) (*types.Lead, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(lead).Error; err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *leadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Lead, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var lead types.Lead
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&lead).Error; err != nil {
		return nil, err
	}
	if lead.ID == uuid.Nil {
		return nil, nil
	}
	return &lead, nil
}

func (r *leadRepo) CountByAgent(dbc dbctx.Context, agentID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	err := transaction.WithContext(dbc.Ctx).Model(&types.Lead{}).Where("agent_id = ?", agentID).Count(&n).Error
	return n, err
}
