package leads

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type AgentRepo interface {
	Create(dbc dbctx.Context, agent *types.Agent) (*types.Agent, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Agent, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.Agent, error)
}

type agentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepo(db *gorm.DB, baseLog *logger.Logger) AgentRepo {
	return &agentRepo{
		db:  db,
		log: baseLog.With("repo", "AgentRepo"),
	}
}

func (r *agentRepo) Create(dbc dbctx.Context, agent *types.Agent) (*types.Agent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(agent).Error; err != nil {
		return nil, err
	}
	return agent, nil
}

func (r *agentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Agent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var agent types.Agent
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&agent).Error; err != nil {
		return nil, err
	}
	if agent.ID == uuid.Nil {
		return nil, nil
	}
	return &agent, nil
}

func (r *agentRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.Agent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Agent
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
