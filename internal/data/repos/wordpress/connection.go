package wordpress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type ConnectionRepo interface {
	Upsert(dbc dbctx.Context, conn *types.WordPressConnection) (*types.WordPressConnection, error)
	GetByAgent(dbc dbctx.Context, agentID uuid.UUID) (*types.WordPressConnection, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) (int64, error)
	ListActive(dbc dbctx.Context) ([]*types.WordPressConnection, error)
}

type connectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	return &connectionRepo{
		db:  db,
		log: baseLog.With("repo", "WordPressConnectionRepo"),
	}
}

func (r *connectionRepo) Upsert(dbc dbctx.Context, conn *types.WordPressConnection) (*types.WordPressConnection, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"site_url", "username", "app_password", "community_endpoint", "home_endpoint",
				"field_mapping", "status", "last_error", "updated_at",
			}),
		}).
		Create(conn).Error
	if err != nil {
		return nil, err
	}
	return r.GetByAgent(dbc, conn.AgentID)
}

func (r *connectionRepo) GetByAgent(dbc dbctx.Context, agentID uuid.UUID) (*types.WordPressConnection, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var conn types.WordPressConnection
	if err := transaction.WithContext(dbc.Ctx).
		Where("agent_id = ?", agentID).
		Limit(1).
		Find(&conn).Error; err != nil {
		return nil, err
	}
	if conn.ID == uuid.Nil {
		return nil, nil
	}
	return &conn, nil
}

func (r *connectionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.WordPressConnection{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *connectionRepo) DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).Where("agent_id = ?", agentID).Delete(&types.WordPressConnection{})
	return res.RowsAffected, res.Error
}

func (r *connectionRepo) ListActive(dbc dbctx.Context) ([]*types.WordPressConnection, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.WordPressConnection
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ?", "active").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
