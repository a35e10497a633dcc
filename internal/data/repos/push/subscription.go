package push

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type PushSubscriptionRepo interface {
	Upsert(dbc dbctx.Context, sub *types.PushSubscription) (*types.PushSubscription, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.PushSubscription, error)
	DeleteByEndpoint(dbc dbctx.Context, userID uuid.UUID, endpoint string) (int64, error)
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error)
	TouchLastUsed(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error
}

type pushSubscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPushSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) PushSubscriptionRepo {
	return &pushSubscriptionRepo{
		db:  db,
		log: baseLog.With("repo", "PushSubscriptionRepo"),
	}
}

// Upsert keys on the endpoint: a browser re-subscribing moves the row to the
// current user and refreshes its keys.
func (r *pushSubscriptionRepo) Upsert(dbc dbctx.Context, sub *types.PushSubscription) (*types.PushSubscription, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "user_agent", "updated_at"}),
		}).
		Create(sub).Error
	if err != nil {
		return nil, err
	}
	var out types.PushSubscription
	if err := transaction.WithContext(dbc.Ctx).Where("endpoint = ?", sub.Endpoint).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *pushSubscriptionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.PushSubscription, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PushSubscription
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pushSubscriptionRepo) DeleteByEndpoint(dbc dbctx.Context, userID uuid.UUID, endpoint string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&types.PushSubscription{})
	return res.RowsAffected, res.Error
}

func (r *pushSubscriptionRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).Where("id IN ?", ids).Delete(&types.PushSubscription{})
	return res.RowsAffected, res.Error
}

func (r *pushSubscriptionRepo) TouchLastUsed(dbc dbctx.Context, ids []uuid.UUID, at time.Time) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.PushSubscription{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"last_used_at": at, "updated_at": at}).Error
}
