package email

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type EmailLogRepo interface {
	Create(dbc dbctx.Context, entry *types.EmailLog) (*types.EmailLog, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	GetByProviderID(dbc dbctx.Context, providerID string) (*types.EmailLog, error)
}

type emailLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmailLogRepo(db *gorm.DB, baseLog *logger.Logger) EmailLogRepo {
	return &emailLogRepo{
		db:  db,
		log: baseLog.With("repo", "EmailLogRepo"),
	}
}

func (r *emailLogRepo) Create(dbc dbctx.Context, entry *types.EmailLog) (*types.EmailLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *emailLogRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.EmailLog{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *emailLogRepo) GetByProviderID(dbc dbctx.Context, providerID string) (*types.EmailLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if providerID == "" {
		return nil, nil
	}
	var entry types.EmailLog
	if err := transaction.WithContext(dbc.Ctx).
		Where("provider_id = ?", providerID).
		Limit(1).
		Find(&entry).Error; err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		return nil, nil
	}
	return &entry, nil
}
