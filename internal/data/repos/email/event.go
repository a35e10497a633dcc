package email

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type EmailEventRepo interface {
	// Append stores the event once per webhook message id. It reports false
	// for redeliveries.
	Append(dbc dbctx.Context, ev *types.EmailEvent) (bool, error)
}

type emailEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEmailEventRepo(db *gorm.DB, baseLog *logger.Logger) EmailEventRepo {
	return &emailEventRepo{
		db:  db,
		log: baseLog.With("repo", "EmailEventRepo"),
	}
}

func (r *emailEventRepo) Append(dbc dbctx.Context, ev *types.EmailEvent) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
