package team

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/team"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type InvitationRepo interface {
	Create(dbc dbctx.Context, inv *types.Invitation) (*types.Invitation, error)
	GetByTokenHash(dbc dbctx.Context, tokenHash string) (*types.Invitation, error)
	RevokePending(dbc dbctx.Context, accountOwnerID uuid.UUID, email string) (int64, error)
	MarkAccepted(dbc dbctx.Context, id uuid.UUID, userID uuid.UUID, at time.Time) (bool, error)
	MarkExpired(dbc dbctx.Context, id uuid.UUID) error
}

type invitationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInvitationRepo(db *gorm.DB, baseLog *logger.Logger) InvitationRepo {
	return &invitationRepo{
		db:  db,
		log: baseLog.With("repo", "InvitationRepo"),
	}
}

func (r *invitationRepo) Create(dbc dbctx.Context, inv *types.Invitation) (*types.Invitation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(inv).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invitationRepo) GetByTokenHash(dbc dbctx.Context, tokenHash string) (*types.Invitation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if tokenHash == "" {
		return nil, nil
	}
	var inv types.Invitation
	if err := transaction.WithContext(dbc.Ctx).
		Where("token_hash = ?", tokenHash).
		Limit(1).
		Find(&inv).Error; err != nil {
		return nil, err
	}
	if inv.ID == uuid.Nil {
		return nil, nil
	}
	return &inv, nil
}

// RevokePending revokes earlier outstanding invitations to the same address
// so only the newest link works.
func (r *invitationRepo) RevokePending(dbc dbctx.Context, accountOwnerID uuid.UUID, email string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Invitation{}).
		Where("account_owner_id = ? AND email = ? AND status = ?", accountOwnerID, email, team.InvitationPending).
		Updates(map[string]interface{}{
			"status":     team.InvitationRevoked,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// MarkAccepted flips a pending invitation to accepted. It reports false when
// the row was no longer pending.
func (r *invitationRepo) MarkAccepted(dbc dbctx.Context, id uuid.UUID, userID uuid.UUID, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Invitation{}).
		Where("id = ? AND status = ?", id, team.InvitationPending).
		Updates(map[string]interface{}{
			"status":         team.InvitationAccepted,
			"accepted_at":    at,
			"accepted_by_id": userID,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *invitationRepo) MarkExpired(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Invitation{}).
		Where("id = ? AND status = ?", id, team.InvitationPending).
		Updates(map[string]interface{}{
			"status":     team.InvitationExpired,
			"updated_at": time.Now().UTC(),
		}).Error
}
