package team

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type TeamMemberRepo interface {
	Upsert(dbc dbctx.Context, member *types.TeamMember) error
	Get(dbc dbctx.Context, ownerUserID, memberUserID uuid.UUID) (*types.TeamMember, error)
	ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.TeamMember, error)
}

type teamMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTeamMemberRepo(db *gorm.DB, baseLog *logger.Logger) TeamMemberRepo {
	return &teamMemberRepo{
		db:  db,
		log: baseLog.With("repo", "TeamMemberRepo"),
	}
}

// Upsert inserts the membership or updates the role of an existing one.
func (r *teamMemberRepo) Upsert(dbc dbctx.Context, member *types.TeamMember) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_user_id"}, {Name: "member_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).
		Create(member).Error
}

func (r *teamMemberRepo) Get(dbc dbctx.Context, ownerUserID, memberUserID uuid.UUID) (*types.TeamMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var m types.TeamMember
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ? AND member_user_id = ?", ownerUserID, memberUserID).
		Limit(1).
		Find(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == uuid.Nil {
		return nil, nil
	}
	return &m, nil
}

func (r *teamMemberRepo) ListByOwner(dbc dbctx.Context, ownerUserID uuid.UUID) ([]*types.TeamMember, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TeamMember
	if err := transaction.WithContext(dbc.Ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
