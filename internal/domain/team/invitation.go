package team

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
	InvitationExpired  = "expired"
)

// Invitation is a pending grant of team membership. Only the sha256 of the
// emailed token is stored.
type Invitation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountOwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"account_owner_id"`
	InvitedByID    uuid.UUID `gorm:"type:uuid;not null" json:"invited_by_id"`

	Email     string `gorm:"column:email;not null;index" json:"email"`
	Role      string `gorm:"column:role;not null" json:"role"`
	TokenHash string `gorm:"column:token_hash;not null;uniqueIndex" json:"-"`
	Status    string `gorm:"column:status;not null;index;default:'pending'" json:"status"`

	ExpiresAt    time.Time  `gorm:"column:expires_at;not null;index" json:"expires_at"`
	AcceptedAt   *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	AcceptedByID *uuid.UUID `gorm:"type:uuid;column:accepted_by_id" json:"accepted_by_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Invitation) TableName() string { return "team_invitation" }

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = InvitationPending
	}
	return nil
}

func (i *Invitation) Expired(now time.Time) bool {
	return i != nil && !now.Before(i.ExpiresAt)
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}
