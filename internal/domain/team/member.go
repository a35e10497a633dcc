package team

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeamMember struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_team_member_owner_member,priority:1" json:"owner_user_id"`
	MemberUserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_team_member_owner_member,priority:2;index" json:"member_user_id"`
	Role         string    `gorm:"column:role;not null" json:"role"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (TeamMember) TableName() string { return "team_member" }

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
