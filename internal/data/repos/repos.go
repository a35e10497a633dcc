package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/leadchat-backend/internal/data/repos/billing"
	"github.com/yungbote/leadchat-backend/internal/data/repos/email"
	"github.com/yungbote/leadchat-backend/internal/data/repos/jobs"
	"github.com/yungbote/leadchat-backend/internal/data/repos/knowledge"
	"github.com/yungbote/leadchat-backend/internal/data/repos/leads"
	"github.com/yungbote/leadchat-backend/internal/data/repos/push"
	"github.com/yungbote/leadchat-backend/internal/data/repos/team"
	"github.com/yungbote/leadchat-backend/internal/data/repos/wordpress"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type KnowledgeSourceRepo = knowledge.KnowledgeSourceRepo
type KnowledgeChunkRepo = knowledge.KnowledgeChunkRepo

type AgentRepo = leads.AgentRepo
type LeadRepo = leads.LeadRepo
type ConversationRepo = leads.ConversationRepo

type InvitationRepo = team.InvitationRepo
type TeamMemberRepo = team.TeamMemberRepo

type EmailLogRepo = email.EmailLogRepo
type EmailEventRepo = email.EmailEventRepo

type WordPressConnectionRepo = wordpress.ConnectionRepo
type LocationRepo = wordpress.LocationRepo
type PropertyRepo = wordpress.PropertyRepo
type MirrorRow = wordpress.MirrorRow

type PushSubscriptionRepo = push.PushSubscriptionRepo

type BillingSubscriptionRepo = billing.BillingSubscriptionRepo

type JobRunRepo = jobs.JobRunRepo
type JobRunEventRepo = jobs.JobRunEventRepo

func NewKnowledgeSourceRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeSourceRepo {
	return knowledge.NewKnowledgeSourceRepo(db, baseLog)
}
func NewKnowledgeChunkRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeChunkRepo {
	return knowledge.NewKnowledgeChunkRepo(db, baseLog)
}

func NewAgentRepo(db *gorm.DB, baseLog *logger.Logger) AgentRepo { return leads.NewAgentRepo(db, baseLog) }
func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo   { return leads.NewLeadRepo(db, baseLog) }
func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return leads.NewConversationRepo(db, baseLog)
}

func NewInvitationRepo(db *gorm.DB, baseLog *logger.Logger) InvitationRepo {
	return team.NewInvitationRepo(db, baseLog)
}
func NewTeamMemberRepo(db *gorm.DB, baseLog *logger.Logger) TeamMemberRepo {
	return team.NewTeamMemberRepo(db, baseLog)
}

func NewEmailLogRepo(db *gorm.DB, baseLog *logger.Logger) EmailLogRepo {
	return email.NewEmailLogRepo(db, baseLog)
}
func NewEmailEventRepo(db *gorm.DB, baseLog *logger.Logger) EmailEventRepo {
	return email.NewEmailEventRepo(db, baseLog)
}

func NewWordPressConnectionRepo(db *gorm.DB, baseLog *logger.Logger) WordPressConnectionRepo {
	return wordpress.NewConnectionRepo(db, baseLog)
}
func NewLocationRepo(db *gorm.DB, baseLog *logger.Logger) LocationRepo {
	return wordpress.NewLocationRepo(db, baseLog)
}
func NewPropertyRepo(db *gorm.DB, baseLog *logger.Logger) PropertyRepo {
	return wordpress.NewPropertyRepo(db, baseLog)
}

func NewPushSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) PushSubscriptionRepo {
	return push.NewPushSubscriptionRepo(db, baseLog)
}

func NewBillingSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) BillingSubscriptionRepo {
	return billing.NewBillingSubscriptionRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
func NewJobRunEventRepo(db *gorm.DB, baseLog *logger.Logger) JobRunEventRepo {
	return jobs.NewJobRunEventRepo(db, baseLog)
}
