package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type Repos struct {
	KnowledgeSource repos.KnowledgeSourceRepo
	KnowledgeChunk  repos.KnowledgeChunkRepo

	Agent        repos.AgentRepo
	Lead         repos.LeadRepo
	Conversation repos.ConversationRepo

	Invitation repos.InvitationRepo
	TeamMember repos.TeamMemberRepo

	EmailLog   repos.EmailLogRepo
	EmailEvent repos.EmailEventRepo

	WordPressConnection repos.WordPressConnectionRepo
	Location            repos.LocationRepo
	Property            repos.PropertyRepo

	PushSubscription    repos.PushSubscriptionRepo
	BillingSubscription repos.BillingSubscriptionRepo

	JobRun      repos.JobRunRepo
	JobRunEvent repos.JobRunEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		KnowledgeSource: repos.NewKnowledgeSourceRepo(db, log),
		KnowledgeChunk:  repos.NewKnowledgeChunkRepo(db, log),

		Agent:        repos.NewAgentRepo(db, log),
		Lead:         repos.NewLeadRepo(db, log),
		Conversation: repos.NewConversationRepo(db, log),

		Invitation: repos.NewInvitationRepo(db, log),
		TeamMember: repos.NewTeamMemberRepo(db, log),

		EmailLog:   repos.NewEmailLogRepo(db, log),
		EmailEvent: repos.NewEmailEventRepo(db, log),

		WordPressConnection: repos.NewWordPressConnectionRepo(db, log),
		Location:            repos.NewLocationRepo(db, log),
		Property:            repos.NewPropertyRepo(db, log),

		PushSubscription:    repos.NewPushSubscriptionRepo(db, log),
		BillingSubscription: repos.NewBillingSubscriptionRepo(db, log),

		JobRun:      repos.NewJobRunRepo(db, log),
		JobRunEvent: repos.NewJobRunEventRepo(db, log),
	}
}
