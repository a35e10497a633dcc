package domain

import (
	"github.com/yungbote/leadchat-backend/internal/domain/billing"
	"github.com/yungbote/leadchat-backend/internal/domain/email"
	"github.com/yungbote/leadchat-backend/internal/domain/jobs"
	"github.com/yungbote/leadchat-backend/internal/domain/knowledge"
	"github.com/yungbote/leadchat-backend/internal/domain/leads"
	"github.com/yungbote/leadchat-backend/internal/domain/push"
	"github.com/yungbote/leadchat-backend/internal/domain/team"
	"github.com/yungbote/leadchat-backend/internal/domain/wordpress"
)

type KnowledgeSource = knowledge.KnowledgeSource
type KnowledgeChunk = knowledge.KnowledgeChunk
type ChunkMatch = knowledge.ChunkMatch
type SourceMetadata = knowledge.SourceMetadata
type SitemapOptions = knowledge.SitemapOptions
type BatchProgress = knowledge.BatchProgress

type Agent = leads.Agent
type Lead = leads.Lead
type LeadMetadata = leads.LeadMetadata
type Device = leads.Device
type Geo = leads.Geo
type JourneyStep = leads.JourneyStep
type Conversation = leads.Conversation

type Invitation = team.Invitation
type TeamMember = team.TeamMember

type EmailLog = email.EmailLog
type EmailEvent = email.EmailEvent

type WordPressConnection = wordpress.Connection
type WordPressFieldMapping = wordpress.FieldMapping
type Location = wordpress.Location
type Property = wordpress.Property

type PushSubscription = push.PushSubscription

type BillingSubscription = billing.BillingSubscription

type JobRun = jobs.JobRun
type JobRunEvent = jobs.JobRunEvent

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		&Agent{},
		&KnowledgeSource{},
		&KnowledgeChunk{},
		&Lead{},
		&Conversation{},
		&Invitation{},
		&TeamMember{},
		&EmailLog{},
		&EmailEvent{},
		&WordPressConnection{},
		&Location{},
		&Property{},
		&PushSubscription{},
		&BillingSubscription{},
		&JobRun{},
		&JobRunEvent{},
	}
}
