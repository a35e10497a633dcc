package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/leadchat-backend/internal/data/txn"
	"github.com/yungbote/leadchat-backend/internal/jobs/runtime"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/pkg/ratelimit"
	"github.com/yungbote/leadchat-backend/internal/platform/redis"
	"github.com/yungbote/leadchat-backend/internal/services"
	"github.com/yungbote/leadchat-backend/internal/services/emailtpl"
)

type Services struct {
	Notifier  runtime.Notifier
	Jobs      services.JobService
	Knowledge services.KnowledgeService
	Email     services.EmailService
	Push      services.PushService
	Leads     services.LeadService
	Team      services.TeamService
	WordPress services.WordPressService
	Billing   services.BillingService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")
	runner := txn.NewGormRunner(db)

	var bus services.EventPublisher
	if c.Redis != nil {
		bus = redis.NewJobBus(log, c.Redis, c.RedisPrefix)
	}
	notifier := services.NewJobNotifier(log, r.JobRunEvent, bus)
	jobs := services.NewJobService(log, r.JobRun, r.JobRunEvent, notifier)

	tpl, err := emailtpl.New()
	if err != nil {
		return Services{}, fmt.Errorf("load email templates: %w", err)
	}
	email := services.NewEmailService(log, r.EmailLog, r.EmailEvent, c.Resend, c.Verifier, tpl)
	push := services.NewPushService(log, r.PushSubscription, c.WebPush)

	leads := services.NewLeadService(
		log,
		runner,
		r.Agent,
		r.Lead,
		r.Conversation,
		leadLimiter(c, cfg),
		email,
		push,
		services.LeadFormConfig{
			MinFormTime:   cfg.LeadMinFormTime,
			DashboardURL:  cfg.AppBaseURL,
			NotifyTimeout: 10 * time.Second,
		},
	)

	return Services{
		Notifier:  notifier,
		Jobs:      jobs,
		Knowledge: services.NewKnowledgeService(log, runner, r.KnowledgeSource, r.KnowledgeChunk, r.Agent, r.TeamMember, jobs, c.Embedder),
		Email:     email,
		Push:      push,
		Leads:     leads,
		Team:      services.NewTeamService(log, runner, r.Invitation, r.TeamMember, email, cfg.AppBaseURL),
		WordPress: services.NewWordPressService(log, runner, c.WordPress, r.WordPressConnection, r.Location, r.Property, r.Agent, r.TeamMember),
		Billing:   services.NewBillingService(log, c.Stripe, r.BillingSubscription),
	}, nil
}

// leadLimiter shares the per-IP budget through redis when it is available.
func leadLimiter(c Clients, cfg Config) ratelimit.Limiter {
	if c.Redis != nil {
		counter := redis.NewWindowCounter(c.Redis, c.RedisPrefix)
		return ratelimit.NewShared(counter, "lead_form", cfg.LeadRateLimit, cfg.LeadRateWindow)
	}
	return ratelimit.NewMemory(cfg.LeadRateLimit, cfg.LeadRateWindow)
}
