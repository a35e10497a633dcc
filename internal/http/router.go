package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/leadchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/leadchat-backend/internal/http/middleware"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	Tracing        bool
	AuthMiddleware *httpMW.AuthMiddleware
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are believed. Empty means the peer address is the client IP.
	TrustedProxies []string

	KnowledgeHandler *httpH.KnowledgeHandler
	LeadHandler      *httpH.LeadHandler
	TeamHandler      *httpH.TeamHandler
	EmailHandler     *httpH.EmailHandler
	WordPressHandler *httpH.WordPressHandler
	PushHandler      *httpH.PushHandler
	BillingHandler   *httpH.BillingHandler
	JobHandler       *httpH.JobHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies; trusting none", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(httpMW.Recovery(log))
	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	fn := r.Group("/functions/v1")
	if cfg.AuthMiddleware != nil {
		fn.Use(cfg.AuthMiddleware.Attach())
	}
	{
		// Knowledge
		if cfg.KnowledgeHandler != nil {
			fn.POST("/create-knowledge-source", cfg.KnowledgeHandler.CreateSource)
			fn.POST("/process-knowledge-source", cfg.KnowledgeHandler.ProcessSource)
			fn.GET("/knowledge-batch-status", cfg.KnowledgeHandler.BatchStatus)
			fn.POST("/search-knowledge", cfg.KnowledgeHandler.Search)
		}

		// Leads
		if cfg.LeadHandler != nil {
			fn.POST("/submit-lead-form", cfg.LeadHandler.Submit)
		}

		// Team
		if cfg.TeamHandler != nil {
			fn.POST("/send-team-invitation", cfg.TeamHandler.SendInvitation)
			fn.POST("/accept-team-invitation", cfg.TeamHandler.AcceptInvitation)
		}

		// Email
		if cfg.EmailHandler != nil {
			fn.POST("/send-email", cfg.EmailHandler.Send)
			fn.POST("/resend-webhook", cfg.EmailHandler.Webhook)
		}

		// WordPress
		if cfg.WordPressHandler != nil {
			fn.POST("/wordpress-sync", cfg.WordPressHandler.Handle)
		}

		// Push
		if cfg.PushHandler != nil {
			fn.POST("/push-subscribe", cfg.PushHandler.Subscribe)
			fn.POST("/push-unsubscribe", cfg.PushHandler.Unsubscribe)
			fn.POST("/send-push-notification", cfg.PushHandler.Send)
		}

		// Billing
		if cfg.BillingHandler != nil {
			fn.POST("/admin-sync-billing", cfg.BillingHandler.AdminSync)
		}

		// Job
		if cfg.JobHandler != nil {
			fn.GET("/jobs/:id", cfg.JobHandler.GetJob)
			fn.GET("/jobs/:id/events", cfg.JobHandler.ListEvents)
		}
	}

	return r
}
