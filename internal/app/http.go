package app

import (
	"github.com/yungbote/leadchat-backend/internal/http"
	httpH "github.com/yungbote/leadchat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/leadchat-backend/internal/http/middleware"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health    *httpH.HealthHandler
	Knowledge *httpH.KnowledgeHandler
	Lead      *httpH.LeadHandler
	Team      *httpH.TeamHandler
	Email     *httpH.EmailHandler
	WordPress *httpH.WordPressHandler
	Push      *httpH.PushHandler
	Billing   *httpH.BillingHandler
	Job       *httpH.JobHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(),
		Knowledge: httpH.NewKnowledgeHandler(log, services.Knowledge),
		Lead:      httpH.NewLeadHandler(services.Leads),
		Team:      httpH.NewTeamHandler(services.Team),
		Email:     httpH.NewEmailHandler(log, services.Email),
		WordPress: httpH.NewWordPressHandler(log, services.WordPress),
		Push:      httpH.NewPushHandler(services.Push),
		Billing:   httpH.NewBillingHandler(services.Billing),
		Job:       httpH.NewJobHandler(services.Jobs),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecret),
	}
}

func wireServer(log *logger.Logger, cfg Config, tracing bool, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:              log,
		ServiceName:      cfg.ServiceName,
		Tracing:          tracing,
		TrustedProxies:   cfg.TrustedProxies,
		AuthMiddleware:   middleware.Auth,
		HealthHandler:    handlers.Health,
		KnowledgeHandler: handlers.Knowledge,
		LeadHandler:      handlers.Lead,
		TeamHandler:      handlers.Team,
		EmailHandler:     handlers.Email,
		WordPressHandler: handlers.WordPress,
		PushHandler:      handlers.Push,
		BillingHandler:   handlers.Billing,
		JobHandler:       handlers.Job,
	})
}
