package app

import (
	"time"

	"github.com/yungbote/leadchat-backend/internal/pkg/envutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type Config struct {
	Port        string
	LogMode     string
	ServiceName string
	AppBaseURL  string

	JWTSecret string
	// TrustedProxies are the load balancer addresses allowed to set
	// X-Forwarded-For. The lead-form rate limit keys on the resulting IP.
	TrustedProxies []string

	EmbeddingDimensions int
	WebhookSecret       string
	WebhookTolerance    time.Duration

	WorkerConcurrency int

	// Ingestion
	URLsPerBatch    int
	BatchBudget     time.Duration
	StallAfter      time.Duration
	BatchWaitDelay  time.Duration
	SitemapMaxPages int

	// Lead form
	LeadMinFormTime time.Duration
	LeadRateLimit   int
	LeadRateWindow  time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "leadchat-backend"),
		AppBaseURL:  envutil.String("APP_BASE_URL", "http://localhost:5173"),

		JWTSecret:      envutil.String("AUTH_JWT_SECRET", ""),
		TrustedProxies: envutil.CSV("TRUSTED_PROXIES"),

		EmbeddingDimensions: envutil.Int("EMBEDDING_DIMENSIONS", 0),
		WebhookSecret:       envutil.String("RESEND_WEBHOOK_SECRET", ""),
		WebhookTolerance:    envutil.Seconds("RESEND_WEBHOOK_TOLERANCE_SECONDS", 5*time.Minute),

		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 4),

		URLsPerBatch:    envutil.Int("INGEST_URLS_PER_BATCH", 5),
		BatchBudget:     envutil.Seconds("INGEST_BATCH_BUDGET_SECONDS", 60*time.Second),
		StallAfter:      time.Duration(envutil.Int("INGEST_STALL_MINUTES", 5)) * time.Minute,
		BatchWaitDelay:  envutil.Seconds("INGEST_BATCH_WAIT_SECONDS", 15*time.Second),
		SitemapMaxPages: envutil.Int("SITEMAP_MAX_PAGES", 200),

		LeadMinFormTime: envutil.Seconds("LEAD_MIN_FORM_SECONDS", 3*time.Second),
		LeadRateLimit:   envutil.Int("LEAD_RATE_LIMIT", 5),
		LeadRateWindow:  envutil.Seconds("LEAD_RATE_WINDOW_SECONDS", time.Hour),
	}
	if cfg.JWTSecret == "" {
		log.Warn("AUTH_JWT_SECRET not set; authenticated functions will reject every token")
	}
	return cfg
}
