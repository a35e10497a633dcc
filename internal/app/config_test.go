package app

import (
	"testing"
	"time"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "LEAD_MIN_FORM_SECONDS", "LEAD_RATE_LIMIT", "LEAD_RATE_WINDOW_SECONDS", "INGEST_URLS_PER_BATCH", "INGEST_STALL_MINUTES", "TRUSTED_PROXIES"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig(logger.Nop())
	if cfg.Port != "8080" || cfg.URLsPerBatch != 5 || cfg.StallAfter != 5*time.Minute || cfg.BatchBudget != time.Minute {
		t.Fatalf("unexpected ingestion defaults %+v", cfg)
	}
	if cfg.LeadMinFormTime != 3*time.Second || cfg.LeadRateLimit != 5 || cfg.LeadRateWindow != time.Hour {
		t.Fatalf("unexpected lead defaults %+v", cfg)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Fatalf("no proxy should be trusted by default: %v", cfg.TrustedProxies)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LEAD_RATE_LIMIT", "20")
	t.Setenv("INGEST_BATCH_BUDGET_SECONDS", "30")
	t.Setenv("INGEST_STALL_MINUTES", "bogus")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.4")
	cfg := LoadConfig(logger.Nop())
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "192.168.1.4" {
		t.Fatalf("unexpected trusted proxies %v", cfg.TrustedProxies)
	}
	if cfg.LeadRateLimit != 20 || cfg.BatchBudget != 30*time.Second || cfg.StallAfter != 5*time.Minute {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}
