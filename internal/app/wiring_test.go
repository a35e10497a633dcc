package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/leadchat-backend/internal/services"
)

func TestWiringWithoutOptionalClients(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	cfg := LoadConfig(log)

	reposet := wireRepos(db, log)
	svc, err := wireServices(db, log, cfg, reposet, Clients{})
	if err != nil {
		t.Fatalf("wireServices: %v", err)
	}
	jobs, err := wireJobs(db, log, cfg, reposet, Clients{}, svc)
	if err != nil {
		t.Fatalf("wireJobs: %v", err)
	}
	want := []string{
		services.JobTypeBillingSync,
		services.JobTypeOrphanCleanup,
		services.JobTypeKnowledgeSourceProcess,
		services.JobTypeSitemapBatch,
		services.JobTypeSitemapExpand,
		services.JobTypeWordPressSync,
	}
	got := jobs.Registry.Types()
	if len(got) != len(want) {
		t.Fatalf("registered %v", got)
	}
	for _, jt := range want {
		if _, ok := jobs.Registry.Get(jt); !ok {
			t.Fatalf("missing handler for %s", jt)
		}
	}

	server := wireServer(log, cfg, false, wireHandlers(log, svc), wireMiddleware(log, cfg))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/admin-sync-billing", nil)
	server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous billing sync, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/functions/v1/submit-lead-form", strings.NewReader(`{"agentId":"x","website":"bot.example"}`))
	req.Header.Set("Content-Type", "application/json")
	server.Engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "bot-blocked") {
		t.Fatalf("expected honeypot block, got %d %s", rec.Code, rec.Body.String())
	}
}
