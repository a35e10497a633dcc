package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/leadchat-backend/internal/data/txn"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/knowledge"
	"github.com/yungbote/leadchat-backend/internal/ingestion/embedder"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
)

type staticEmbedder []float32

func (e staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e, nil
}

type knowledgeHarness struct {
	db     *gorm.DB
	svc    KnowledgeService
	chunks repos.KnowledgeChunkRepo
	owner  uuid.UUID
	agent  *types.Agent
}

func newKnowledgeHarness(t *testing.T, emb embedder.Embedder) *knowledgeHarness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	owner := uuid.New()
	h := &knowledgeHarness{
		db:     db,
		chunks: repos.NewKnowledgeChunkRepo(db, log),
		owner:  owner,
		agent:  testutil.SeedAgent(t, context.Background(), db, owner),
	}
	jobs := NewJobService(log, repos.NewJobRunRepo(db, log), repos.NewJobRunEventRepo(db, log), nil)
	h.svc = NewKnowledgeService(
		log,
		txn.NewGormRunner(db),
		repos.NewKnowledgeSourceRepo(db, log),
		h.chunks,
		repos.NewAgentRepo(db, log),
		repos.NewTeamMemberRepo(db, log),
		jobs,
		emb,
	)
	return h
}

func TestCreateSourceQueuesTheRightJob(t *testing.T) {
	h := newKnowledgeHarness(t, nil)
	ctx := asUser(h.owner)

	src, job, err := h.svc.CreateSource(ctx, CreateSourceInput{AgentID: h.agent.ID, Type: "URL", Source: "https://acme.test/faq"})
	if err != nil {
		t.Fatalf("CreateSource url: %v", err)
	}
	if src.Status != knowledge.StatusPending || job.JobType != JobTypeKnowledgeSourceProcess || job.EntityID == nil || *job.EntityID != src.ID {
		t.Fatalf("unexpected url source/job %+v %+v", src, job)
	}

	_, job, err = h.svc.CreateSource(ctx, CreateSourceInput{
		AgentID: h.agent.ID,
		Type:    "sitemap",
		Source:  "https://acme.test/sitemap.xml",
		Sitemap: &types.SitemapOptions{Exclude: []string{"/blog/*"}, MaxPages: 50},
	})
	if err != nil || job.JobType != JobTypeSitemapExpand {
		t.Fatalf("CreateSource sitemap: %+v %v", job, err)
	}

	// A queued job already covers the source.
	again, err := h.svc.ProcessSource(ctx, src.ID)
	if err != nil || again != nil {
		t.Fatalf("expected no duplicate job, got %+v %v", again, err)
	}
}

func TestCreateSourceValidation(t *testing.T) {
	h := newKnowledgeHarness(t, nil)
	cases := map[string]struct {
		ctx    dbctx.Context
		in     CreateSourceInput
		status int
	}{
		"anonymous":     {asUser(uuid.Nil), CreateSourceInput{AgentID: h.agent.ID, Type: "url", Source: "https://x.test"}, http.StatusUnauthorized},
		"bad type":      {asUser(h.owner), CreateSourceInput{AgentID: h.agent.ID, Type: "video", Source: "https://x.test"}, http.StatusBadRequest},
		"text w/o body": {asUser(h.owner), CreateSourceInput{AgentID: h.agent.ID, Type: "text"}, http.StatusBadRequest},
		"bad url":       {asUser(h.owner), CreateSourceInput{AgentID: h.agent.ID, Type: "pdf", Source: "file:///etc/passwd"}, http.StatusBadRequest},
		"stranger":      {asUser(uuid.New()), CreateSourceInput{AgentID: h.agent.ID, Type: "url", Source: "https://x.test"}, http.StatusNotFound},
	}
	for name, tc := range cases {
		if _, _, err := h.svc.CreateSource(tc.ctx, tc.in); status(err) != tc.status {
			t.Fatalf("%s: expected %d, got %v", name, tc.status, err)
		}
	}
}

func TestBatchStatusReportsLiveCounts(t *testing.T) {
	h := newKnowledgeHarness(t, nil)
	bg := context.Background()
	parent := testutil.SeedSource(t, bg, h.db, h.agent.ID, knowledge.SourceTypeSitemap, "https://acme.test/sitemap.xml")
	batchID := uuid.New()
	if err := h.db.Model(parent).Updates(map[string]any{"status": knowledge.StatusProcessing, "batch_id": batchID}).Error; err != nil {
		t.Fatalf("mark parent processing: %v", err)
	}
	done := testutil.SeedChild(t, bg, h.db, parent, batchID, "https://acme.test/a")
	testutil.SeedChild(t, bg, h.db, parent, batchID, "https://acme.test/b")
	testutil.SeedChild(t, bg, h.db, parent, batchID, "https://acme.test/c")
	if err := h.db.Model(done).Update("status", knowledge.StatusReady).Error; err != nil {
		t.Fatalf("mark child ready: %v", err)
	}

	st, err := h.svc.BatchStatus(asUser(h.owner), parent.ID)
	if err != nil {
		t.Fatalf("BatchStatus: %v", err)
	}
	if st.Status != knowledge.StatusProcessing || st.Progress.Total != 3 || st.Progress.Processed != 1 || st.Progress.Pending != 2 {
		t.Fatalf("unexpected status %+v", st)
	}
	if _, err := h.svc.BatchStatus(asUser(uuid.New()), parent.ID); status(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for stranger, got %v", err)
	}
	if _, err := h.svc.ProcessSource(asUser(h.owner), done.ID); status(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for sitemap child, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	h := newKnowledgeHarness(t, staticEmbedder{1, 0, 0})
	bg := context.Background()
	src := testutil.SeedSource(t, bg, h.db, h.agent.ID, knowledge.SourceTypeText, "Office hours are 9 to 5.")
	_, err := h.chunks.ReplaceForSource(dbctx.Of(bg), src.ID, []*types.KnowledgeChunk{
		{SourceID: src.ID, AgentID: h.agent.ID, ChunkIndex: 0, Content: "Office hours are 9 to 5.", Embedding: pgvector.NewVector([]float32{1, 0, 0})},
		{SourceID: src.ID, AgentID: h.agent.ID, ChunkIndex: 1, Content: "Unrelated.", Embedding: pgvector.NewVector([]float32{0, 1, 0})},
	})
	if err != nil {
		t.Fatalf("seed chunks: %v", err)
	}

	matches, err := h.svc.Search(bg, SearchInput{AgentID: h.agent.ID, Query: "when are you open?"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Content != "Office hours are 9 to 5." {
		t.Fatalf("unexpected matches %+v", matches)
	}

	bad := 2.0
	if _, err := h.svc.Search(bg, SearchInput{AgentID: h.agent.ID, Query: "x", MatchThreshold: &bad}); status(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for threshold, got %v", err)
	}
	if _, err := h.svc.Search(bg, SearchInput{AgentID: uuid.New(), Query: "x"}); status(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown agent, got %v", err)
	}
	noEmb := newKnowledgeHarness(t, nil)
	if _, err := noEmb.svc.Search(bg, SearchInput{AgentID: noEmb.agent.ID, Query: "x"}); !IsNotConfigured(err) {
		t.Fatalf("expected feature_not_configured, got %v", err)
	}
}
