package knowledge

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/knowledge"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
)

func testChunk(agentID uuid.UUID, idx int, vec []float32) *types.KnowledgeChunk {
	return &types.KnowledgeChunk{
		AgentID:    agentID,
		ChunkIndex: idx,
		Content:    "chunk",
		Embedding:  pgvector.NewVector(vec),
		TokenCount: 2,
	}
}

func TestKnowledgeChunkRepoReplaceForSource(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewKnowledgeChunkRepo(db, testutil.Logger(t))

	agent := testutil.SeedAgent(t, ctx, tx, uuid.New())
	src := testutil.SeedSource(t, ctx, tx, agent.ID, knowledge.SourceTypeText, "hello")

	first := []*types.KnowledgeChunk{
		testChunk(agent.ID, 0, []float32{1, 0}),
		testChunk(agent.ID, 1, []float32{0, 1}),
		testChunk(agent.ID, 2, []float32{1, 1}),
	}
	if _, err := repo.ReplaceForSource(dbc, src.ID, first); err != nil {
		t.Fatalf("ReplaceForSource first: %v", err)
	}
	second := []*types.KnowledgeChunk{
		testChunk(agent.ID, 0, []float32{1, 0}),
		testChunk(agent.ID, 1, []float32{0, 1}),
	}
	if _, err := repo.ReplaceForSource(dbc, src.ID, second); err != nil {
		t.Fatalf("ReplaceForSource second: %v", err)
	}
	n, err := repo.CountBySource(dbc, src.ID)
	if err != nil {
		t.Fatalf("CountBySource: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected only the latest 2 chunks, got %d", n)
	}
	rows, err := repo.ListBySource(dbc, src.ID)
	if err != nil {
		t.Fatalf("ListBySource: %v", err)
	}
	if len(rows) != 2 || rows[0].ChunkIndex != 0 || rows[1].ChunkIndex != 1 {
		t.Fatalf("ListBySource: unexpected order %v", rows)
	}
	if got := rows[1].Embedding.Slice(); len(got) != 2 || got[1] != 1 {
		t.Fatalf("embedding round trip: %v", got)
	}
}

func TestKnowledgeChunkRepoSearch(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewKnowledgeChunkRepo(db, testutil.Logger(t))

	agent := testutil.SeedAgent(t, ctx, tx, uuid.New())
	otherAgent := testutil.SeedAgent(t, ctx, tx, uuid.New())
	src := testutil.SeedSource(t, ctx, tx, agent.ID, knowledge.SourceTypeText, "hello")
	otherSrc := testutil.SeedSource(t, ctx, tx, otherAgent.ID, knowledge.SourceTypeText, "hello")

	if _, err := repo.ReplaceForSource(dbc, src.ID, []*types.KnowledgeChunk{
		testChunk(agent.ID, 0, []float32{1, 0}),
		testChunk(agent.ID, 1, []float32{0.9, 0.1}),
		testChunk(agent.ID, 2, []float32{0, 1}),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.ReplaceForSource(dbc, otherSrc.ID, []*types.KnowledgeChunk{
		testChunk(otherAgent.ID, 0, []float32{1, 0}),
	}); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	matches, err := repo.Search(dbc, agent.ID, []float32{1, 0}, 0.7, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Search: expected 2 matches above threshold, got %d", len(matches))
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Fatalf("Search: results not sorted desc: %v", matches)
	}
	if math.Abs(matches[0].Similarity-1) > 1e-6 {
		t.Fatalf("Search: expected exact match first, got %v", matches[0].Similarity)
	}
	for _, m := range matches {
		if m.SourceID != src.ID {
			t.Fatalf("Search: leaked chunk from another agent")
		}
	}

	limited, err := repo.Search(dbc, agent.ID, []float32{1, 0}, 0.7, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("Search limit: err=%v len=%d", err, len(limited))
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal: %v", got)
	}
	if got := CosineSimilarity([]float32{1, 2}, []float32{2, 4}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("parallel: %v", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 2}); got != 0 {
		t.Fatalf("mismatched: %v", got)
	}
}
