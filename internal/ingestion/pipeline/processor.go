package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/txn"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/knowledge"
	"github.com/yungbote/leadchat-backend/internal/ingestion/chunker"
	"github.com/yungbote/leadchat-backend/internal/ingestion/embedder"
	"github.com/yungbote/leadchat-backend/internal/ingestion/extractor"
	"github.com/yungbote/leadchat-backend/internal/ingestion/fetch"
	"github.com/yungbote/leadchat-backend/internal/ingestion/sitemap"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/leadchat-backend/internal/pkg/errors"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

var (
	errNoText     = errors.New("no extractable text")
	errNoEmbedder = errors.New("embeddings are not configured")
)

type Config struct {
	URLsPerBatch    int
	BatchBudget     time.Duration
	StallAfter      time.Duration
	Concurrency     int
	Stagger         time.Duration
	SitemapMaxPages int
	MaxTokens       int
	OverlapTokens   int
}

func (c Config) withDefaults() Config {
	if c.URLsPerBatch <= 0 {
		c.URLsPerBatch = 5
	}
	if c.BatchBudget <= 0 {
		c.BatchBudget = 60 * time.Second
	}
	if c.StallAfter <= 0 {
		c.StallAfter = 5 * time.Minute
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.Stagger < 0 {
		c.Stagger = 0
	}
	if c.SitemapMaxPages <= 0 {
		c.SitemapMaxPages = sitemap.DefaultMaxPages
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = chunker.DefaultMaxTokens
	}
	if c.OverlapTokens <= 0 {
		c.OverlapTokens = chunker.DefaultOverlapTokens
	}
	return c
}

type Deps struct {
	Runner  txn.Runner
	Sources repos.KnowledgeSourceRepo
	Chunks  repos.KnowledgeChunkRepo
	Fetcher fetch.Fetcher
	Walker  *sitemap.Walker
	Batcher *embedder.Batcher
}

// Processor turns knowledge sources into embedded chunks.
type Processor struct {
	log  *logger.Logger
	deps Deps
	cfg  Config
}

func New(baseLog *logger.Logger, deps Deps, cfg Config) *Processor {
	return &Processor{
		log:  baseLog.With("service", "KnowledgeProcessor"),
		deps: deps,
		cfg:  cfg.withDefaults(),
	}
}

type Result struct {
	SourceID   uuid.UUID  `json:"source_id"`
	ChunkCount int        `json:"chunk_count"`
	Skipped    int        `json:"skipped"`
	BatchID    *uuid.UUID `json:"batch_id,omitempty"`
	Children   int        `json:"children,omitempty"`
}

// ProcessSource ingests one source. Sitemap sources are expanded into
// children instead; the caller schedules their batch.
func (p *Processor) ProcessSource(ctx context.Context, sourceID uuid.UUID) (*Result, error) {
	src, err := p.deps.Sources.GetByID(dbctx.Of(ctx), sourceID)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	if src == nil {
		return nil, fmt.Errorf("knowledge source %s: %w", sourceID, pkgerrors.ErrNotFound)
	}
	if src.Type == knowledge.SourceTypeSitemap {
		exp, err := p.ExpandSitemap(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		return &Result{SourceID: sourceID, BatchID: &exp.BatchID, Children: exp.Children}, nil
	}

	log := p.log.With("source_id", src.ID, "type", src.Type)
	meta := src.Meta()
	meta.Error = ""
	if err := p.deps.Sources.SetStatus(dbctx.Of(ctx), src.ID, knowledge.StatusProcessing, meta); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	res, err := p.ingest(ctx, src, &meta)
	if err != nil && ctx.Err() != nil {
		log.Info("Source processing interrupted; returning to pending", "error", err)
		return nil, p.interrupt(ctx, src.ID)
	}
	if err != nil {
		log.Warn("Source processing failed", "error", err)
		p.fail(ctx, src.ID, meta, err)
		return nil, err
	}
	log.Info("Source ready", "chunks", res.ChunkCount, "skipped", res.Skipped)
	return res, nil
}

func (p *Processor) ingest(ctx context.Context, src *types.KnowledgeSource, meta *types.SourceMetadata) (*Result, error) {
	updates := map[string]interface{}{}
	var text string
	switch src.Type {
	case knowledge.SourceTypeText:
		text = src.Content
	case knowledge.SourceTypeURL, knowledge.SourceTypePDF:
		doc, err := p.deps.Fetcher.Fetch(ctx, src.Source)
		if err != nil {
			return nil, err
		}
		text = doc.Text
		meta.ContentType = doc.ContentType
		if src.Type == knowledge.SourceTypePDF {
			meta.PageCount = doc.PageCount
		}
		if src.Title == "" && doc.Title != "" {
			updates["title"] = doc.Title
		}
	default:
		return nil, fmt.Errorf("unsupported source type %q", src.Type)
	}

	text = extractor.NormalizeText(text)
	if text == "" {
		return nil, errNoText
	}
	if src.Type != knowledge.SourceTypeText {
		updates["content"] = text
	}

	pieces := chunker.Split(text, chunker.Options{MaxTokens: p.cfg.MaxTokens, OverlapTokens: p.cfg.OverlapTokens})
	texts := make([]string, len(pieces))
	for i, c := range pieces {
		texts[i] = c.Content
	}
	if p.deps.Batcher == nil {
		return nil, errNoEmbedder
	}
	vectors, err := p.deps.Batcher.EmbedAll(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	rows := make([]*types.KnowledgeChunk, 0, len(pieces))
	for i, c := range pieces {
		if vectors[i] == nil {
			continue
		}
		rows = append(rows, &types.KnowledgeChunk{
			SourceID:   src.ID,
			AgentID:    src.AgentID,
			ChunkIndex: c.Index,
			Content:    c.Content,
			Embedding:  pgvector.NewVector(vectors[i]),
			TokenCount: c.TokenCount,
		})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("embedding failed for all %d chunks", len(pieces))
	}

	now := time.Now().UTC()
	meta.ChunkCount = len(rows)
	meta.ProcessedAt = &now
	meta.Error = ""
	updates["status"] = knowledge.StatusReady
	updates["metadata"] = knowledge.NewSourceMetadata(*meta)

	err = p.deps.Runner.InTx(ctx, func(dbc dbctx.Context) error {
		if _, err := p.deps.Chunks.ReplaceForSource(dbc, src.ID, rows); err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
		return p.deps.Sources.UpdateFields(dbc, src.ID, updates)
	})
	if err != nil {
		return nil, err
	}
	return &Result{SourceID: src.ID, ChunkCount: len(rows), Skipped: len(pieces) - len(rows)}, nil
}

func (p *Processor) fail(ctx context.Context, id uuid.UUID, meta types.SourceMetadata, cause error) {
	now := time.Now().UTC()
	meta.Error = cause.Error()
	meta.ProcessedAt = &now
	// The request context may be what failed; the status write must still land.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.deps.Sources.SetStatus(dbctx.Of(wctx), id, knowledge.StatusError, meta); err != nil {
		p.log.Error("Failed to record source error", "source_id", id, "error", err)
	}
}

// interrupt hands a row whose run was cut short by ctx back to pending, so
// the next worker or the resume sweep picks it up instead of it being
// recorded as a failure.
func (p *Processor) interrupt(ctx context.Context, id uuid.UUID) error {
	p.release(ctx, []uuid.UUID{id})
	return fmt.Errorf("source %s interrupted: %w", id, ctx.Err())
}

type ExpandResult struct {
	ParentID   uuid.UUID `json:"parent_id"`
	BatchID    uuid.UUID `json:"batch_id"`
	Children   int       `json:"children"`
	Discovered int       `json:"discovered"`
}

// ExpandSitemap walks a sitemap source and creates one pending url child per
// page, replacing children from any earlier expansion.
func (p *Processor) ExpandSitemap(ctx context.Context, parentID uuid.UUID) (*ExpandResult, error) {
	parent, err := p.deps.Sources.GetByID(dbctx.Of(ctx), parentID)
	if err != nil {
		return nil, fmt.Errorf("load sitemap source: %w", err)
	}
	if parent == nil {
		return nil, fmt.Errorf("knowledge source %s: %w", parentID, pkgerrors.ErrNotFound)
	}
	if parent.Type != knowledge.SourceTypeSitemap {
		return nil, fmt.Errorf("source %s is %q, not a sitemap: %w", parentID, parent.Type, pkgerrors.ErrInvalidArgument)
	}

	meta := parent.Meta()
	meta.Error = ""
	if err := p.deps.Sources.SetStatus(dbctx.Of(ctx), parent.ID, knowledge.StatusProcessing, meta); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	opts := sitemap.Options{MaxPages: p.cfg.SitemapMaxPages}
	if meta.Sitemap != nil {
		opts.Include = meta.Sitemap.Include
		opts.Exclude = meta.Sitemap.Exclude
		if meta.Sitemap.MaxPages > 0 && meta.Sitemap.MaxPages < opts.MaxPages {
			opts.MaxPages = meta.Sitemap.MaxPages
		}
	}
	walked, err := p.deps.Walker.Expand(ctx, parent.Source, opts)
	if err == nil && len(walked.URLs) == 0 {
		err = fmt.Errorf("sitemap %s produced no page urls after filtering", parent.Source)
	}
	if err != nil && ctx.Err() != nil {
		return nil, p.interrupt(ctx, parent.ID)
	}
	if err != nil {
		p.fail(ctx, parent.ID, meta, err)
		return nil, err
	}

	batchID := walked.BatchID
	children := make([]*types.KnowledgeSource, 0, len(walked.URLs))
	for _, u := range walked.URLs {
		b, pid := batchID, parent.ID
		children = append(children, &types.KnowledgeSource{
			AgentID:        parent.AgentID,
			OwnerUserID:    parent.OwnerUserID,
			Type:           knowledge.SourceTypeURL,
			Source:         u,
			Status:         knowledge.StatusPending,
			BatchID:        &b,
			ParentSourceID: &pid,
			Metadata:       knowledge.NewSourceMetadata(types.SourceMetadata{BatchID: &b, ParentSourceID: &pid}),
		})
	}

	meta.BatchID = &batchID
	meta.DiscoveredURLs = walked.Discovered
	meta.Progress = &types.BatchProgress{Total: len(children), Pending: len(children)}
	meta.ChunkCount = 0
	meta.ProcessedAt = nil

	err = p.deps.Runner.InTx(ctx, func(dbc dbctx.Context) error {
		if _, err := p.deps.Sources.DeleteChildren(dbc, parent.ID); err != nil {
			return fmt.Errorf("clear previous children: %w", err)
		}
		if _, err := p.deps.Sources.Create(dbc, children); err != nil {
			return fmt.Errorf("create children: %w", err)
		}
		return p.deps.Sources.UpdateFields(dbc, parent.ID, map[string]interface{}{
			"batch_id": batchID,
			"metadata": knowledge.NewSourceMetadata(meta),
		})
	})
	if err != nil && ctx.Err() != nil {
		return nil, p.interrupt(ctx, parent.ID)
	}
	if err != nil {
		p.fail(ctx, parent.ID, meta, err)
		return nil, err
	}

	p.log.Info("Sitemap children created", "source_id", parent.ID, "batch_id", batchID, "children", len(children), "discovered", walked.Discovered)
	return &ExpandResult{ParentID: parent.ID, BatchID: batchID, Children: len(children), Discovered: walked.Discovered}, nil
}

// CleanupOrphans deletes sitemap children whose parent no longer exists.
func (p *Processor) CleanupOrphans(ctx context.Context) (int64, error) {
	var total int64
	for {
		orphans, err := p.deps.Sources.ListOrphanChildren(dbctx.Of(ctx), 500)
		if err != nil {
			return total, err
		}
		if len(orphans) == 0 {
			break
		}
		ids := make([]uuid.UUID, 0, len(orphans))
		for _, o := range orphans {
			ids = append(ids, o.ID)
		}
		n, err := p.deps.Sources.Delete(dbctx.Of(ctx), ids)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			break
		}
	}
	if total > 0 {
		p.log.Info("Removed orphaned sitemap children", "count", total)
	}
	return total, nil
}
