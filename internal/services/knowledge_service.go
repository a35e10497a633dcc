package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/txn"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/knowledge"
	"github.com/yungbote/leadchat-backend/internal/ingestion/embedder"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

const (
	DefaultMatchThreshold = 0.7
	DefaultMatchCount     = 5
	maxMatchCount         = 50
)

type CreateSourceInput struct {
	AgentID uuid.UUID
	Type    string
	Source  string
	Title   string
	Content string
	Sitemap *types.SitemapOptions
}

type SearchInput struct {
	AgentID        uuid.UUID
	Query          string
	MatchThreshold *float64
	MatchCount     *int
}

type BatchStatus struct {
	ParentID uuid.UUID           `json:"parentId"`
	Status   string              `json:"status"`
	BatchID  *uuid.UUID          `json:"batchId,omitempty"`
	Progress types.BatchProgress `json:"progress"`
	Error    string              `json:"error,omitempty"`
}

type KnowledgeService interface {
	CreateSource(dbc dbctx.Context, in CreateSourceInput) (*types.KnowledgeSource, *types.JobRun, error)
	// ProcessSource queues (re)processing of an existing source. It returns
	// the queued job, or nil when one is already queued or running.
	ProcessSource(dbc dbctx.Context, sourceID uuid.UUID) (*types.JobRun, error)
	BatchStatus(dbc dbctx.Context, parentID uuid.UUID) (*BatchStatus, error)
	Search(ctx context.Context, in SearchInput) ([]types.ChunkMatch, error)
}

type knowledgeService struct {
	log      *logger.Logger
	runner   txn.Runner
	sources  repos.KnowledgeSourceRepo
	chunks   repos.KnowledgeChunkRepo
	agents   repos.AgentRepo
	members  repos.TeamMemberRepo
	jobs     JobService
	embedder embedder.Embedder
}

func NewKnowledgeService(
	baseLog *logger.Logger,
	runner txn.Runner,
	sources repos.KnowledgeSourceRepo,
	chunks repos.KnowledgeChunkRepo,
	agents repos.AgentRepo,
	members repos.TeamMemberRepo,
	jobs JobService,
	emb embedder.Embedder,
) KnowledgeService {
	return &knowledgeService{
		log:      baseLog.With("service", "KnowledgeService"),
		runner:   runner,
		sources:  sources,
		chunks:   chunks,
		agents:   agents,
		members:  members,
		jobs:     jobs,
		embedder: emb,
	}
}

func (s *knowledgeService) CreateSource(dbc dbctx.Context, in CreateSourceInput) (*types.KnowledgeSource, *types.JobRun, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, nil, err
	}
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.Source = strings.TrimSpace(in.Source)
	if !knowledge.ValidSourceType(in.Type) {
		return nil, nil, apierr.BadRequest("invalid_source_type", "type must be one of url, sitemap, pdf, text")
	}
	if in.Type == knowledge.SourceTypeText {
		if strings.TrimSpace(in.Content) == "" {
			return nil, nil, apierr.BadRequest("missing_content", "content is required for text sources")
		}
		if in.Source == "" {
			in.Source = "text"
		}
	} else if !isHTTPURL(in.Source) {
		return nil, nil, apierr.BadRequest("invalid_source", "source must be an http(s) url")
	}

	agent, err := s.agentForCaller(dbc, in.AgentID, rd.UserID)
	if err != nil {
		return nil, nil, err
	}

	meta := types.SourceMetadata{}
	if in.Type == knowledge.SourceTypeSitemap && in.Sitemap != nil {
		opts := *in.Sitemap
		meta.Sitemap = &opts
	}
	if err := meta.Validate(in.Type); err != nil {
		return nil, nil, apierr.BadRequest("invalid_metadata", "%v", err)
	}

	src := &types.KnowledgeSource{
		AgentID:     agent.ID,
		OwnerUserID: agent.OwnerUserID,
		Type:        in.Type,
		Source:      in.Source,
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Status:      knowledge.StatusPending,
		Metadata:    knowledge.NewSourceMetadata(meta),
	}
	var job *types.JobRun
	err = s.runner.InTx(dbc.Ctx, func(tx dbctx.Context) error {
		if _, err := s.sources.Create(tx, []*types.KnowledgeSource{src}); err != nil {
			return fmt.Errorf("create source: %w", err)
		}
		id := src.ID
		var qerr error
		job, qerr = s.jobs.Enqueue(tx, agent.OwnerUserID, jobTypeForSource(src.Type), EntityKnowledgeSource, &id, map[string]any{
			"source_id": src.ID.String(),
		})
		return qerr
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("Knowledge source created", "source_id", src.ID, "agent_id", agent.ID, "type", src.Type)
	return src, job, nil
}

func (s *knowledgeService) ProcessSource(dbc dbctx.Context, sourceID uuid.UUID) (*types.JobRun, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, err
	}
	src, err := s.sourceForCaller(dbc, sourceID, rd.UserID)
	if err != nil {
		return nil, err
	}
	if src.IsSitemapChild() {
		return nil, apierr.BadRequest("sitemap_child", "sitemap pages are processed through their parent batch")
	}
	id := src.ID
	job, _, err := s.jobs.EnqueueIfIdle(dbc, src.OwnerUserID, jobTypeForSource(src.Type), EntityKnowledgeSource, &id, map[string]any{
		"source_id": src.ID.String(),
	})
	return job, err
}

func (s *knowledgeService) BatchStatus(dbc dbctx.Context, parentID uuid.UUID) (*BatchStatus, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, err
	}
	parent, err := s.sourceForCaller(dbc, parentID, rd.UserID)
	if err != nil {
		return nil, err
	}
	if parent.Type != knowledge.SourceTypeSitemap {
		return nil, apierr.BadRequest("not_a_sitemap", "source %s is not a sitemap", parentID)
	}
	meta := parent.Meta()
	out := &BatchStatus{
		ParentID: parent.ID,
		Status:   parent.Status,
		BatchID:  parent.BatchID,
		Error:    meta.Error,
	}
	if meta.Progress != nil {
		out.Progress = *meta.Progress
	}
	if parent.Status == knowledge.StatusProcessing && parent.BatchID != nil {
		// The stored counters lag between batch steps; report live counts.
		counts, err := s.sources.CountChildrenByStatus(dbc, *parent.BatchID)
		if err != nil {
			return nil, err
		}
		out.Progress = types.BatchProgress{
			Processed:  counts[knowledge.StatusReady],
			Errors:     counts[knowledge.StatusError],
			Pending:    counts[knowledge.StatusPending],
			Processing: counts[knowledge.StatusProcessing],
		}
		out.Progress.Total = out.Progress.Processed + out.Progress.Errors + out.Progress.Pending + out.Progress.Processing
	}
	return out, nil
}

func (s *knowledgeService) Search(ctx context.Context, in SearchInput) ([]types.ChunkMatch, error) {
	if in.AgentID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_agent_id", "agentId is required")
	}
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, apierr.BadRequest("missing_query", "query is required")
	}
	threshold := DefaultMatchThreshold
	if in.MatchThreshold != nil {
		threshold = *in.MatchThreshold
	}
	if threshold < -1 || threshold > 1 {
		return nil, apierr.BadRequest("invalid_threshold", "matchThreshold must be between -1 and 1")
	}
	count := DefaultMatchCount
	if in.MatchCount != nil {
		count = *in.MatchCount
	}
	if count < 1 {
		return nil, apierr.BadRequest("invalid_count", "matchCount must be positive")
	}
	if count > maxMatchCount {
		count = maxMatchCount
	}
	if s.embedder == nil {
		return nil, apierr.Unavailable("embeddings")
	}

	agent, err := s.agents.GetByID(dbctx.Of(ctx), in.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, apierr.NotFound("agent_not_found", "agent %s not found", in.AgentID)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := s.chunks.Search(dbctx.Of(ctx), agent.ID, vec, threshold, count)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	s.log.Debug("Knowledge search", "agent_id", agent.ID, "matches", len(matches))
	return matches, nil
}

func (s *knowledgeService) agentForCaller(dbc dbctx.Context, agentID, userID uuid.UUID) (*types.Agent, error) {
	agent, _, err := agentAccess(dbc, s.agents, s.members, agentID, userID)
	return agent, err
}

func (s *knowledgeService) sourceForCaller(dbc dbctx.Context, sourceID, userID uuid.UUID) (*types.KnowledgeSource, error) {
	if sourceID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_source_id", "sourceId is required")
	}
	src, err := s.sources.GetByID(dbc, sourceID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, apierr.NotFound("source_not_found", "knowledge source %s not found", sourceID)
	}
	if _, err := s.agentForCaller(dbc, src.AgentID, userID); err != nil {
		if ae := apierr.From(err); ae.Status == http.StatusNotFound {
			return nil, apierr.NotFound("source_not_found", "knowledge source %s not found", sourceID)
		}
		return nil, err
	}
	return src, nil
}

func jobTypeForSource(sourceType string) string {
	if sourceType == knowledge.SourceTypeSitemap {
		return JobTypeSitemapExpand
	}
	return JobTypeKnowledgeSourceProcess
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
