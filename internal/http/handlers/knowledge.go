package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type KnowledgeHandler struct {
	log       *logger.Logger
	knowledge services.KnowledgeService
}

func NewKnowledgeHandler(log *logger.Logger, knowledge services.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{log: log.With("handler", "KnowledgeHandler"), knowledge: knowledge}
}

type createSourceRequest struct {
	AgentID string                `json:"agentId"`
	Type    string                `json:"type"`
	Source  string                `json:"source"`
	Title   string                `json:"title"`
	Content string                `json:"content"`
	Sitemap *types.SitemapOptions `json:"sitemap"`
}

// POST /functions/v1/create-knowledge-source
func (h *KnowledgeHandler) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if !bindJSON(c, &req) {
		return
	}
	agentID, ok := parseID(c, req.AgentID, "invalid_agent_id")
	if !ok {
		return
	}
	src, job, err := h.knowledge.CreateSource(dbctx.Of(c.Request.Context()), services.CreateSourceInput{
		AgentID: agentID,
		Type:    req.Type,
		Source:  req.Source,
		Title:   req.Title,
		Content: req.Content,
		Sitemap: req.Sitemap,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"source": src, "job": job})
}

type processSourceRequest struct {
	SourceID string `json:"sourceId"`
}

// POST /functions/v1/process-knowledge-source
func (h *KnowledgeHandler) ProcessSource(c *gin.Context) {
	var req processSourceRequest
	if !bindJSON(c, &req) {
		return
	}
	sourceID, ok := parseID(c, req.SourceID, "invalid_source_id")
	if !ok {
		return
	}
	job, err := h.knowledge.ProcessSource(dbctx.Of(c.Request.Context()), sourceID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "queued": job != nil, "job": job})
}

// GET /functions/v1/knowledge-batch-status?parentId=
func (h *KnowledgeHandler) BatchStatus(c *gin.Context) {
	parentID, ok := parseID(c, c.Query("parentId"), "invalid_parent_id")
	if !ok {
		return
	}
	st, err := h.knowledge.BatchStatus(dbctx.Of(c.Request.Context()), parentID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, st)
}

type searchRequest struct {
	AgentID        string   `json:"agentId"`
	Query          string   `json:"query"`
	MatchThreshold *float64 `json:"matchThreshold"`
	MatchCount     *int     `json:"matchCount"`
}

// POST /functions/v1/search-knowledge
func (h *KnowledgeHandler) Search(c *gin.Context) {
	var req searchRequest
	if !bindJSON(c, &req) {
		return
	}
	agentID, ok := parseID(c, req.AgentID, "invalid_agent_id")
	if !ok {
		return
	}
	matches, err := h.knowledge.Search(c.Request.Context(), services.SearchInput{
		AgentID:        agentID,
		Query:          req.Query,
		MatchThreshold: req.MatchThreshold,
		MatchCount:     req.MatchCount,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": matches})
}
