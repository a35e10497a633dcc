package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type WordPressHandler struct {
	log       *logger.Logger
	wordpress services.WordPressService
}

func NewWordPressHandler(log *logger.Logger, wordpress services.WordPressService) *WordPressHandler {
	return &WordPressHandler{log: log.With("handler", "WordPressHandler"), wordpress: wordpress}
}

type wordPressSyncRequest struct {
	Action            string                       `json:"action"`
	AgentID           string                       `json:"agentId"`
	SiteURL           string                       `json:"siteUrl"`
	Username          string                       `json:"username"`
	AppPassword       string                       `json:"appPassword"`
	CommunityEndpoint string                       `json:"communityEndpoint"`
	HomeEndpoint      string                       `json:"homeEndpoint"`
	FieldMapping      *types.WordPressFieldMapping `json:"fieldMapping"`
	ModifiedAfter     *time.Time                   `json:"modifiedAfter"`
}

// POST /functions/v1/wordpress-sync
func (h *WordPressHandler) Handle(c *gin.Context) {
	var req wordPressSyncRequest
	if !bindJSON(c, &req) {
		return
	}
	in := services.WordPressRequest{
		Action:            req.Action,
		SiteURL:           req.SiteURL,
		Username:          req.Username,
		AppPassword:       req.AppPassword,
		CommunityEndpoint: req.CommunityEndpoint,
		HomeEndpoint:      req.HomeEndpoint,
		FieldMapping:      req.FieldMapping,
		ModifiedAfter:     req.ModifiedAfter,
	}
	if req.AgentID != "" {
		id, err := uuid.Parse(req.AgentID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_agent_id", err)
			return
		}
		in.AgentID = id
	}
	res, err := h.wordpress.Handle(dbctx.Of(c.Request.Context()), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "action": req.Action, "result": res})
}
