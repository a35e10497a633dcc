package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type TeamHandler struct {
	team services.TeamService
}

func NewTeamHandler(team services.TeamService) *TeamHandler {
	return &TeamHandler{team: team}
}

type sendInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	// AccountOwnerID targets another account the caller administers.
	AccountOwnerID string `json:"accountOwnerId"`
}

// POST /functions/v1/send-team-invitation
func (h *TeamHandler) SendInvitation(c *gin.Context) {
	var req sendInvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	in := services.SendInvitationInput{Email: req.Email, Role: req.Role}
	if req.AccountOwnerID != "" {
		id, ok := parseID(c, req.AccountOwnerID, "invalid_account_owner_id")
		if !ok {
			return
		}
		in.AccountOwnerID = id
	}
	res, err := h.team.SendInvitation(dbctx.Of(c.Request.Context()), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

type acceptInvitationRequest struct {
	Token string `json:"token"`
}

// POST /functions/v1/accept-team-invitation
func (h *TeamHandler) AcceptInvitation(c *gin.Context) {
	var req acceptInvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.team.AcceptInvitation(dbctx.Of(c.Request.Context()), req.Token)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "membership": res})
}
