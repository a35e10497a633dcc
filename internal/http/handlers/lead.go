package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type LeadHandler struct {
	leads services.LeadService
}

func NewLeadHandler(leads services.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

type submitLeadRequest struct {
	AgentID      string              `json:"agentId"`
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Phone        string              `json:"phone"`
	Message      string              `json:"message"`
	CustomFields map[string]any      `json:"customFields"`
	Website      string              `json:"website"`
	FormLoadTime int64               `json:"formLoadTime"`
	Metadata     leadMetadataRequest `json:"metadata"`
}

type leadMetadataRequest struct {
	Device   *types.Device       `json:"device"`
	Geo      *types.Geo          `json:"geo"`
	Referrer string              `json:"referrer"`
	PageURL  string              `json:"pageUrl"`
	Journey  []types.JourneyStep `json:"journey"`
	UTM      map[string]string   `json:"utm"`
}

// POST /functions/v1/submit-lead-form
//
// Blocked submissions still answer 200 with a sentinel lead id.
func (h *LeadHandler) Submit(c *gin.Context) {
	var req submitLeadRequest
	if !bindJSON(c, &req) {
		return
	}
	in := services.SubmitLeadInput{
		AgentID:      req.AgentID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		CustomFields: req.CustomFields,
		Website:      req.Website,
		FormLoadTime: req.FormLoadTime,
		Metadata: types.LeadMetadata{
			Device:   req.Metadata.Device,
			Geo:      req.Metadata.Geo,
			Referrer: req.Metadata.Referrer,
			PageURL:  req.Metadata.PageURL,
			Journey:  req.Metadata.Journey,
			UTM:      req.Metadata.UTM,
		},
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.ClientIP != "" {
		in.ClientIP = rd.ClientIP
	}
	res, err := h.leads.Submit(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "leadId": res.LeadID, "conversationId": res.ConversationID})
}
