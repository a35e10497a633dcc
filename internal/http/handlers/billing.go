package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type BillingHandler struct {
	billing services.BillingService
}

func NewBillingHandler(billing services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// POST /functions/v1/admin-sync-billing
func (h *BillingHandler) AdminSync(c *gin.Context) {
	res, err := h.billing.AdminSync(dbctx.Of(c.Request.Context()))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "result": res})
}
