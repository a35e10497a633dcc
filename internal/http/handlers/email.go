package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/leadchat-backend/internal/http/response"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

const maxWebhookBody = 1 << 20

type EmailHandler struct {
	log   *logger.Logger
	email services.EmailService
}

func NewEmailHandler(log *logger.Logger, email services.EmailService) *EmailHandler {
	return &EmailHandler{log: log.With("handler", "EmailHandler"), email: email}
}

type sendEmailRequest struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	HTML     string         `json:"html"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// POST /functions/v1/send-email
func (h *EmailHandler) Send(c *gin.Context) {
	var req sendEmailRequest
	if !bindJSON(c, &req) {
		return
	}
	logRow, err := h.email.Send(dbctx.Of(c.Request.Context()), services.SendEmailInput{
		To:       req.To,
		Subject:  req.Subject,
		HTML:     req.HTML,
		Template: req.Template,
		Data:     req.Data,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "id": logRow.ProviderID, "log": logRow})
}

// POST /functions/v1/resend-webhook
//
// The signature covers the raw body, so it is read before any decoding.
func (h *EmailHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := h.email.HandleWebhook(c.Request.Context(), c.Request.Header, body)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}
