package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/email"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/platform/resend"
	"github.com/yungbote/leadchat-backend/internal/services/emailtpl"
)

type SendEmailInput struct {
	To       string
	Subject  string
	HTML     string
	Template string
	Data     map[string]any
}

type WebhookResult struct {
	Received  bool   `json:"received"`
	Ignored   bool   `json:"ignored,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Status    string `json:"status,omitempty"`
}

type EmailService interface {
	// Send is the authenticated send-email entry point.
	Send(dbc dbctx.Context, in SendEmailInput) (*types.EmailLog, error)
	// Deliver renders and sends without an auth check; other services use it.
	Deliver(ctx context.Context, in SendEmailInput) (*types.EmailLog, error)
	HandleWebhook(ctx context.Context, header http.Header, body []byte) (*WebhookResult, error)
}

type emailService struct {
	log      *logger.Logger
	logs     repos.EmailLogRepo
	events   repos.EmailEventRepo
	client   resend.Client
	verifier *resend.Verifier
	tpl      *emailtpl.Renderer
}

// NewEmailService accepts a nil client or verifier; the matching features
// then report feature_not_configured.
func NewEmailService(
	baseLog *logger.Logger,
	logs repos.EmailLogRepo,
	events repos.EmailEventRepo,
	client resend.Client,
	verifier *resend.Verifier,
	tpl *emailtpl.Renderer,
) EmailService {
	return &emailService{
		log:      baseLog.With("service", "EmailService"),
		logs:     logs,
		events:   events,
		client:   client,
		verifier: verifier,
		tpl:      tpl,
	}
}

func (s *emailService) Send(dbc dbctx.Context, in SendEmailInput) (*types.EmailLog, error) {
	if _, err := requireUser(dbc); err != nil {
		return nil, err
	}
	return s.Deliver(dbc.Ctx, in)
}

func (s *emailService) Deliver(ctx context.Context, in SendEmailInput) (*types.EmailLog, error) {
	to := strings.TrimSpace(in.To)
	if _, err := mail.ParseAddress(to); err != nil {
		return nil, apierr.BadRequest("invalid_email", "to must be a valid email address")
	}
	subject, html := strings.TrimSpace(in.Subject), in.HTML
	tplName := strings.TrimSpace(in.Template)
	switch {
	case tplName != "":
		if s.tpl == nil || !s.tpl.Has(tplName) {
			return nil, apierr.BadRequest("unknown_template", "unknown template %q", tplName)
		}
		data := make(map[string]any, len(in.Data)+1)
		for k, v := range in.Data {
			data[k] = v
		}
		if subject != "" {
			data["subject"] = subject
		}
		var err error
		subject, html, err = s.tpl.Render(tplName, data)
		if err != nil {
			return nil, err
		}
	case strings.TrimSpace(html) == "":
		return nil, apierr.BadRequest("missing_content", "html or template is required")
	case subject == "":
		return nil, apierr.BadRequest("missing_subject", "subject is required")
	}
	if s.client == nil {
		return nil, apierr.Unavailable("email")
	}

	entry := &types.EmailLog{
		To:       to,
		Subject:  subject,
		Template: tplName,
		Status:   email.StatusQueued,
	}
	if _, err := s.logs.Create(dbctx.Of(ctx), entry); err != nil {
		return nil, fmt.Errorf("create email log: %w", err)
	}

	req := resend.SendEmailRequest{To: []string{to}, Subject: subject, HTML: html}
	if tplName != "" {
		req.Tags = []resend.Tag{{Name: "template", Value: tplName}}
	}
	res, sendErr := s.client.Send(ctx, req)
	// Record the outcome even when the request context is gone.
	wctx := context.WithoutCancel(ctx)
	if sendErr != nil {
		entry.Status = email.StatusFailed
		entry.Error = sendErr.Error()
		if err := s.logs.UpdateFields(dbctx.Of(wctx), entry.ID, map[string]interface{}{
			"status": entry.Status,
			"error":  entry.Error,
		}); err != nil {
			s.log.Error("Failed to record email failure", "email_log_id", entry.ID, "error", err)
		}
		return entry, fmt.Errorf("send email: %w", sendErr)
	}
	entry.Status = email.StatusSent
	entry.ProviderID = res.ID
	if err := s.logs.UpdateFields(dbctx.Of(wctx), entry.ID, map[string]interface{}{
		"status":      entry.Status,
		"provider_id": entry.ProviderID,
	}); err != nil {
		s.log.Error("Failed to record email send", "email_log_id", entry.ID, "error", err)
	}
	s.log.Info("Email sent", "email_log_id", entry.ID, "provider_id", res.ID, "template", tplName)
	return entry, nil
}

type webhookEvent struct {
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Data      struct {
		EmailID string `json:"email_id"`
	} `json:"data"`
}

func (s *emailService) HandleWebhook(ctx context.Context, header http.Header, body []byte) (*WebhookResult, error) {
	if s.verifier == nil {
		return nil, apierr.Unavailable("email webhook")
	}
	if err := s.verifier.Verify(header, body); err != nil {
		s.log.Warn("Rejected email webhook", "error", err)
		return nil, apierr.New(http.StatusUnauthorized, "invalid_signature", err)
	}
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, apierr.BadRequest("invalid_payload", "webhook body is not valid json")
	}
	status, ok := email.StatusForEvent(ev.Type)
	if !ok {
		s.log.Debug("Ignoring email webhook event", "type", ev.Type)
		return &WebhookResult{Received: true, Ignored: true}, nil
	}

	dbc := dbctx.Of(ctx)
	entry, err := s.logs.GetByProviderID(dbc, ev.Data.EmailID)
	if err != nil {
		return nil, err
	}
	rec := &types.EmailEvent{
		ProviderID: ev.Data.EmailID,
		MessageID:  strings.TrimSpace(header.Get("svix-id")),
		Type:       ev.Type,
		Payload:    datatypes.JSON(body),
	}
	if entry != nil {
		id := entry.ID
		rec.EmailLogID = &id
	}
	inserted, err := s.events.Append(dbc, rec)
	if err != nil {
		return nil, fmt.Errorf("append email event: %w", err)
	}
	if !inserted {
		return &WebhookResult{Received: true, Duplicate: true, Status: status}, nil
	}
	if entry == nil {
		s.log.Warn("Email webhook for unknown message", "provider_id", ev.Data.EmailID, "type", ev.Type)
		return &WebhookResult{Received: true, Status: status}, nil
	}
	if err := s.logs.UpdateFields(dbc, entry.ID, map[string]interface{}{"status": status}); err != nil {
		return nil, err
	}
	return &WebhookResult{Received: true, Status: status}, nil
}

// IsNotConfigured reports whether err is a feature_not_configured error.
func IsNotConfigured(err error) bool {
	var ae *apierr.Error
	return errors.As(err, &ae) && ae.Code == "feature_not_configured"
}
