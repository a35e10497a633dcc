package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/txn"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/leads"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/pkg/ratelimit"
	"github.com/yungbote/leadchat-backend/internal/services/emailtpl"
)

type LeadFormConfig struct {
	MinFormTime  time.Duration
	DashboardURL string
	// NotifyTimeout bounds the best-effort owner notifications.
	NotifyTimeout time.Duration
}

type SubmitLeadInput struct {
	AgentID      string
	Name         string
	Email        string
	Phone        string
	Message      string
	CustomFields map[string]any
	// Website is the honeypot field; humans never see it.
	Website string
	// FormLoadTime is when the form was rendered, in ms since the epoch.
	FormLoadTime int64
	Metadata     types.LeadMetadata
	ClientIP     string
	UserAgent    string
}

type SubmitLeadResult struct {
	LeadID         string     `json:"leadId"`
	ConversationID *uuid.UUID `json:"conversationId,omitempty"`
	Blocked        bool       `json:"-"`
}

type LeadService interface {
	Submit(ctx context.Context, in SubmitLeadInput) (*SubmitLeadResult, error)
}

type leadService struct {
	log     *logger.Logger
	runner  txn.Runner
	agents  repos.AgentRepo
	leads   repos.LeadRepo
	convs   repos.ConversationRepo
	limiter ratelimit.Limiter
	email   EmailService
	push    PushService
	cfg     LeadFormConfig
	now     func() time.Time
}

func NewLeadService(
	baseLog *logger.Logger,
	runner txn.Runner,
	agents repos.AgentRepo,
	leadRepo repos.LeadRepo,
	convs repos.ConversationRepo,
	limiter ratelimit.Limiter,
	email EmailService,
	push PushService,
	cfg LeadFormConfig,
) LeadService {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &leadService{
		log:     baseLog.With("service", "LeadService"),
		runner:  runner,
		agents:  agents,
		leads:   leadRepo,
		convs:   convs,
		limiter: limiter,
		email:   email,
		push:    push,
		cfg:     cfg,
		now:     time.Now,
	}
}

func blocked(id string) *SubmitLeadResult {
	return &SubmitLeadResult{LeadID: id, Blocked: true}
}

func (s *leadService) Submit(ctx context.Context, in SubmitLeadInput) (*SubmitLeadResult, error) {
	if strings.TrimSpace(in.Website) != "" {
		s.log.Info("Lead form honeypot tripped", "ip", in.ClientIP)
		return blocked(leads.BlockedBot), nil
	}
	if in.FormLoadTime > 0 && s.cfg.MinFormTime > 0 {
		elapsed := s.now().Sub(time.UnixMilli(in.FormLoadTime))
		if elapsed < s.cfg.MinFormTime {
			s.log.Info("Lead form submitted too fast", "ip", in.ClientIP, "elapsed_ms", elapsed.Milliseconds())
			return blocked(leads.BlockedSpam), nil
		}
	}
	if s.limiter != nil && in.ClientIP != "" {
		ok, err := s.limiter.Allow(ctx, in.ClientIP)
		if err != nil {
			s.log.Warn("Lead rate limiter unavailable; allowing", "error", err)
		} else if !ok {
			s.log.Info("Lead form rate limited", "ip", in.ClientIP)
			return blocked(leads.BlockedRateLimit), nil
		}
	}

	agentID, err := uuid.Parse(strings.TrimSpace(in.AgentID))
	if err != nil || agentID == uuid.Nil {
		return nil, apierr.BadRequest("invalid_agent_id", "agentId must be a uuid")
	}
	emailAddr := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if emailAddr == "" && phone == "" {
		return nil, apierr.BadRequest("missing_contact", "email or phone is required")
	}
	if emailAddr != "" {
		addr, err := mail.ParseAddress(emailAddr)
		if err != nil || addr.Address != emailAddr {
			return nil, apierr.BadRequest("invalid_email", "email is not valid")
		}
	}

	agent, err := s.agents.GetByID(dbctx.Of(ctx), agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, apierr.NotFound("agent_not_found", "agent %s not found", agentID)
	}

	meta := in.Metadata
	if in.ClientIP != "" {
		meta.IPHash = hashIP(in.ClientIP)
	}
	if meta.UserAgent == "" {
		meta.UserAgent = in.UserAgent
	}
	var custom datatypes.JSON
	if len(in.CustomFields) > 0 {
		b, err := json.Marshal(in.CustomFields)
		if err != nil {
			return nil, apierr.BadRequest("invalid_custom_fields", "customFields must be a json object")
		}
		custom = datatypes.JSON(b)
	}
	lead := &types.Lead{
		AgentID:      agent.ID,
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(emailAddr),
		Phone:        phone,
		Message:      strings.TrimSpace(in.Message),
		CustomFields: custom,
		Metadata:     datatypes.NewJSONType(meta),
	}
	convMeta, _ := json.Marshal(map[string]any{
		"source":   "lead_form",
		"page_url": meta.PageURL,
		"referrer": meta.Referrer,
	})
	conv := &types.Conversation{
		AgentID:  agent.ID,
		Channel:  "lead_form",
		Metadata: datatypes.JSON(convMeta),
	}

	err = s.runner.InTx(ctx, func(tx dbctx.Context) error {
		if _, err := s.leads.Create(tx, lead); err != nil {
			return fmt.Errorf("create lead: %w", err)
		}
		id := lead.ID
		conv.LeadID = &id
		if _, err := s.convs.Create(tx, conv); err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Lead captured", "lead_id", lead.ID, "agent_id", agent.ID)

	s.notifyOwner(ctx, agent, lead)
	convID := conv.ID
	return &SubmitLeadResult{LeadID: lead.ID.String(), ConversationID: &convID}, nil
}

// notifyOwner never fails the submission.
func (s *leadService) notifyOwner(ctx context.Context, agent *types.Agent, lead *types.Lead) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	defer cancel()

	if s.email != nil && agent.NotificationEmail != "" {
		data := map[string]any{
			"agent_name": agent.Name,
			"lead_name":  lead.Name,
			"lead_email": lead.Email,
			"lead_phone": lead.Phone,
			"message":    lead.Message,
		}
		if s.cfg.DashboardURL != "" {
			data["dashboard_url"] = strings.TrimRight(s.cfg.DashboardURL, "/") + "/leads/" + lead.ID.String()
		}
		if _, err := s.email.Deliver(nctx, SendEmailInput{To: agent.NotificationEmail, Template: emailtpl.LeadNotification, Data: data}); err != nil {
			s.log.Warn("Lead email notification failed", "lead_id", lead.ID, "error", err)
		}
	}
	if s.push != nil {
		title := "New lead"
		if lead.Name != "" {
			title = "New lead: " + lead.Name
		}
		msg := PushMessage{UserID: agent.OwnerUserID, Title: title, Body: truncate(lead.Message, 120), Tag: "lead-" + lead.ID.String()}
		if s.cfg.DashboardURL != "" {
			msg.URL = strings.TrimRight(s.cfg.DashboardURL, "/") + "/leads/" + lead.ID.String()
		}
		if _, err := s.push.SendToUser(nctx, msg); err != nil && !IsNotConfigured(err) {
			s.log.Warn("Lead push notification failed", "lead_id", lead.ID, "error", err)
		}
	}
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(ip)))
	return hex.EncodeToString(sum[:8])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
