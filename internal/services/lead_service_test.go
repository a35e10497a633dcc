package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/leadchat-backend/internal/data/txn"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/leads"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/ratelimit"
)

type leadHarness struct {
	db    *gorm.DB
	svc   LeadService
	mail  *fakeResend
	agent *types.Agent
	leads repos.LeadRepo
	now   time.Time
}

func newLeadHarness(t *testing.T, limit int) *leadHarness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &leadHarness{
		db:    db,
		mail:  &fakeResend{},
		agent: testutil.SeedAgent(t, context.Background(), db, uuid.New()),
		leads: repos.NewLeadRepo(db, log),
		now:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	svc := NewLeadService(
		log,
		txn.NewGormRunner(db),
		repos.NewAgentRepo(db, log),
		h.leads,
		repos.NewConversationRepo(db, log),
		ratelimit.NewMemory(limit, time.Hour),
		newEmailService(t, db, h.mail, nil),
		nil,
		LeadFormConfig{MinFormTime: 3 * time.Second, DashboardURL: "https://app.example.com"},
	)
	svc.(*leadService).now = func() time.Time { return h.now }
	h.svc = svc
	return h
}

func (h *leadHarness) input() SubmitLeadInput {
	return SubmitLeadInput{
		AgentID:      h.agent.ID.String(),
		Name:         "Dana Buyer",
		Email:        "dana@example.com",
		Message:      "Interested in the Aspen plan",
		FormLoadTime: h.now.Add(-30 * time.Second).UnixMilli(),
		ClientIP:     "203.0.113.9",
		Metadata:     types.LeadMetadata{PageURL: "https://acme.test/homes"},
	}
}

func (h *leadHarness) count(t *testing.T) int64 {
	t.Helper()
	n, err := h.leads.CountByAgent(dbctx.Of(context.Background()), h.agent.ID)
	if err != nil {
		t.Fatalf("CountByAgent: %v", err)
	}
	return n
}

func TestSubmitLeadCreatesLeadAndNotifies(t *testing.T) {
	h := newLeadHarness(t, 5)
	res, err := h.svc.Submit(context.Background(), h.input())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Blocked || res.ConversationID == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	lead, err := h.leads.GetByID(dbctx.Of(context.Background()), uuid.MustParse(res.LeadID))
	if err != nil || lead == nil {
		t.Fatalf("lead not stored: %v", err)
	}
	if lead.Email != "dana@example.com" || lead.Metadata.Data().IPHash == "" {
		t.Fatalf("unexpected lead %+v", lead)
	}
	var conv types.Conversation
	if err := h.db.First(&conv, "id = ?", *res.ConversationID).Error; err != nil {
		t.Fatalf("conversation not stored: %v", err)
	}
	if conv.LeadID == nil || *conv.LeadID != lead.ID {
		t.Fatalf("conversation not linked: %+v", conv)
	}
	sent := h.mail.sent()
	if len(sent) != 1 || sent[0].To[0] != h.agent.NotificationEmail {
		t.Fatalf("expected owner notification, got %+v", sent)
	}
}

func TestSubmitLeadBlocksBotsSilently(t *testing.T) {
	h := newLeadHarness(t, 5)

	honeypot := h.input()
	honeypot.Website = "http://spam.example"
	res, err := h.svc.Submit(context.Background(), honeypot)
	if err != nil || res.LeadID != leads.BlockedBot {
		t.Fatalf("honeypot: %+v %v", res, err)
	}

	fast := h.input()
	fast.FormLoadTime = h.now.Add(-time.Second).UnixMilli()
	res, err = h.svc.Submit(context.Background(), fast)
	if err != nil || res.LeadID != leads.BlockedSpam {
		t.Fatalf("fast form: %+v %v", res, err)
	}

	if n := h.count(t); n != 0 {
		t.Fatalf("blocked submissions created %d leads", n)
	}
	if len(h.mail.sent()) != 0 {
		t.Fatalf("blocked submissions sent email")
	}
}

func TestSubmitLeadRateLimitsPerIP(t *testing.T) {
	h := newLeadHarness(t, 1)
	if _, err := h.svc.Submit(context.Background(), h.input()); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	res, err := h.svc.Submit(context.Background(), h.input())
	if err != nil || res.LeadID != leads.BlockedRateLimit {
		t.Fatalf("expected rate limit, got %+v %v", res, err)
	}
	other := h.input()
	other.ClientIP = "198.51.100.1"
	if res, err := h.svc.Submit(context.Background(), other); err != nil || res.Blocked {
		t.Fatalf("other ip should pass: %+v %v", res, err)
	}
	if n := h.count(t); n != 2 {
		t.Fatalf("expected 2 leads, got %d", n)
	}
}

func TestSubmitLeadValidation(t *testing.T) {
	h := newLeadHarness(t, 100)
	cases := map[string]struct {
		mutate func(*SubmitLeadInput)
		status int
	}{
		"bad agent":     {func(in *SubmitLeadInput) { in.AgentID = "nope" }, http.StatusBadRequest},
		"no contact":    {func(in *SubmitLeadInput) { in.Email, in.Phone = "", "" }, http.StatusBadRequest},
		"bad email":     {func(in *SubmitLeadInput) { in.Email = "dana at example" }, http.StatusBadRequest},
		"unknown agent": {func(in *SubmitLeadInput) { in.AgentID = uuid.NewString() }, http.StatusNotFound},
	}
	for name, tc := range cases {
		in := h.input()
		tc.mutate(&in)
		if _, err := h.svc.Submit(context.Background(), in); apierr.From(err).Status != tc.status {
			t.Fatalf("%s: expected %d, got %v", name, tc.status, err)
		}
	}
	phoneOnly := h.input()
	phoneOnly.Email, phoneOnly.Phone = "", "+1 208 555 0100"
	if res, err := h.svc.Submit(context.Background(), phoneOnly); err != nil || res.Blocked {
		t.Fatalf("phone-only lead: %+v %v", res, err)
	}
}
