package services

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/leadchat-backend/internal/data/txn"
	"github.com/yungbote/leadchat-backend/internal/domain/team"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/platform/resend"
)

func newTeamService(t *testing.T, client resend.Client) *teamService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewTeamService(
		log,
		txn.NewGormRunner(db),
		repos.NewInvitationRepo(db, log),
		repos.NewTeamMemberRepo(db, log),
		newEmailService(t, db, client, nil),
		"https://app.example.com/",
	)
	return svc.(*teamService)
}

func tokenFrom(t *testing.T, res *InvitationResult) string {
	t.Helper()
	u, err := url.Parse(res.AcceptURL)
	if err != nil || u.Query().Get("token") == "" {
		t.Fatalf("no token in accept url %q", res.AcceptURL)
	}
	return u.Query().Get("token")
}

func status(err error) int {
	if err == nil {
		return 0
	}
	return apierr.From(err).Status
}

func TestInvitationLifecycle(t *testing.T) {
	svc := newTeamService(t, nil)
	owner, invitee, stranger := uuid.New(), uuid.New(), uuid.New()

	res, err := svc.SendInvitation(asRole(owner, "authenticated", "owner@example.com"), SendInvitationInput{Email: "New.Hire@Example.com"})
	if err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}
	if res.EmailSent || res.Invitation.Email != "new.hire@example.com" || res.Invitation.Role != team.RoleMember {
		t.Fatalf("unexpected invitation %+v", res)
	}
	token := tokenFrom(t, res)

	if _, err := svc.AcceptInvitation(asRole(invitee, "authenticated", "someone.else@example.com"), token); status(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for email mismatch, got %v", err)
	}
	acc, err := svc.AcceptInvitation(asRole(invitee, "authenticated", "new.hire@example.com"), token)
	if err != nil || acc.AccountOwnerID != owner || acc.Role != team.RoleMember || acc.AlreadyAccepted {
		t.Fatalf("accept: %+v %v", acc, err)
	}
	again, err := svc.AcceptInvitation(asRole(invitee, "authenticated", "new.hire@example.com"), token)
	if err != nil || !again.AlreadyAccepted {
		t.Fatalf("second accept should be idempotent: %+v %v", again, err)
	}
	if _, err := svc.AcceptInvitation(asRole(stranger, "authenticated", ""), token); status(err) != http.StatusGone {
		t.Fatalf("expected 410 for a used invitation, got %v", err)
	}

	// Plain members cannot invite on the owner's behalf.
	if _, err := svc.SendInvitation(asUser(invitee), SendInvitationInput{Email: "x@example.com", AccountOwnerID: owner}); status(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for member invite, got %v", err)
	}
	if _, err := svc.AcceptInvitation(asUser(invitee), "bogus"); status(err) != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %v", err)
	}
}

func TestReinviteRevokesPrevious(t *testing.T) {
	svc := newTeamService(t, nil)
	owner, invitee := uuid.New(), uuid.New()
	first, err := svc.SendInvitation(asUser(owner), SendInvitationInput{Email: "a@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("first invite: %v", err)
	}
	second, err := svc.SendInvitation(asUser(owner), SendInvitationInput{Email: "a@example.com", Role: "admin"})
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}
	if _, err := svc.AcceptInvitation(asUser(invitee), tokenFrom(t, first)); status(err) != http.StatusGone {
		t.Fatalf("expected 410 for revoked invitation, got %v", err)
	}
	acc, err := svc.AcceptInvitation(asUser(invitee), tokenFrom(t, second))
	if err != nil || acc.Role != team.RoleAdmin {
		t.Fatalf("accept second: %+v %v", acc, err)
	}
	// Admins may invite for the account they joined.
	if _, err := svc.SendInvitation(asUser(invitee), SendInvitationInput{Email: "b@example.com", AccountOwnerID: owner}); err != nil {
		t.Fatalf("admin invite: %v", err)
	}
}

func TestExpiredInvitation(t *testing.T) {
	svc := newTeamService(t, nil)
	owner := uuid.New()
	res, err := svc.SendInvitation(asUser(owner), SendInvitationInput{Email: "late@example.com"})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	later := time.Now().UTC().Add(InvitationTTL + time.Hour)
	svc.now = func() time.Time { return later }
	if _, err := svc.AcceptInvitation(asUser(uuid.New()), tokenFrom(t, res)); status(err) != http.StatusGone {
		t.Fatalf("expected 410, got %v", err)
	}
}

func TestInvitationEmailHidesLink(t *testing.T) {
	client := &fakeResend{}
	svc := newTeamService(t, client)
	res, err := svc.SendInvitation(asRole(uuid.New(), "authenticated", "owner@example.com"), SendInvitationInput{Email: "c@example.com"})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if !res.EmailSent || res.AcceptURL != "" {
		t.Fatalf("expected emailed invitation without link, got %+v", res)
	}
	if sent := client.sent(); len(sent) != 1 || sent[0].To[0] != "c@example.com" {
		t.Fatalf("unexpected email %+v", sent)
	}
}
