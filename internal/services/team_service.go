package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/txn"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/team"
	"github.com/yungbote/leadchat-backend/internal/pkg/apierr"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services/emailtpl"
)

const InvitationTTL = 7 * 24 * time.Hour

type SendInvitationInput struct {
	Email string
	Role  string
	// AccountOwnerID defaults to the caller's own account.
	AccountOwnerID uuid.UUID
}

type InvitationResult struct {
	Invitation *types.Invitation `json:"invitation"`
	EmailSent  bool              `json:"emailSent"`
	// AcceptURL is only returned when the email could not be sent.
	AcceptURL string `json:"acceptUrl,omitempty"`
}

type AcceptResult struct {
	AccountOwnerID  uuid.UUID `json:"accountOwnerId"`
	Role            string    `json:"role"`
	AlreadyAccepted bool      `json:"alreadyAccepted,omitempty"`
}

type TeamService interface {
	SendInvitation(dbc dbctx.Context, in SendInvitationInput) (*InvitationResult, error)
	AcceptInvitation(dbc dbctx.Context, token string) (*AcceptResult, error)
}

type teamService struct {
	log         *logger.Logger
	runner      txn.Runner
	invitations repos.InvitationRepo
	members     repos.TeamMemberRepo
	email       EmailService
	appBaseURL  string
	now         func() time.Time
}

func NewTeamService(
	baseLog *logger.Logger,
	runner txn.Runner,
	invitations repos.InvitationRepo,
	members repos.TeamMemberRepo,
	email EmailService,
	appBaseURL string,
) TeamService {
	return &teamService{
		log:         baseLog.With("service", "TeamService"),
		runner:      runner,
		invitations: invitations,
		members:     members,
		email:       email,
		appBaseURL:  strings.TrimRight(appBaseURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *teamService) SendInvitation(dbc dbctx.Context, in SendInvitationInput) (*InvitationResult, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, apierr.BadRequest("invalid_email", "a valid email is required")
	}
	emailAddr := strings.ToLower(addr.Address)
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = team.RoleMember
	}
	if !team.ValidRole(role) {
		return nil, apierr.BadRequest("invalid_role", "role must be admin or member")
	}

	ownerID := in.AccountOwnerID
	if ownerID == uuid.Nil {
		ownerID = rd.UserID
	}
	callerRole, err := accountRole(dbc, s.members, ownerID, rd.UserID)
	if err != nil {
		return nil, err
	}
	if !canAdminister(callerRole) {
		return nil, apierr.Forbidden("forbidden", "only the account owner or an admin can invite")
	}
	if rd.Email != "" && strings.EqualFold(rd.Email, emailAddr) && ownerID == rd.UserID {
		return nil, apierr.BadRequest("invalid_email", "you cannot invite yourself")
	}

	token, hash, err := newInvitationToken()
	if err != nil {
		return nil, err
	}
	inv := &types.Invitation{
		AccountOwnerID: ownerID,
		InvitedByID:    rd.UserID,
		Email:          emailAddr,
		Role:           role,
		TokenHash:      hash,
		Status:         team.InvitationPending,
		ExpiresAt:      s.now().Add(InvitationTTL),
	}
	err = s.runner.InTx(dbc.Ctx, func(tx dbctx.Context) error {
		if _, err := s.invitations.RevokePending(tx, ownerID, emailAddr); err != nil {
			return fmt.Errorf("revoke previous invitations: %w", err)
		}
		if _, err := s.invitations.Create(tx, inv); err != nil {
			return fmt.Errorf("create invitation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	acceptURL := s.appBaseURL + "/accept-invite?token=" + url.QueryEscape(token)
	out := &InvitationResult{Invitation: inv}
	if s.email != nil {
		_, sendErr := s.email.Deliver(dbc.Ctx, SendEmailInput{
			To:       emailAddr,
			Template: emailtpl.TeamInvitation,
			Data: map[string]any{
				"inviter_email": rd.Email,
				"role":          role,
				"accept_url":    acceptURL,
				"expires_at":    inv.ExpiresAt.Format("January 2, 2006"),
			},
		})
		if sendErr != nil {
			s.log.Warn("Invitation email not sent", "invitation_id", inv.ID, "error", sendErr)
		} else {
			out.EmailSent = true
		}
	}
	if !out.EmailSent {
		out.AcceptURL = acceptURL
	}
	s.log.Info("Team invitation created", "invitation_id", inv.ID, "owner_user_id", ownerID, "role", role)
	return out, nil
}

func (s *teamService) AcceptInvitation(dbc dbctx.Context, token string) (*AcceptResult, error) {
	rd, err := requireUser(dbc)
	if err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierr.BadRequest("missing_token", "token is required")
	}
	inv, err := s.invitations.GetByTokenHash(dbc, hashToken(token))
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apierr.NotFound("invitation_not_found", "invitation not found")
	}

	switch inv.Status {
	case team.InvitationAccepted:
		return s.alreadyAccepted(inv, rd.UserID)
	case team.InvitationRevoked:
		return nil, apierr.New(http.StatusGone, "invitation_revoked", fmt.Errorf("invitation has been revoked"))
	case team.InvitationExpired:
		return nil, apierr.New(http.StatusGone, "invitation_expired", fmt.Errorf("invitation has expired"))
	}
	now := s.now()
	if inv.Expired(now) {
		if err := s.invitations.MarkExpired(dbc, inv.ID); err != nil {
			s.log.Warn("Failed to mark invitation expired", "invitation_id", inv.ID, "error", err)
		}
		return nil, apierr.New(http.StatusGone, "invitation_expired", fmt.Errorf("invitation has expired"))
	}
	if rd.Email != "" && !strings.EqualFold(rd.Email, inv.Email) {
		return nil, apierr.Forbidden("email_mismatch", "invitation was sent to a different email address")
	}
	if rd.UserID == inv.AccountOwnerID {
		return nil, apierr.BadRequest("invalid_invitation", "account owners cannot join their own team")
	}

	accepted := false
	err = s.runner.InTx(dbc.Ctx, func(tx dbctx.Context) error {
		ok, err := s.invitations.MarkAccepted(tx, inv.ID, rd.UserID, now)
		if err != nil || !ok {
			return err
		}
		accepted = true
		return s.members.Upsert(tx, &types.TeamMember{
			OwnerUserID:  inv.AccountOwnerID,
			MemberUserID: rd.UserID,
			Role:         inv.Role,
		})
	})
	if err != nil {
		return nil, err
	}
	if !accepted {
		// Lost a race with a concurrent accept; report what won.
		fresh, err := s.invitations.GetByTokenHash(dbc, inv.TokenHash)
		if err != nil {
			return nil, err
		}
		if fresh != nil && fresh.Status == team.InvitationAccepted {
			return s.alreadyAccepted(fresh, rd.UserID)
		}
		return nil, apierr.New(http.StatusGone, "invitation_unavailable", fmt.Errorf("invitation is no longer pending"))
	}
	s.log.Info("Team invitation accepted", "invitation_id", inv.ID, "owner_user_id", inv.AccountOwnerID, "member_user_id", rd.UserID)
	return &AcceptResult{AccountOwnerID: inv.AccountOwnerID, Role: inv.Role}, nil
}

func (s *teamService) alreadyAccepted(inv *types.Invitation, userID uuid.UUID) (*AcceptResult, error) {
	if inv.AcceptedByID != nil && *inv.AcceptedByID == userID {
		return &AcceptResult{AccountOwnerID: inv.AccountOwnerID, Role: inv.Role, AlreadyAccepted: true}, nil
	}
	return nil, apierr.New(http.StatusGone, "invitation_used", fmt.Errorf("invitation has already been used"))
}

func newInvitationToken() (string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
