package team

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/team"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
)

func TestInvitationRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewInvitationRepo(db, testutil.Logger(t))

	owner := uuid.New()
	first := &types.Invitation{
		AccountOwnerID: owner,
		InvitedByID:    owner,
		Email:          "new@example.com",
		Role:           team.RoleMember,
		TokenHash:      "hash-1",
		ExpiresAt:      time.Now().UTC().Add(time.Hour),
	}
	if _, err := repo.Create(dbc, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	n, err := repo.RevokePending(dbc, owner, "new@example.com")
	if err != nil || n != 1 {
		t.Fatalf("RevokePending: n=%d err=%v", n, err)
	}

	second := &types.Invitation{
		AccountOwnerID: owner,
		InvitedByID:    owner,
		Email:          "new@example.com",
		Role:           team.RoleAdmin,
		TokenHash:      "hash-2",
		ExpiresAt:      time.Now().UTC().Add(time.Hour),
	}
	if _, err := repo.Create(dbc, second); err != nil {
		t.Fatalf("Create second: %v", err)
	}

	got, err := repo.GetByTokenHash(dbc, "hash-2")
	if err != nil || got == nil || got.ID != second.ID {
		t.Fatalf("GetByTokenHash: got=%v err=%v", got, err)
	}
	if missing, _ := repo.GetByTokenHash(dbc, "nope"); missing != nil {
		t.Fatalf("GetByTokenHash: expected nil for unknown hash")
	}

	member := uuid.New()
	ok, err := repo.MarkAccepted(dbc, second.ID, member, time.Now().UTC())
	if err != nil || !ok {
		t.Fatalf("MarkAccepted: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkAccepted(dbc, second.ID, member, time.Now().UTC())
	if err != nil || ok {
		t.Fatalf("MarkAccepted twice: ok=%v err=%v", ok, err)
	}
}

func TestTeamMemberRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewTeamMemberRepo(db, testutil.Logger(t))

	owner, member := uuid.New(), uuid.New()
	if err := repo.Upsert(dbc, &types.TeamMember{OwnerUserID: owner, MemberUserID: member, Role: team.RoleMember}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, &types.TeamMember{OwnerUserID: owner, MemberUserID: member, Role: team.RoleAdmin}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	rows, err := repo.ListByOwner(dbc, owner)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(rows) != 1 || rows[0].Role != team.RoleAdmin {
		t.Fatalf("expected one admin membership, got %v", rows)
	}
}
