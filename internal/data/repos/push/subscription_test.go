package push

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
)

func TestPushSubscriptionRepoUpsertByEndpoint(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewPushSubscriptionRepo(db, testutil.Logger(t))

	userA, userB := uuid.New(), uuid.New()
	first, err := repo.Upsert(dbc, &types.PushSubscription{UserID: userA, Endpoint: "https://push.example/1", P256dh: "k1", Auth: "a1"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second, err := repo.Upsert(dbc, &types.PushSubscription{UserID: userB, Endpoint: "https://push.example/1", P256dh: "k2", Auth: "a2"})
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same row, got %v and %v", first.ID, second.ID)
	}
	if second.UserID != userB || second.P256dh != "k2" {
		t.Fatalf("upsert did not refresh the row: %+v", second)
	}

	if rows, _ := repo.ListByUser(dbc, userA); len(rows) != 0 {
		t.Fatalf("expected subscription moved away from user A")
	}
	n, err := repo.DeleteByEndpoint(dbc, userB, "https://push.example/1")
	if err != nil || n != 1 {
		t.Fatalf("DeleteByEndpoint: n=%d err=%v", n, err)
	}
}
