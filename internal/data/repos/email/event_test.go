package email

import (
	"context"
	"testing"

	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
)

func TestEmailEventRepoAppendIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	logs := NewEmailLogRepo(db, testutil.Logger(t))
	events := NewEmailEventRepo(db, testutil.Logger(t))

	entry, err := logs.Create(dbc, &types.EmailLog{ProviderID: "re_1", To: "a@example.com", Subject: "hi"})
	if err != nil {
		t.Fatalf("Create log: %v", err)
	}
	if got, _ := logs.GetByProviderID(dbc, "re_1"); got == nil || got.ID != entry.ID {
		t.Fatalf("GetByProviderID: got %v", got)
	}

	ev := &types.EmailEvent{EmailLogID: &entry.ID, ProviderID: "re_1", MessageID: "msg_1", Type: "email.delivered"}
	inserted, err := events.Append(dbc, ev)
	if err != nil || !inserted {
		t.Fatalf("Append: inserted=%v err=%v", inserted, err)
	}
	dup := &types.EmailEvent{EmailLogID: &entry.ID, ProviderID: "re_1", MessageID: "msg_1", Type: "email.delivered"}
	inserted, err = events.Append(dbc, dup)
	if err != nil || inserted {
		t.Fatalf("Append redelivery: inserted=%v err=%v", inserted, err)
	}
}
