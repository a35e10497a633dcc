package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/platform/resend"
	"github.com/yungbote/leadchat-backend/internal/services/emailtpl"
)

func asUser(userID uuid.UUID) dbctx.Context {
	return dbctx.Of(ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID}))
}

func asRole(userID uuid.UUID, role, email string) dbctx.Context {
	return dbctx.Of(ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID, Role: role, Email: email}))
}

type fakeResend struct {
	mu   sync.Mutex
	reqs []resend.SendEmailRequest
	err  error
}

func (f *fakeResend) Send(ctx context.Context, req resend.SendEmailRequest) (*resend.SendEmailResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResult{StatusCode: 200, ID: fmt.Sprintf("msg_%d", len(f.reqs))}, nil
}

func (f *fakeResend) sent() []resend.SendEmailRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]resend.SendEmailRequest(nil), f.reqs...)
}

func newEmailService(t *testing.T, db *gorm.DB, client resend.Client, verifier *resend.Verifier) EmailService {
	t.Helper()
	log := testutil.Logger(t)
	tpl, err := emailtpl.New()
	if err != nil {
		t.Fatalf("emailtpl.New: %v", err)
	}
	return NewEmailService(log, repos.NewEmailLogRepo(db, log), repos.NewEmailEventRepo(db, log), client, verifier, tpl)
}
