package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/data/repos/testutil"
	"github.com/yungbote/leadchat-backend/internal/platform/webpush"
)

type fakeSender struct{}

func (fakeSender) Send(ctx context.Context, sub webpush.Subscription, payload []byte) (int, error) {
	switch {
	case strings.Contains(sub.Endpoint, "gone"):
		return 410, &webpush.HTTPError{StatusCode: http.StatusGone}
	case strings.Contains(sub.Endpoint, "flaky"):
		return 500, &webpush.HTTPError{StatusCode: http.StatusInternalServerError}
	}
	return 201, nil
}

func TestPushFanOutRemovesGoneSubscriptions(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewPushService(log, repos.NewPushSubscriptionRepo(db, log), fakeSender{})
	user := uuid.New()

	for _, ep := range []string{"https://push.test/ok", "https://push.test/gone", "https://push.test/flaky"} {
		if _, err := svc.Subscribe(asUser(user), SubscribeInput{Endpoint: ep, P256dh: "key", Auth: "auth"}); err != nil {
			t.Fatalf("Subscribe %s: %v", ep, err)
		}
	}
	// Re-subscribing the same endpoint updates in place.
	if _, err := svc.Subscribe(asUser(user), SubscribeInput{Endpoint: "https://push.test/ok", P256dh: "key2", Auth: "auth2"}); err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}

	res, err := svc.Notify(asUser(user), PushMessage{Title: "New lead", Body: "Dana"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if res.Sent != 1 || res.Failed != 1 || res.Removed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = svc.SendToUser(context.Background(), PushMessage{UserID: user, Title: "Again"})
	if err != nil || res.Sent+res.Failed != 2 || res.Removed != 0 {
		t.Fatalf("expected 2 remaining subscriptions, got %+v %v", res, err)
	}

	removed, err := svc.Unsubscribe(asUser(user), "https://push.test/flaky")
	if err != nil || !removed {
		t.Fatalf("Unsubscribe: %v %v", removed, err)
	}
}

func TestPushNotifyAuthorization(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewPushService(log, repos.NewPushSubscriptionRepo(db, log), fakeSender{})
	caller, other := uuid.New(), uuid.New()

	if _, err := svc.Notify(asUser(caller), PushMessage{UserID: other, Title: "hi"}); status(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	res, err := svc.Notify(asRole(caller, PlatformRoleAdmin, ""), PushMessage{UserID: other, Title: "hi"})
	if err != nil || res.Sent != 0 {
		t.Fatalf("admin notify: %+v %v", res, err)
	}
	if _, err := svc.Notify(asUser(caller), PushMessage{}); status(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 without title, got %v", err)
	}
	if _, err := svc.Subscribe(asUser(caller), SubscribeInput{Endpoint: "ftp://x", P256dh: "k", Auth: "a"}); status(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad endpoint, got %v", err)
	}

	unconfigured := NewPushService(log, repos.NewPushSubscriptionRepo(db, log), nil)
	if _, err := unconfigured.SendToUser(context.Background(), PushMessage{UserID: caller, Title: "x"}); !IsNotConfigured(err) {
		t.Fatalf("expected feature_not_configured, got %v", err)
	}
}
