package stripeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

func TestEachSubscriptionPages(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/v1/subscriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("status") != "all" {
			t.Errorf("expected status=all, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("starting_after") == "" {
			_, _ = w.Write([]byte(`{"object":"list","url":"/v1/subscriptions","has_more":true,"data":[{"id":"sub_1","object":"subscription","status":"active","customer":{"id":"cus_1","object":"customer","metadata":{"user_id":"u1"}}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","url":"/v1/subscriptions","has_more":false,"data":[{"id":"sub_2","object":"subscription","status":"canceled","customer":"cus_2"}]}`))
	}))
	defer srv.Close()

	c := New(logger.Nop(), Config{SecretKey: "sk_test_123", BaseURL: srv.URL}, srv.Client())
	var ids []string
	err := c.EachSubscription(context.Background(), func(s *stripe.Subscription) error {
		ids = append(ids, s.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("EachSubscription: %v", err)
	}
	if len(ids) != 2 || ids[0] != "sub_1" || ids[1] != "sub_2" || calls != 2 {
		t.Fatalf("ids=%v calls=%d", ids, calls)
	}
}

func TestNewWithoutKeyIsNil(t *testing.T) {
	if c := New(logger.Nop(), Config{}, nil); c != nil {
		t.Fatalf("expected nil client")
	}
}
