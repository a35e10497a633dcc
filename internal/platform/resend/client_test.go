package resend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

func TestSend(t *testing.T) {
	var got sendWire
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Header.Get("Authorization") != "Bearer re_test" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "re_test", BaseURL: srv.URL, DefaultFromEmail: "noreply@example.com"})
	if err != nil || c == nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Send(context.Background(), SendEmailRequest{To: []string{" a@example.com ", ""}, Subject: "Hi", HTML: "<p>x</p>"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.ID != "msg_123" {
		t.Fatalf("id=%q", res.ID)
	}
	if got.From != "noreply@example.com" || len(got.To) != 1 || got.To[0] != "a@example.com" {
		t.Fatalf("wire=%+v", got)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"bad to"}`))
	}))
	defer srv.Close()

	c, _ := New(logger.Nop(), Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 3})
	_, err := c.Send(context.Background(), SendEmailRequest{From: "a@b.co", To: []string{"x@y.co"}, Subject: "s", Text: "t"})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != 422 || he.Message != "bad to" {
		t.Fatalf("expected typed 422, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestNewWithoutKeyIsNil(t *testing.T) {
	c, err := New(logger.Nop(), Config{})
	if err != nil || c != nil {
		t.Fatalf("expected nil client, got %v %v", c, err)
	}
}

func TestVerifier(t *testing.T) {
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
	v, err := NewVerifier(secret, 0)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	v.now = func() time.Time { return now }

	body := []byte(`{"type":"email.delivered"}`)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := v.Sign("msg_1", ts, body)

	h := http.Header{}
	h.Set("svix-id", "msg_1")
	h.Set("svix-timestamp", ts)
	h.Set("svix-signature", "v1,bogus v1,"+sig)
	if err := v.Verify(h, body); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if err := v.Verify(h, []byte(`{"type":"email.bounced"}`)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("tampered body: %v", err)
	}

	old := h.Clone()
	old.Set("svix-timestamp", strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10))
	if err := v.Verify(old, body); !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("stale timestamp: %v", err)
	}

	missing := http.Header{}
	if err := v.Verify(missing, body); !errors.Is(err, ErrMissingHeaders) {
		t.Fatalf("missing headers: %v", err)
	}
}
