package webpush

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	wp "github.com/SherClockHolmes/webpush-go"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

func testSubscription(t *testing.T, endpoint string) Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatalf("auth secret: %v", err)
	}
	return Subscription{
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func TestSend(t *testing.T) {
	priv, pub, err := wp.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("GenerateVAPIDKeys: %v", err)
	}
	status := http.StatusCreated
	var gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEncoding = r.Header.Get("Content-Encoding")
		w.WriteHeader(status)
	}))
	defer srv.Close()

	s, err := New(logger.Nop(), Config{PublicKey: pub, PrivateKey: priv, Subject: "mailto:ops@example.com"}, srv.Client())
	if err != nil || s == nil {
		t.Fatalf("New: %v", err)
	}
	sub := testSubscription(t, srv.URL+"/push/abc")

	code, err := s.Send(context.Background(), sub, []byte(`{"title":"hi"}`))
	if err != nil || code != http.StatusCreated {
		t.Fatalf("Send: code=%d err=%v", code, err)
	}
	if gotEncoding != "aes128gcm" {
		t.Fatalf("expected encrypted payload, got Content-Encoding %q", gotEncoding)
	}

	status = http.StatusGone
	code, err = s.Send(context.Background(), sub, []byte(`{}`))
	var he *HTTPError
	if !errors.As(err, &he) || !he.Gone() || code != http.StatusGone {
		t.Fatalf("expected gone error, got code=%d err=%v", code, err)
	}
}

func TestNewWithoutKeys(t *testing.T) {
	s, err := New(logger.Nop(), Config{}, nil)
	if s != nil || err != nil {
		t.Fatalf("expected nil sender, got %v %v", s, err)
	}
}
