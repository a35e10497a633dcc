package webpush

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	wp "github.com/SherClockHolmes/webpush-go"

	"github.com/yungbote/leadchat-backend/internal/pkg/envutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/httpx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type Config struct {
	PublicKey  string
	PrivateKey string
	Subject    string
	TTL        int
	Timeout    time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		PublicKey:  envutil.String("VAPID_PUBLIC_KEY", ""),
		PrivateKey: envutil.String("VAPID_PRIVATE_KEY", ""),
		Subject:    envutil.String("VAPID_SUBJECT", "mailto:support@leadchat.app"),
		TTL:        envutil.Int("WEBPUSH_TTL_SECONDS", 86400),
		Timeout:    envutil.Seconds("WEBPUSH_TIMEOUT_SECONDS", 10*time.Second),
	}
}

type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string
}

type Sender interface {
	// Send delivers one encrypted payload and returns the push service status.
	Send(ctx context.Context, sub Subscription, payload []byte) (int, error)
}

// HTTPError is a non-2xx answer from a push service. 404 and 410 mean the
// subscription is gone for good.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("webpush http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func (e *HTTPError) Gone() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

type sender struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// New returns nil, nil when VAPID keys are not configured.
func New(log *logger.Logger, cfg Config, httpClient *http.Client) (Sender, error) {
	if strings.TrimSpace(cfg.PublicKey) == "" || strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 86400
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &sender{
		log:        log.With("client", "WebPushSender"),
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

func (s *sender) Send(ctx context.Context, sub Subscription, payload []byte) (int, error) {
	resp, err := wp.SendNotificationWithContext(ctx, payload, &wp.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     wp.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &wp.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             s.cfg.TTL,
		Urgency:         wp.UrgencyHigh,
	})
	if err != nil {
		return 0, err
	}
	body, _ := httpx.ReadLimited(resp.Body, 4096)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.StatusCode, nil
}
