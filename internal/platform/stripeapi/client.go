package stripeapi

import (
	"context"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/yungbote/leadchat-backend/internal/pkg/envutil"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type Config struct {
	SecretKey string
	// BaseURL overrides the API host; empty means api.stripe.com.
	BaseURL string
	Timeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		SecretKey: envutil.String("STRIPE_SECRET_KEY", ""),
		BaseURL:   envutil.String("STRIPE_API_BASE", ""),
		Timeout:   envutil.Seconds("STRIPE_TIMEOUT_SECONDS", 30*time.Second),
	}
}

type Client interface {
	// EachSubscription walks every subscription in the account, any status,
	// with the customer expanded. Returning an error from fn stops the walk.
	EachSubscription(ctx context.Context, fn func(*stripe.Subscription) error) error
}

type stripeClient struct {
	log *logger.Logger
	api *client.API
}

// New returns nil when no secret key is configured.
func New(log *logger.Logger, cfg Config, httpClient *http.Client) Client {
	if cfg.SecretKey == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	bc := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     &leveledLogger{log: log},
	}
	if cfg.BaseURL != "" {
		bc.URL = stripe.String(cfg.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, bc)
	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &stripeClient{log: log.With("client", "StripeClient"), api: api}
}

func (c *stripeClient) EachSubscription(ctx context.Context, fn func(*stripe.Subscription) error) error {
	params := &stripe.SubscriptionListParams{Status: stripe.String("all")}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.customer")

	it := c.api.Subscriptions.List(params)
	for it.Next() {
		if err := fn(it.Subscription()); err != nil {
			return err
		}
	}
	return it.Err()
}

// leveledLogger routes stripe-go's logging through zap.
type leveledLogger struct {
	log *logger.Logger
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) {
	l.log.SugaredLogger.Debugf(format, v...)
}
func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.log.SugaredLogger.Debugf(format, v...)
}
func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.log.SugaredLogger.Warnf(format, v...)
}
func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.log.SugaredLogger.Errorf(format, v...)
}
