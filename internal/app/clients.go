package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/leadchat-backend/internal/ingestion/embedder"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/platform/openai"
	"github.com/yungbote/leadchat-backend/internal/platform/redis"
	"github.com/yungbote/leadchat-backend/internal/platform/resend"
	"github.com/yungbote/leadchat-backend/internal/platform/stripeapi"
	"github.com/yungbote/leadchat-backend/internal/platform/webpush"
	"github.com/yungbote/leadchat-backend/internal/platform/wordpress"
)

// Clients holds the outbound integrations. Every optional one is nil when
// its credentials are missing.
type Clients struct {
	Redis       *goredis.Client
	RedisPrefix string
	Embedder    embedder.Embedder
	Resend      resend.Client
	Verifier    *resend.Verifier
	WebPush     webpush.Sender
	WordPress   wordpress.Client
	Stripe      stripeapi.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	rcfg := redis.ConfigFromEnv()
	rdb, err := redis.Connect(ctx, log, rcfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	out.Redis, out.RedisPrefix = rdb, rcfg.Prefix

	// Embeddings
	oai, err := openai.New(log, openai.ConfigFromEnv())
	if err != nil {
		log.Warn("Embeddings disabled", "error", err)
	} else {
		out.Embedder = embedder.FromClient(oai, cfg.EmbeddingDimensions)
	}

	// Resend
	out.Resend, err = resend.New(log, resend.ConfigFromEnv())
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init resend: %w", err)
	}
	if cfg.WebhookSecret != "" {
		out.Verifier, err = resend.NewVerifier(cfg.WebhookSecret, cfg.WebhookTolerance)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init resend webhook verifier: %w", err)
		}
	}

	// Web push
	out.WebPush, err = webpush.New(log, webpush.ConfigFromEnv(), nil)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init webpush: %w", err)
	}

	out.WordPress = wordpress.New(log, wordpress.ConfigFromEnv(), nil)
	out.Stripe = stripeapi.New(log, stripeapi.ConfigFromEnv(), nil)

	log.Info("Clients ready",
		"redis", out.Redis != nil,
		"embeddings", out.Embedder != nil,
		"resend", out.Resend != nil,
		"webpush", out.WebPush != nil,
		"stripe", out.Stripe != nil,
	)
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
