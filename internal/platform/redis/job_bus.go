package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

// JobBus fans job events out over pub/sub so any instance can stream them.
type JobBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewJobBus(log *logger.Logger, rdb *goredis.Client, prefix string) *JobBus {
	return &JobBus{
		log:     log.With("service", "RedisJobBus"),
		rdb:     rdb,
		channel: key(prefix, "job_events"),
	}
}

func (b *JobBus) Publish(ctx context.Context, msg any) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis job bus not initialized")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}
