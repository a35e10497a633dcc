package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// WindowCounter is a fixed-window counter shared by every instance.
type WindowCounter struct {
	rdb    *goredis.Client
	prefix string
}

func NewWindowCounter(rdb *goredis.Client, prefix string) *WindowCounter {
	return &WindowCounter{rdb: rdb, prefix: prefix}
}

// Incr bumps the counter for id and returns the new count. The window starts
// with the first hit and expires after window.
func (c *WindowCounter) Incr(ctx context.Context, scope, id string, window time.Duration) (int64, error) {
	k := key(c.prefix, "rl", scope, id)
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
