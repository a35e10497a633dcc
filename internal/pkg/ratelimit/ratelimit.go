package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether one more hit for key fits in the current budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Counter is a shared fixed-window counter, e.g. platform/redis.WindowCounter.
type Counter interface {
	Incr(ctx context.Context, scope, id string, window time.Duration) (int64, error)
}

type sharedLimiter struct {
	counter Counter
	scope   string
	limit   int
	window  time.Duration
}

// NewShared counts hits in counter, so every instance sees the same budget.
func NewShared(counter Counter, scope string, limit int, window time.Duration) Limiter {
	return &sharedLimiter{counter: counter, scope: scope, limit: limit, window: window}
}

func (l *sharedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	n, err := l.counter.Incr(ctx, l.scope, key, l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.limit), nil
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-instance token bucket per key. Counts reset on restart.
type Memory struct {
	mu      sync.Mutex
	limit   int
	every   rate.Limit
	window  time.Duration
	entries map[string]*entry
	now     func() time.Time
}

func NewMemory(limit int, window time.Duration) *Memory {
	every := rate.Inf
	if limit > 0 && window > 0 {
		every = rate.Every(window / time.Duration(limit))
	}
	return &Memory{
		limit:   limit,
		every:   every,
		window:  window,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	if m.limit <= 0 {
		return true, nil
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		if len(m.entries) >= 10000 {
			m.pruneLocked(now)
		}
		e = &entry{lim: rate.NewLimiter(m.every, m.limit)}
		m.entries[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1), nil
}

// pruneLocked drops keys idle for a full window; their buckets are full again.
func (m *Memory) pruneLocked(now time.Time) {
	for k, e := range m.entries {
		if now.Sub(e.lastSeen) >= m.window {
			delete(m.entries, k)
		}
	}
}

// Fallback prefers primary and uses secondary while primary errors.
type Fallback struct {
	Primary   Limiter
	Secondary Limiter
	OnError   func(error)
}

func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	if f.Primary != nil {
		ok, err := f.Primary.Allow(ctx, key)
		if err == nil {
			return ok, nil
		}
		if f.OnError != nil {
			f.OnError(err)
		}
	}
	return f.Secondary.Allow(ctx, key)
}
