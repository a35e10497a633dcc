package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryLimitsPerKey(t *testing.T) {
	m := NewMemory(3, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := m.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	if ok, _ := m.Allow(ctx, "1.2.3.4"); ok {
		t.Fatalf("4th hit should be limited")
	}
	if ok, _ := m.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatalf("other keys have their own budget")
	}

	// One token refills every window/limit.
	now = now.Add(21 * time.Minute)
	if ok, _ := m.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatalf("expected a refilled token after 21m")
	}
}

func TestMemoryZeroLimitDisables(t *testing.T) {
	m := NewMemory(0, time.Hour)
	for i := 0; i < 100; i++ {
		if ok, _ := m.Allow(context.Background(), "k"); !ok {
			t.Fatalf("limit 0 must allow everything")
		}
	}
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) Incr(ctx context.Context, scope, id string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[scope+"/"+id]++
	return f.counts[scope+"/"+id], nil
}

func TestSharedAndFallback(t *testing.T) {
	ctx := context.Background()
	counter := &fakeCounter{counts: map[string]int64{}}
	shared := NewShared(counter, "lead_form", 2, time.Hour)
	for i := 0; i < 2; i++ {
		if ok, err := shared.Allow(ctx, "ip"); !ok || err != nil {
			t.Fatalf("hit %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := shared.Allow(ctx, "ip"); ok {
		t.Fatalf("3rd hit should be limited")
	}

	counter.err = errors.New("connection refused")
	var reported error
	fb := &Fallback{Primary: shared, Secondary: NewMemory(1, time.Hour), OnError: func(err error) { reported = err }}
	if ok, err := fb.Allow(ctx, "ip"); !ok || err != nil {
		t.Fatalf("fallback should allow first hit: ok=%v err=%v", ok, err)
	}
	if reported == nil {
		t.Fatalf("expected the primary error to be reported")
	}
	if ok, _ := fb.Allow(ctx, "ip"); ok {
		t.Fatalf("fallback budget should be exhausted")
	}
}
