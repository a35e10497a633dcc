package embedder

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type fakeEmbedder struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
	calls    int32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	f.mu.Lock()
	if n > f.peak {
		f.peak = n
	}
	f.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&f.inFlight, -1)
	if strings.HasPrefix(text, "bad") {
		return nil, errors.New("upstream 500")
	}
	return []float32{float32(len(text)), 1, 2, 3}, nil
}

type fakeClient struct{}

func (fakeClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return [][]float32{{1, 2, 3, 4, 5, 6}}, nil
}
func (fakeClient) Model() string { return "fake" }

func TestEmbedAllNilsFailedSlots(t *testing.T) {
	f := &fakeEmbedder{}
	b := NewBatcher(logger.Nop(), f, 5, 0)
	texts := []string{"a", "bb", "bad one", "cccc", "ddddd", "bad two", "e"}
	out, err := b.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(out) != len(texts) {
		t.Fatalf("expected %d slots, got %d", len(texts), len(out))
	}
	for i, text := range texts {
		if strings.HasPrefix(text, "bad") {
			if out[i] != nil {
				t.Fatalf("slot %d should be nil", i)
			}
			continue
		}
		if out[i] == nil || out[i][0] != float32(len(text)) {
			t.Fatalf("slot %d holds the wrong vector: %v", i, out[i])
		}
	}
	if f.peak > 5 {
		t.Fatalf("wave size exceeded: peak %d", f.peak)
	}
	if f.calls != int32(len(texts)) {
		t.Fatalf("expected one call per text, got %d", f.calls)
	}
}

func TestEmbedAllPacesWaves(t *testing.T) {
	b := NewBatcher(logger.Nop(), &fakeEmbedder{}, 2, 40*time.Millisecond)
	start := time.Now()
	if _, err := b.EmbedAll(context.Background(), []string{"a", "b", "c", "d", "e"}); err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	// three waves means at least two pauses
	if elapsed := time.Since(start); elapsed < 75*time.Millisecond {
		t.Fatalf("waves were not paced: %s", elapsed)
	}
}

type slowEmbedder struct {
	mu     sync.Mutex
	starts []time.Time
	ends   []time.Time
}

func (s *slowEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.starts = append(s.starts, time.Now())
	s.mu.Unlock()
	time.Sleep(30 * time.Millisecond)
	s.mu.Lock()
	s.ends = append(s.ends, time.Now())
	s.mu.Unlock()
	return []float32{1}, nil
}

func TestEmbedAllPausesAfterSlowWave(t *testing.T) {
	emb := &slowEmbedder{}
	b := NewBatcher(logger.Nop(), emb, 1, 20*time.Millisecond)
	if _, err := b.EmbedAll(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("EmbedAll: %v", err)
	}
	if len(emb.starts) != 2 {
		t.Fatalf("expected two waves, got %d", len(emb.starts))
	}
	// The first wave outlasts the delay, the pause must still follow it.
	if gap := emb.starts[1].Sub(emb.ends[0]); gap < 20*time.Millisecond {
		t.Fatalf("second wave started %s after the first finished", gap)
	}
}

func TestEmbedAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBatcher(logger.Nop(), &fakeEmbedder{}, 5, 0)
	if _, err := b.EmbedAll(ctx, []string{"a"}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestFromClientTruncates(t *testing.T) {
	e := FromClient(fakeClient{}, 4)
	v, err := e.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(v) != 4 || v[3] != 4 {
		t.Fatalf("unexpected truncation %v", v)
	}
	if got := Truncate([]float32{1, 2}, 8); len(got) != 2 {
		t.Fatalf("short vectors must be kept as-is")
	}
}
