package embedder

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/leadchat-backend/internal/pkg/httpx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/platform/openai"
)

const (
	DefaultWaveSize  = 5
	DefaultWaveDelay = 200 * time.Millisecond
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type clientEmbedder struct {
	client     openai.Client
	dimensions int
}

// FromClient embeds one text per request. dimensions > 0 truncates longer
// vectors to their leading components.
func FromClient(client openai.Client, dimensions int) Embedder {
	return &clientEmbedder{client: client, dimensions: dimensions}
}

func (e *clientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.client.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(out))
	}
	return Truncate(out[0], e.dimensions), nil
}

// Truncate keeps the first dims components without renormalising.
func Truncate(v []float32, dims int) []float32 {
	if dims <= 0 || len(v) <= dims {
		return v
	}
	return v[:dims:dims]
}

type Batcher struct {
	log      *logger.Logger
	emb      Embedder
	waveSize int
	// waveDelay is the pause between the end of one wave and the start of
	// the next.
	waveDelay time.Duration
}

func NewBatcher(log *logger.Logger, emb Embedder, waveSize int, waveDelay time.Duration) *Batcher {
	if waveSize <= 0 {
		waveSize = DefaultWaveSize
	}
	return &Batcher{
		log:       log.With("component", "EmbeddingBatcher"),
		emb:       emb,
		waveSize:  waveSize,
		waveDelay: waveDelay,
	}
}

// EmbedAll returns one vector per text. A failed text leaves a nil slot and
// does not stop the others; only context cancellation aborts.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	failed := 0
	for start := 0; start < len(texts); start += b.waveSize {
		if start > 0 && b.waveDelay > 0 {
			if err := httpx.Sleep(ctx, b.waveDelay); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+b.waveSize, len(texts))
		errs := make([]error, end-start)

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := b.emb.Embed(ctx, texts[i])
				if err != nil {
					errs[i-start] = err
					return nil
				}
				out[i] = vec
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		for j, err := range errs {
			if err != nil {
				failed++
				b.log.Warn("Embedding failed, skipping chunk", "index", start+j, "error", err)
			}
		}
	}
	if failed > 0 {
		b.log.Info("Embedding finished with failures", "total", len(texts), "failed", failed)
	}
	return out, nil
}
