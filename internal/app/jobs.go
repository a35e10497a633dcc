package app

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/leadchat-backend/internal/data/txn"
	"github.com/yungbote/leadchat-backend/internal/ingestion/embedder"
	"github.com/yungbote/leadchat-backend/internal/ingestion/fetch"
	ingest "github.com/yungbote/leadchat-backend/internal/ingestion/pipeline"
	"github.com/yungbote/leadchat-backend/internal/ingestion/sitemap"
	"github.com/yungbote/leadchat-backend/internal/jobs/pipeline/billing_sync"
	"github.com/yungbote/leadchat-backend/internal/jobs/pipeline/knowledge_orphan_cleanup"
	"github.com/yungbote/leadchat-backend/internal/jobs/pipeline/knowledge_source_process"
	"github.com/yungbote/leadchat-backend/internal/jobs/pipeline/sitemap_batch"
	"github.com/yungbote/leadchat-backend/internal/jobs/pipeline/sitemap_expand"
	"github.com/yungbote/leadchat-backend/internal/jobs/pipeline/wordpress_sync"
	"github.com/yungbote/leadchat-backend/internal/jobs/runtime"
	"github.com/yungbote/leadchat-backend/internal/jobs/scheduler"
	"github.com/yungbote/leadchat-backend/internal/jobs/worker"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

type Jobs struct {
	Processor *ingest.Processor
	Registry  *runtime.Registry
	Worker    *worker.Worker
	Scheduler *scheduler.Scheduler
}

func wireJobs(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, s Services) (Jobs, error) {
	log.Info("Wiring jobs...")
	fetcher := fetch.New(log, fetch.Config{AllowPDF: true}, nil)

	var batcher *embedder.Batcher
	if c.Embedder != nil {
		batcher = embedder.NewBatcher(log, c.Embedder, embedder.DefaultWaveSize, embedder.DefaultWaveDelay)
	}
	proc := ingest.New(log, ingest.Deps{
		Runner:  txn.NewGormRunner(db),
		Sources: r.KnowledgeSource,
		Chunks:  r.KnowledgeChunk,
		Fetcher: fetcher,
		Walker:  sitemap.NewWalker(log, fetcher),
		Batcher: batcher,
	}, ingest.Config{
		URLsPerBatch:    cfg.URLsPerBatch,
		BatchBudget:     cfg.BatchBudget,
		StallAfter:      cfg.StallAfter,
		Stagger:         250 * time.Millisecond,
		SitemapMaxPages: cfg.SitemapMaxPages,
	})

	registry := runtime.NewRegistry()
	handlers := []runtime.Handler{
		knowledge_source_process.New(log, proc, s.Jobs),
		sitemap_expand.New(log, proc, s.Jobs),
		sitemap_batch.New(log, proc, s.Jobs, cfg.BatchWaitDelay),
		knowledge_orphan_cleanup.New(log, proc),
		wordpress_sync.New(log, s.WordPress),
		billing_sync.New(log, s.Billing),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return Jobs{}, fmt.Errorf("register job handler: %w", err)
		}
	}
	log.Info("Job handlers registered", "types", registry.Types())

	return Jobs{
		Processor: proc,
		Registry:  registry,
		Worker: worker.NewWorker(log, r.JobRun, registry, s.Notifier, worker.Config{
			Concurrency: cfg.WorkerConcurrency,
		}),
		Scheduler: scheduler.New(log, r.KnowledgeSource, s.Jobs, scheduler.Config{
			BillingEnabled: c.Stripe != nil,
		}),
	}, nil
}
