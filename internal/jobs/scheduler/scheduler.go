package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	"github.com/yungbote/leadchat-backend/internal/jobs/pipeline/sitemap_batch"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type Config struct {
	ResumeSpec  string
	CleanupSpec string
	BillingSpec string
	// WordPressSpec drives the incremental sync of active WordPress connections.
	WordPressSpec string
	// BillingEnabled is false when Stripe is not configured.
	BillingEnabled bool
	ResumeLimit    int
}

func (c Config) withDefaults() Config {
	if c.ResumeSpec == "" {
		c.ResumeSpec = "@every 1m"
	}
	if c.CleanupSpec == "" {
		c.CleanupSpec = "@hourly"
	}
	if c.BillingSpec == "" {
		c.BillingSpec = "@every 6h"
	}
	if c.WordPressSpec == "" {
		c.WordPressSpec = "@every 30m"
	}
	if c.ResumeLimit <= 0 {
		c.ResumeLimit = 100
	}
	return c
}

// Scheduler enqueues periodic maintenance jobs. It never runs work itself;
// the worker pool picks the jobs up.
type Scheduler struct {
	log     *logger.Logger
	cron    *cron.Cron
	sources repos.KnowledgeSourceRepo
	jobs    services.JobService
	cfg     Config
}

func New(baseLog *logger.Logger, sources repos.KnowledgeSourceRepo, jobs services.JobService, cfg Config) *Scheduler {
	return &Scheduler{
		log:     baseLog.With("component", "JobScheduler"),
		cron:    cron.New(),
		sources: sources,
		jobs:    jobs,
		cfg:     cfg.withDefaults(),
	}
}

type task struct {
	name string
	spec string
	fn   func(context.Context) error
}

func (s *Scheduler) Start(ctx context.Context) error {
	entries := []task{
		{"resume_batches", s.cfg.ResumeSpec, func(ctx context.Context) error { _, err := s.ResumeBatches(ctx); return err }},
		{"orphan_cleanup", s.cfg.CleanupSpec, s.EnqueueOrphanCleanup},
		{"wordpress_sync", s.cfg.WordPressSpec, s.EnqueueWordPressSync},
	}
	if s.cfg.BillingEnabled {
		entries = append(entries, task{"billing_sync", s.cfg.BillingSpec, s.EnqueueBillingSync})
	}
	for _, e := range entries {
		e := e
		if err := s.cron.AddFunc(e.spec, func() {
			if err := e.fn(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("Scheduled task failed", "task", e.name, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", e.name, e.spec, err)
		}
	}
	s.cron.Start()
	s.log.Info("Job scheduler started", "tasks", len(entries))
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// ResumeBatches enqueues a sitemap_batch job for every in-flight sitemap
// parent that has no queued or running batch job. It returns how many were
// enqueued.
func (s *Scheduler) ResumeBatches(ctx context.Context) (int, error) {
	parents, err := s.sources.ListInFlightParents(dbctx.Of(ctx), s.cfg.ResumeLimit)
	if err != nil {
		return 0, fmt.Errorf("list in-flight parents: %w", err)
	}
	resumed := 0
	for _, parent := range parents {
		if parent == nil || parent.BatchID == nil {
			continue
		}
		pid := parent.ID
		_, created, err := s.jobs.EnqueueIfIdle(
			dbctx.Of(ctx),
			parent.OwnerUserID,
			services.JobTypeSitemapBatch,
			services.EntityKnowledgeSource,
			&pid,
			sitemap_batch.Payload(parent.ID, *parent.BatchID),
		)
		if err != nil {
			return resumed, fmt.Errorf("resume batch for %s: %w", parent.ID, err)
		}
		if created {
			resumed++
			s.log.Info("Resumed stalled sitemap batch", "parent_id", parent.ID, "batch_id", *parent.BatchID)
		}
	}
	return resumed, nil
}

func (s *Scheduler) EnqueueOrphanCleanup(ctx context.Context) error {
	return s.enqueueSingleton(ctx, services.JobTypeOrphanCleanup)
}

func (s *Scheduler) EnqueueBillingSync(ctx context.Context) error {
	return s.enqueueSingleton(ctx, services.JobTypeBillingSync)
}

func (s *Scheduler) EnqueueWordPressSync(ctx context.Context) error {
	return s.enqueueSingleton(ctx, services.JobTypeWordPressSync)
}

// enqueueSingleton queues a system job unless one of the same type is
// already queued or running.
func (s *Scheduler) enqueueSingleton(ctx context.Context, jobType string) error {
	_, _, err := s.jobs.EnqueueIfIdle(dbctx.Of(ctx), uuid.Nil, jobType, "", nil, map[string]any{
		"scheduled_at": time.Now().UTC().Format(time.RFC3339),
	})
	return err
}
