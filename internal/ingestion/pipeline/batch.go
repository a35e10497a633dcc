package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/knowledge"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/httpx"
)

type Decision string

const (
	// DecisionContinue means pending children remain; run again right away.
	DecisionContinue Decision = "continue"
	// DecisionWait means nothing is pending but children are still being
	// processed elsewhere; recheck later.
	DecisionWait     Decision = "wait"
	DecisionComplete Decision = "complete"
)

type BatchOutcome struct {
	Decision  Decision            `json:"decision"`
	Progress  types.BatchProgress `json:"progress"`
	Reaped    int                 `json:"reaped"`
	Claimed   int                 `json:"claimed"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Duration  time.Duration       `json:"duration"`
}

// RunBatch advances one sitemap batch: reap stalled children, claim and
// process up to URLsPerBatch pending ones within the wall-clock budget, then
// recount from the store and decide what happens next.
func (p *Processor) RunBatch(ctx context.Context, batchID, parentID uuid.UUID) (*BatchOutcome, error) {
	start := time.Now()
	deadline := start.Add(p.cfg.BatchBudget)
	log := p.log.With("batch_id", batchID, "parent_id", parentID)

	parent, err := p.deps.Sources.GetByID(dbctx.Of(ctx), parentID)
	if err != nil {
		return nil, fmt.Errorf("load parent: %w", err)
	}
	if parent == nil {
		log.Warn("Batch parent is gone; stopping")
		return &BatchOutcome{Decision: DecisionComplete}, nil
	}
	if parent.BatchID == nil || *parent.BatchID != batchID {
		log.Warn("Batch superseded by a newer expansion; stopping")
		return &BatchOutcome{Decision: DecisionComplete}, nil
	}

	out := &BatchOutcome{}
	reaped, err := p.deps.Sources.ReapStalled(dbctx.Of(ctx), batchID, time.Now().UTC().Add(-p.cfg.StallAfter))
	if err != nil {
		return nil, fmt.Errorf("reap stalled: %w", err)
	}
	out.Reaped = reaped

	pending, err := p.deps.Sources.ListPendingChildren(dbctx.Of(ctx), batchID, p.cfg.URLsPerBatch)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(pending))
	for _, s := range pending {
		ids = append(ids, s.ID)
	}
	claimed, err := p.deps.Sources.ClaimPending(dbctx.Of(ctx), ids)
	if err != nil {
		return nil, fmt.Errorf("claim pending: %w", err)
	}
	out.Claimed = len(claimed)

	var succeeded, failed int32
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, id := range claimed {
		if i > 0 && p.cfg.Stagger > 0 {
			if err := httpx.Sleep(ctx, p.cfg.Stagger); err != nil {
				p.release(ctx, claimed[i:])
				break
			}
		}
		if time.Now().After(deadline) {
			log.Info("Batch budget exhausted; releasing unstarted children", "released", len(claimed)-i)
			p.release(ctx, claimed[i:])
			break
		}
		g.Go(func() error {
			if _, err := p.ProcessSource(ctx, id); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				atomic.AddInt32(&failed, 1)
				return nil
			}
			atomic.AddInt32(&succeeded, 1)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		log.Info("Batch interrupted; unfinished children were returned to pending", "succeeded", succeeded)
		return nil, fmt.Errorf("batch %s interrupted: %w", batchID, err)
	}
	out.Succeeded = int(succeeded)
	out.Failed = int(failed)

	progress, err := p.recount(ctx, parent, batchID)
	if err != nil {
		return nil, err
	}
	out.Progress = progress
	switch {
	case progress.Pending > 0:
		out.Decision = DecisionContinue
	case progress.Processing > 0:
		out.Decision = DecisionWait
	default:
		out.Decision = DecisionComplete
	}
	out.Duration = time.Since(start)

	log.Info("Batch step finished",
		"decision", out.Decision,
		"claimed", out.Claimed,
		"succeeded", out.Succeeded,
		"failed", out.Failed,
		"reaped", out.Reaped,
		"total", progress.Total,
		"processed", progress.Processed,
		"errors", progress.Errors,
		"pending", progress.Pending,
		"processing", progress.Processing,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

// release puts claimed children back to pending, for rows that were never
// started or were interrupted mid-flight.
func (p *Processor) release(ctx context.Context, ids []uuid.UUID) {
	wctx := context.WithoutCancel(ctx)
	for _, id := range ids {
		if err := p.deps.Sources.UpdateFields(dbctx.Of(wctx), id, map[string]interface{}{"status": knowledge.StatusPending}); err != nil {
			p.log.Warn("Failed to release claimed child", "source_id", id, "error", err)
		}
	}
}

// recount rebuilds the parent's progress from child rows and finalises the
// parent once every child has settled.
func (p *Processor) recount(ctx context.Context, parent *types.KnowledgeSource, batchID uuid.UUID) (types.BatchProgress, error) {
	counts, err := p.deps.Sources.CountChildrenByStatus(dbctx.Of(ctx), batchID)
	if err != nil {
		return types.BatchProgress{}, fmt.Errorf("count children: %w", err)
	}
	progress := types.BatchProgress{
		Processed:  counts[knowledge.StatusReady],
		Errors:     counts[knowledge.StatusError],
		Pending:    counts[knowledge.StatusPending],
		Processing: counts[knowledge.StatusProcessing],
	}
	for _, n := range counts {
		progress.Total += n
	}

	meta := parent.Meta()
	meta.Progress = &progress
	status := knowledge.StatusProcessing
	if progress.Done() {
		now := time.Now().UTC()
		meta.ProcessedAt = &now
		status = knowledge.StatusReady
		meta.Error = ""
		if progress.Total > 0 && progress.Processed == 0 {
			status = knowledge.StatusError
			meta.Error = fmt.Sprintf("all %d pages failed to process", progress.Errors)
		}
	}
	if err := p.deps.Sources.SetStatus(dbctx.Of(ctx), parent.ID, status, meta); err != nil {
		return progress, fmt.Errorf("write parent progress: %w", err)
	}
	return progress, nil
}
