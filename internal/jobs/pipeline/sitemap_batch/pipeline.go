package sitemap_batch

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/leadchat-backend/internal/domain"
	ingest "github.com/yungbote/leadchat-backend/internal/ingestion/pipeline"
	jobrt "github.com/yungbote/leadchat-backend/internal/jobs/runtime"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/services"
)

// Enqueue schedules the next run of a sitemap batch, available at at.
func Enqueue(dbc dbctx.Context, jobs services.JobService, ownerUserID, parentID, batchID uuid.UUID, at time.Time) (*types.JobRun, error) {
	pid := parentID
	return jobs.EnqueueAt(dbc, at, ownerUserID, services.JobTypeSitemapBatch, services.EntityKnowledgeSource, &pid, Payload(parentID, batchID))
}

func Payload(parentID, batchID uuid.UUID) map[string]any {
	return map[string]any{
		"parent_id": parentID.String(),
		"batch_id":  batchID.String(),
	}
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	parentID, ok := jc.PayloadUUID("parent_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing parent_id"))
		return nil
	}
	batchID, ok := jc.PayloadUUID("batch_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing batch_id"))
		return nil
	}

	jc.Progress("batch", 10, "Processing sitemap batch")
	out, err := p.runner.RunBatch(jc.Ctx, batchID, parentID)
	if err != nil {
		jc.Fail("batch", err)
		return nil
	}

	var next time.Time
	switch out.Decision {
	case ingest.DecisionContinue:
		next = time.Now().UTC()
	case ingest.DecisionWait:
		next = time.Now().UTC().Add(p.waitDelay)
	}
	if !next.IsZero() {
		if _, err := Enqueue(dbctx.Of(jc.Ctx), p.jobs, jc.Job.OwnerUserID, parentID, batchID, next); err != nil {
			jc.Fail("schedule", err)
			return nil
		}
	}

	p.log.Info("Sitemap batch step finished",
		"parent_id", parentID,
		"batch_id", batchID,
		"decision", out.Decision,
		"claimed", out.Claimed,
		"failed", out.Failed,
		"pending", out.Progress.Pending,
	)
	jc.Succeed(string(out.Decision), out)
	return nil
}
