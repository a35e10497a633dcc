package knowledge_source_process

import (
	"fmt"
	"time"

	"github.com/yungbote/leadchat-backend/internal/jobs/pipeline/sitemap_batch"
	jobrt "github.com/yungbote/leadchat-backend/internal/jobs/runtime"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	sourceID, ok := jc.PayloadUUID("source_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing source_id"))
		return nil
	}

	jc.Progress("process", 10, "Processing knowledge source")
	res, err := p.proc.ProcessSource(jc.Ctx, sourceID)
	if err != nil {
		if jc.Ctx.Err() != nil {
			jc.Fail("process", err)
			return nil
		}
		// The failure is already recorded on the source row. Ingestion is not
		// retried automatically, so the job itself completes.
		p.log.Warn("Knowledge source failed", "source_id", sourceID, "error", err)
		jc.Succeed("source_error", map[string]any{
			"source_id": sourceID,
			"error":     err.Error(),
		})
		return nil
	}

	if res.BatchID != nil {
		jc.Progress("schedule", 90, "Scheduling sitemap batch")
		if _, err := sitemap_batch.Enqueue(dbctx.Of(jc.Ctx), p.jobs, jc.Job.OwnerUserID, sourceID, *res.BatchID, time.Now().UTC()); err != nil {
			jc.Fail("schedule", err)
			return nil
		}
	}
	jc.Succeed("done", res)
	return nil
}
