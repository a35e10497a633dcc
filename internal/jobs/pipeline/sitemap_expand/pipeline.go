package sitemap_expand

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
	parentID, ok := jc.PayloadUUID("source_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing source_id"))
		return nil
	}

	jc.Progress("expand", 10, "Expanding sitemap")
	res, err := p.exp.ExpandSitemap(jc.Ctx, parentID)
	if err != nil {
		if jc.Ctx.Err() != nil {
			jc.Fail("expand", err)
			return nil
		}
		p.log.Warn("Sitemap expansion failed", "source_id", parentID, "error", err)
		jc.Succeed("source_error", map[string]any{
			"source_id": parentID,
			"error":     err.Error(),
		})
		return nil
	}

	jc.Progress("schedule", 90, "Scheduling sitemap batch")
	if _, err := sitemap_batch.Enqueue(dbctx.Of(jc.Ctx), p.jobs, jc.Job.OwnerUserID, parentID, res.BatchID, time.Now().UTC()); err != nil {
		jc.Fail("schedule", err)
		return nil
	}
	jc.Succeed("done", res)
	return nil
}
