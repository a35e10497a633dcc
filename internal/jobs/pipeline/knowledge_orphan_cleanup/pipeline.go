package knowledge_orphan_cleanup

import (
	jobrt "github.com/yungbote/leadchat-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	jc.Progress("cleanup", 10, "Deleting orphaned sitemap children")
	n, err := p.cleaner.CleanupOrphans(jc.Ctx)
	if err != nil {
		jc.Fail("cleanup", err)
		return nil
	}
	if n > 0 {
		p.log.Info("Orphaned children deleted", "deleted", n)
	}
	jc.Succeed("done", map[string]any{"deleted": n})
	return nil
}
