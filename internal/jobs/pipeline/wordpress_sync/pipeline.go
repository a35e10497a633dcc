package wordpress_sync

import (
	jobrt "github.com/yungbote/leadchat-backend/internal/jobs/runtime"
)

// Run syncs every active connection incrementally. Per-connection failures
// are recorded on the connection row and do not fail the job.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	jc.Progress("sync", 10, "Syncing WordPress connections")
	n, err := p.syncer.SyncActive(jc.Ctx)
	if err != nil {
		jc.Fail("sync", err)
		return nil
	}
	p.log.Info("WordPress connections synced", "synced", n)
	jc.Succeed("done", map[string]any{"synced": n})
	return nil
}
