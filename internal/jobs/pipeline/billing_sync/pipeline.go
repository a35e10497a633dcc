package billing_sync

import (
	jobrt "github.com/yungbote/leadchat-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	jc.Progress("sync", 10, "Listing Stripe subscriptions")
	res, err := p.syncer.Sync(jc.Ctx)
	if err != nil {
		jc.Fail("sync", err)
		return nil
	}
	jc.Succeed("done", res)
	return nil
}
