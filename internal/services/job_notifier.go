package services

import (
	"context"

	"gorm.io/datatypes"

	"github.com/yungbote/leadchat-backend/internal/data/repos"
	types "github.com/yungbote/leadchat-backend/internal/domain"
	"github.com/yungbote/leadchat-backend/internal/domain/jobs"
	"github.com/yungbote/leadchat-backend/internal/jobs/runtime"
	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
)

// EventPublisher broadcasts job events to other instances.
type EventPublisher interface {
	Publish(ctx context.Context, msg any) error
}

type jobNotifier struct {
	log    *logger.Logger
	events repos.JobRunEventRepo
	bus    EventPublisher
}

// NewJobNotifier records every lifecycle change in job_run_event and, when
// bus is non-nil, publishes it as well.
func NewJobNotifier(baseLog *logger.Logger, events repos.JobRunEventRepo, bus EventPublisher) runtime.Notifier {
	return &jobNotifier{
		log:    baseLog.With("service", "JobNotifier"),
		events: events,
		bus:    bus,
	}
}

func (n *jobNotifier) JobCreated(dbc dbctx.Context, job *types.JobRun) {
	n.record(dbc, job, jobs.EventCreated, job.Message, nil)
}

func (n *jobNotifier) JobProgress(ctx context.Context, job *types.JobRun, stage string, progress int, message string) {
	n.record(dbctx.Of(ctx), job, jobs.EventProgress, message, nil)
}

func (n *jobNotifier) JobFailed(ctx context.Context, job *types.JobRun, stage string, errorMessage string) {
	n.record(dbctx.Of(ctx), job, jobs.EventFailed, errorMessage, nil)
}

func (n *jobNotifier) JobDone(ctx context.Context, job *types.JobRun) {
	n.record(dbctx.Of(ctx), job, jobs.EventSucceeded, "", job.Result)
}

func (n *jobNotifier) record(dbc dbctx.Context, job *types.JobRun, kind, message string, data datatypes.JSON) {
	if n == nil || job == nil {
		return
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	ev := &types.JobRunEvent{
		JobID:       job.ID,
		OwnerUserID: job.OwnerUserID,
		JobType:     job.JobType,
		Kind:        kind,
		Status:      job.Status,
		Stage:       job.Stage,
		Progress:    job.Progress,
		Message:     message,
		Data:        data,
	}
	if n.events != nil {
		if err := n.events.Append(dbctx.Context{Ctx: context.WithoutCancel(ctx), Tx: dbc.Tx}, ev); err != nil {
			n.log.Warn("Failed to append job event", "job_id", job.ID, "kind", kind, "error", err)
		}
	}
	if n.bus != nil {
		if err := n.bus.Publish(context.WithoutCancel(ctx), ev); err != nil {
			n.log.Warn("Failed to publish job event", "job_id", job.ID, "kind", kind, "error", err)
		}
	}
}
