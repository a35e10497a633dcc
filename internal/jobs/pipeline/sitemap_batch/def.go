package sitemap_batch

import (
	"context"
	"time"

	"github.com/google/uuid"

	ingest "github.com/yungbote/leadchat-backend/internal/ingestion/pipeline"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

const DefaultWaitDelay = 15 * time.Second

type BatchRunner interface {
	RunBatch(ctx context.Context, batchID, parentID uuid.UUID) (*ingest.BatchOutcome, error)
}

type Pipeline struct {
	log       *logger.Logger
	runner    BatchRunner
	jobs      services.JobService
	waitDelay time.Duration
}

func New(baseLog *logger.Logger, runner BatchRunner, jobs services.JobService, waitDelay time.Duration) *Pipeline {
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}
	return &Pipeline{
		log:       baseLog.With("job", services.JobTypeSitemapBatch),
		runner:    runner,
		jobs:      jobs,
		waitDelay: waitDelay,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeSitemapBatch }
