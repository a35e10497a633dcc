package knowledge_source_process

import (
	"context"

	"github.com/google/uuid"

	ingest "github.com/yungbote/leadchat-backend/internal/ingestion/pipeline"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type SourceProcessor interface {
	ProcessSource(ctx context.Context, sourceID uuid.UUID) (*ingest.Result, error)
}

type Pipeline struct {
	log  *logger.Logger
	proc SourceProcessor
	jobs services.JobService
}

func New(baseLog *logger.Logger, proc SourceProcessor, jobs services.JobService) *Pipeline {
	return &Pipeline{
		log:  baseLog.With("job", services.JobTypeKnowledgeSourceProcess),
		proc: proc,
		jobs: jobs,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeKnowledgeSourceProcess }
