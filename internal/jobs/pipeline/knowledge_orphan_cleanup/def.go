package knowledge_orphan_cleanup

import (
	"context"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type Cleaner interface {
	CleanupOrphans(ctx context.Context) (int64, error)
}

type Pipeline struct {
	log     *logger.Logger
	cleaner Cleaner
}

func New(baseLog *logger.Logger, cleaner Cleaner) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("job", services.JobTypeOrphanCleanup),
		cleaner: cleaner,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeOrphanCleanup }
