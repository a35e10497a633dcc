package wordpress_sync

import (
	"context"

	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type Syncer interface {
	SyncActive(ctx context.Context) (int, error)
}

type Pipeline struct {
	log    *logger.Logger
	syncer Syncer
}

func New(baseLog *logger.Logger, syncer Syncer) *Pipeline {
	return &Pipeline{
		log:    baseLog.With("job", services.JobTypeWordPressSync),
		syncer: syncer,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeWordPressSync }
