package sitemap_expand

import (
	"context"

	"github.com/google/uuid"

	ingest "github.com/yungbote/leadchat-backend/internal/ingestion/pipeline"
	"github.com/yungbote/leadchat-backend/internal/pkg/logger"
	"github.com/yungbote/leadchat-backend/internal/services"
)

type Expander interface {
	ExpandSitemap(ctx context.Context, parentID uuid.UUID) (*ingest.ExpandResult, error)
}

type Pipeline struct {
	log  *logger.Logger
	exp  Expander
	jobs services.JobService
}

func New(baseLog *logger.Logger, exp Expander, jobs services.JobService) *Pipeline {
	return &Pipeline{
		log:  baseLog.With("job", services.JobTypeSitemapExpand),
		exp:  exp,
		jobs: jobs,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeSitemapExpand }
