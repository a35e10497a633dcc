package knowledge

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SourceMetadata is the per-type metadata stored on a knowledge source.
// Only the fields belonging to the source's type are populated; Validate
// enforces that at the boundary.
type SourceMetadata struct {
	Error       string     `json:"error,omitempty"`
	ChunkCount  int        `json:"chunk_count,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// sitemap parents and their url children
	BatchID        *uuid.UUID `json:"batch_id,omitempty"`
	ParentSourceID *uuid.UUID `json:"parent_source_id,omitempty"`

	// sitemap parents
	Sitemap        *SitemapOptions `json:"sitemap,omitempty"`
	Progress       *BatchProgress  `json:"progress,omitempty"`
	DiscoveredURLs int             `json:"discovered_urls,omitempty"`

	// pdf
	PageCount int `json:"page_count,omitempty"`
}

type SitemapOptions struct {
	Include  []string `json:"include,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
	MaxPages int      `json:"max_pages,omitempty"`
}

type BatchProgress struct {
	Total      int `json:"total"`
	Processed  int `json:"processed"`
	Errors     int `json:"errors"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
}

func (p BatchProgress) Done() bool { return p.Pending == 0 && p.Processing == 0 }

// Validate rejects metadata fields that do not belong to sourceType.
func (m SourceMetadata) Validate(sourceType string) error {
	switch sourceType {
	case SourceTypeSitemap:
		if m.ParentSourceID != nil {
			return fmt.Errorf("sitemap source cannot have a parent source")
		}
		if m.PageCount != 0 {
			return fmt.Errorf("page_count is only valid for pdf sources")
		}
		if m.Sitemap != nil && m.Sitemap.MaxPages < 0 {
			return fmt.Errorf("sitemap max_pages must be >= 0")
		}
	case SourceTypeURL:
		if m.Sitemap != nil || m.Progress != nil {
			return fmt.Errorf("sitemap options are only valid for sitemap sources")
		}
		if (m.BatchID == nil) != (m.ParentSourceID == nil) {
			return fmt.Errorf("sitemap children need both batch_id and parent_source_id")
		}
		if m.PageCount != 0 {
			return fmt.Errorf("page_count is only valid for pdf sources")
		}
	case SourceTypePDF, SourceTypeText:
		if m.Sitemap != nil || m.Progress != nil || m.BatchID != nil || m.ParentSourceID != nil {
			return fmt.Errorf("batch fields are not valid for %s sources", sourceType)
		}
		if sourceType == SourceTypeText && m.PageCount != 0 {
			return fmt.Errorf("page_count is only valid for pdf sources")
		}
	default:
		return fmt.Errorf("unknown source type %q", sourceType)
	}
	return nil
}

func NewSourceMetadata(m SourceMetadata) datatypes.JSONType[SourceMetadata] {
	return datatypes.NewJSONType(m)
}
