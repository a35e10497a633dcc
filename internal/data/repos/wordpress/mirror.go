package wordpress

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/leadchat-backend/internal/pkg/dbctx"
)

// MirrorRow is the change-detection view of one mirrored post.
type MirrorRow struct {
	ID          uuid.UUID `gorm:"column:id"`
	WPID        int64     `gorm:"column:wp_id"`
	ContentHash string    `gorm:"column:content_hash"`
}

func listIndex[T any](dbc dbctx.Context, tx *gorm.DB, agentID uuid.UUID) (map[int64]MirrorRow, error) {
	var rows []MirrorRow
	err := tx.WithContext(dbc.Ctx).
		Model(new(T)).
		Select("id, wp_id, content_hash").
		Where("agent_id = ?", agentID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64]MirrorRow, len(rows))
	for _, row := range rows {
		out[row.WPID] = row
	}
	return out, nil
}

func deleteMissing[T any](dbc dbctx.Context, tx *gorm.DB, agentID uuid.UUID, keep []int64) (int64, error) {
	q := tx.WithContext(dbc.Ctx).Where("agent_id = ?", agentID)
	if len(keep) > 0 {
		q = q.Where("wp_id NOT IN ?", keep)
	}
	res := q.Delete(new(T))
	return res.RowsAffected, res.Error
}
