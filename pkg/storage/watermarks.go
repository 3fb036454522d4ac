// pkg/storage/watermarks.go

package storage

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/watermark"
	"gorm.io/gorm/clause"
)

// GetWatermark returns the stored last-seen time for a server and log. A
// missing row, or one holding unreadable text, yields ok=false.
func (s *Store) GetWatermark(ctx context.Context, server, logID string) (time.Time, bool, error) {
	var r watermarkRecord
	err := s.db.WithContext(ctx).
		Where("server_name = ? AND log_path = ?", server, logID).
		First(&r).Error
	if notFound(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, vigil_err.NewPersistenceError("get watermark", err)
	}
	ts, err := watermark.Parse(r.LastSeenTS)
	if err != nil || r.LastSeenTS == "" {
		return time.Time{}, false, nil
	}
	return ts, true, nil
}

// SetWatermark upserts the last-seen time.
func (s *Store) SetWatermark(ctx context.Context, server, logID string, ts time.Time) error {
	r := watermarkRecord{ServerName: server, LogPath: logID, LastSeenTS: watermark.Format(ts)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_name"}, {Name: "log_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_ts"}),
	}).Create(&r).Error
	if err != nil {
		return vigil_err.NewPersistenceError("set watermark", err)
	}
	return nil
}

// ListWatermarks returns every stored watermark, for diagnostics.
func (s *Store) ListWatermarks(ctx context.Context) ([]domain.Watermark, error) {
	var records []watermarkRecord
	if err := s.db.WithContext(ctx).Order("server_name, log_path").Find(&records).Error; err != nil {
		return nil, vigil_err.NewPersistenceError("list watermarks", err)
	}
	out := make([]domain.Watermark, 0, len(records))
	for _, r := range records {
		ts, _ := watermark.Parse(r.LastSeenTS)
		out = append(out, domain.Watermark{ServerName: r.ServerName, LogPath: r.LogPath, LastSeen: ts})
	}
	return out, nil
}
