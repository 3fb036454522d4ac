// pkg/storage/alerts.go

package storage

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
)

const (
	DefaultAlertLimit = 200
	MaxAlertLimit     = 5000
)

// AlertFilter narrows an alert listing. Zero values mean "any".
type AlertFilter struct {
	Server       string
	Level        domain.Level
	Rule         string
	Acknowledged *bool
	Since        *time.Time
	Limit        int
}

// SaveAlerts appends alerts in one transaction and writes the assigned IDs
// back into the slice.
func (s *Store) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	records := make([]alertRecord, len(alerts))
	for i, a := range alerts {
		records[i] = alertToRecord(a)
		records[i].ID = 0
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&records, 100).Error; err != nil {
		return vigil_err.NewPersistenceError("save alerts", err)
	}
	for i := range records {
		alerts[i].ID = records[i].ID
		alerts[i].CreatedAt = records[i].CreatedAt
	}
	return nil
}

// ListAlerts returns alerts newest first.
func (s *Store) ListAlerts(ctx context.Context, f AlertFilter) ([]domain.Alert, error) {
	q := s.db.WithContext(ctx).Model(&alertRecord{})
	if f.Server != "" {
		q = q.Where("server_name = ?", f.Server)
	}
	if f.Level != "" {
		q = q.Where("level = ?", string(f.Level))
	}
	if f.Rule != "" {
		q = q.Where("rule = ?", f.Rule)
	}
	if f.Acknowledged != nil {
		q = q.Where("acknowledged = ?", *f.Acknowledged)
	}
	if f.Since != nil {
		q = q.Where("timestamp >= ?", f.Since.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultAlertLimit
	}
	if limit > MaxAlertLimit {
		limit = MaxAlertLimit
	}

	var records []alertRecord
	if err := q.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, vigil_err.NewPersistenceError("list alerts", err)
	}
	out := make([]domain.Alert, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

// GetAlert returns one alert; ok is false when the id is unknown.
func (s *Store) GetAlert(ctx context.Context, id uint) (domain.Alert, bool, error) {
	var r alertRecord
	err := s.db.WithContext(ctx).First(&r, id).Error
	if notFound(err) {
		return domain.Alert{}, false, nil
	}
	if err != nil {
		return domain.Alert{}, false, vigil_err.NewPersistenceError("get alert", err)
	}
	return r.toDomain(), true, nil
}

// AcknowledgeAlert marks one alert. It reports false for unknown ids.
func (s *Store) AcknowledgeAlert(ctx context.Context, id uint, by string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&alertRecord{}).
		Where("id = ?", id).
		Updates(ackColumns(by))
	if res.Error != nil {
		return false, vigil_err.NewPersistenceError("acknowledge alert", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AcknowledgeByRule marks every unacknowledged alert of a rule and returns
// how many changed.
func (s *Store) AcknowledgeByRule(ctx context.Context, rule string, by string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&alertRecord{}).
		Where("rule = ? AND acknowledged = ?", rule, false).
		Updates(ackColumns(by))
	if res.Error != nil {
		return 0, vigil_err.NewPersistenceError("acknowledge alerts by rule", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteAlert removes one alert. It reports false for unknown ids.
func (s *Store) DeleteAlert(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&alertRecord{}, id)
	if res.Error != nil {
		return false, vigil_err.NewPersistenceError("delete alert", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountAlerts returns per-level counts, for the dashboard summary.
func (s *Store) CountAlerts(ctx context.Context, unacknowledgedOnly bool) (map[domain.Level]int64, error) {
	type row struct {
		Level string
		N     int64
	}
	q := s.db.WithContext(ctx).Model(&alertRecord{}).Select("level, count(*) as n").Group("level")
	if unacknowledgedOnly {
		q = q.Where("acknowledged = ?", false)
	}
	var rows []row
	if err := q.Scan(&rows).Error; err != nil {
		return nil, vigil_err.NewPersistenceError("count alerts", err)
	}
	out := make(map[domain.Level]int64, len(rows))
	for _, r := range rows {
		out[domain.Level(r.Level)] = r.N
	}
	return out, nil
}

func ackColumns(by string) map[string]interface{} {
	now := time.Now().UTC()
	cols := map[string]interface{}{
		"acknowledged":    true,
		"acknowledged_at": now,
	}
	if by != "" {
		cols["acknowledged_by"] = by
	}
	return cols
}
