// pkg/storage/servers.go

package storage

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"gorm.io/gorm/clause"
)

// ListServers returns all servers ordered by name. It is read fresh every
// collection cycle.
func (s *Store) ListServers(ctx context.Context) ([]domain.Server, error) {
	var records []serverRecord
	if err := s.db.WithContext(ctx).Order("name").Find(&records).Error; err != nil {
		return nil, vigil_err.NewPersistenceError("list servers", err)
	}
	out := make([]domain.Server, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) GetServer(ctx context.Context, name string) (domain.Server, bool, error) {
	var r serverRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&r).Error
	if notFound(err) {
		return domain.Server{}, false, nil
	}
	if err != nil {
		return domain.Server{}, false, vigil_err.NewPersistenceError("get server", err)
	}
	return r.toDomain(), true, nil
}

// UpsertServer inserts or replaces a server by name.
func (s *Store) UpsertServer(ctx context.Context, srv domain.Server) error {
	r := serverToRecord(srv)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"host", "port", "username", "password", "private_key_path", "logs", "updated_at",
		}),
	}).Create(&r).Error
	if err != nil {
		return vigil_err.NewPersistenceError("upsert server", err)
	}
	return nil
}

// DeleteServer removes a server. Its alerts and watermarks are kept.
func (s *Store) DeleteServer(ctx context.Context, name string) (bool, error) {
	res := s.db.WithContext(ctx).Where("name = ?", name).Delete(&serverRecord{})
	if res.Error != nil {
		return false, vigil_err.NewPersistenceError("delete server", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CountServers is used to decide whether to seed from config.
func (s *Store) CountServers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&serverRecord{}).Count(&n).Error; err != nil {
		return 0, vigil_err.NewPersistenceError("count servers", err)
	}
	return n, nil
}

// SeedServers inserts the given servers only when the table is empty. It
// returns how many were written.
func (s *Store) SeedServers(ctx context.Context, servers []domain.Server) (int, error) {
	n, err := s.CountServers(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 || len(servers) == 0 {
		return 0, nil
	}
	for _, srv := range servers {
		if err := s.UpsertServer(ctx, srv); err != nil {
			return 0, err
		}
	}
	return len(servers), nil
}
