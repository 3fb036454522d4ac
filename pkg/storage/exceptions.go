// pkg/storage/exceptions.go

package storage

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
)

func (s *Store) ListExceptions(ctx context.Context) ([]domain.ExceptionRule, error) {
	return s.listExceptions(ctx, false)
}

// ListEnabledExceptions returns only the rules the collector applies.
func (s *Store) ListEnabledExceptions(ctx context.Context) ([]domain.ExceptionRule, error) {
	return s.listExceptions(ctx, true)
}

func (s *Store) listExceptions(ctx context.Context, enabledOnly bool) ([]domain.ExceptionRule, error) {
	q := s.db.WithContext(ctx).Order("id")
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var records []exceptionRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, vigil_err.NewPersistenceError("list exceptions", err)
	}
	out := make([]domain.ExceptionRule, len(records))
	for i, r := range records {
		out[i] = r.toDomain()
	}
	return out, nil
}

// CreateException validates and stores a rule, returning it with its id.
func (s *Store) CreateException(ctx context.Context, rule domain.ExceptionRule) (domain.ExceptionRule, error) {
	if err := rule.Validate(); err != nil {
		return domain.ExceptionRule{}, vigil_err.NewValidationError(err.Error())
	}
	r := exceptionRecord{
		RuleType:    string(rule.RuleType),
		Value:       rule.Value,
		Description: rule.Description,
		Enabled:     rule.Enabled,
	}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return domain.ExceptionRule{}, vigil_err.NewPersistenceError("create exception", err)
	}
	return r.toDomain(), nil
}

// UpdateException replaces the mutable fields of a rule. It reports false
// for unknown ids.
func (s *Store) UpdateException(ctx context.Context, rule domain.ExceptionRule) (domain.ExceptionRule, bool, error) {
	if err := rule.Validate(); err != nil {
		return domain.ExceptionRule{}, false, vigil_err.NewValidationError(err.Error())
	}
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&exceptionRecord{}).Where("id = ?", rule.ID).
		Updates(map[string]interface{}{
			"rule_type":   string(rule.RuleType),
			"value":       rule.Value,
			"description": rule.Description,
			"enabled":     rule.Enabled,
			"updated_at":  now,
		})
	if res.Error != nil {
		return domain.ExceptionRule{}, false, vigil_err.NewPersistenceError("update exception", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ExceptionRule{}, false, nil
	}
	var r exceptionRecord
	if err := s.db.WithContext(ctx).First(&r, rule.ID).Error; err != nil {
		return domain.ExceptionRule{}, false, vigil_err.NewPersistenceError("reload exception", err)
	}
	return r.toDomain(), true, nil
}

func (s *Store) DeleteException(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&exceptionRecord{}, id)
	if res.Error != nil {
		return false, vigil_err.NewPersistenceError("delete exception", res.Error)
	}
	return res.RowsAffected > 0, nil
}
