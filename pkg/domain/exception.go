// pkg/domain/exception.go

package domain

import (
	"time"

	cerr "github.com/cockroachdb/errors"
)

// ExceptionType selects which alert field an exception rule inspects.
type ExceptionType string

const (
	ExceptionIP          ExceptionType = "ip"
	ExceptionUsername    ExceptionType = "username"
	ExceptionServer      ExceptionType = "server"
	ExceptionLogSource   ExceptionType = "log_source"
	ExceptionRulePattern ExceptionType = "rule_pattern"
)

func ExceptionTypes() []ExceptionType {
	return []ExceptionType{ExceptionIP, ExceptionUsername, ExceptionServer, ExceptionLogSource, ExceptionRulePattern}
}

func (t ExceptionType) Valid() bool {
	for _, k := range ExceptionTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// ExceptionRule suppresses alerts whose selected field contains Value.
type ExceptionRule struct {
	ID          uint          `json:"id" yaml:"id"`
	RuleType    ExceptionType `json:"rule_type" yaml:"rule_type"`
	Value       string        `json:"value" yaml:"value"`
	Description *string       `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt   *time.Time    `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Validate checks the fields a caller controls.
func (r ExceptionRule) Validate() error {
	if !r.RuleType.Valid() {
		return cerr.Newf("unknown exception rule type %q", r.RuleType)
	}
	if r.Value == "" {
		return cerr.New("exception value must not be empty")
	}
	return nil
}
