// pkg/domain/alert.go

package domain

import "time"

// Level is the severity attached to an alert.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelInfo   Level = "info"
)

func (l Level) Valid() bool {
	switch l {
	case LevelHigh, LevelMedium, LevelInfo:
		return true
	}
	return false
}

// Alert is one classified log line.
type Alert struct {
	ID             uint       `json:"id,omitempty" yaml:"id,omitempty"`
	ServerName     string     `json:"server_name" yaml:"server_name"`
	SourceLog      string     `json:"source_log" yaml:"source_log"`
	Timestamp      time.Time  `json:"timestamp" yaml:"timestamp"`
	Level          Level      `json:"level" yaml:"level"`
	Rule           RuleKind   `json:"rule" yaml:"rule"`
	Message        string     `json:"message" yaml:"message"`
	IPAddress      *string    `json:"ip_address,omitempty" yaml:"ip_address,omitempty"`
	Username       *string    `json:"username,omitempty" yaml:"username,omitempty"`
	Acknowledged   bool       `json:"acknowledged" yaml:"acknowledged"`
	AcknowledgedBy *string    `json:"acknowledged_by,omitempty" yaml:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" yaml:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// IP returns the source address or "" when none was extracted.
func (a Alert) IP() string {
	if a.IPAddress == nil {
		return ""
	}
	return *a.IPAddress
}

func (a Alert) User() string {
	if a.Username == nil {
		return ""
	}
	return *a.Username
}

// Ptr is a small helper for optional string fields.
func Ptr(s string) *string {
	return &s
}

// PartitionCritical splits alerts into the critical subset. The input
// order is preserved.
func PartitionCritical(alerts []Alert) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Rule.Critical() {
			out = append(out, a)
		}
	}
	return out
}

// GroupByServer groups alerts by server name and returns the server names
// in first-seen order alongside the groups.
func GroupByServer(alerts []Alert) ([]string, map[string][]Alert) {
	var order []string
	groups := make(map[string][]Alert)
	for _, a := range alerts {
		if _, ok := groups[a.ServerName]; !ok {
			order = append(order, a.ServerName)
		}
		groups[a.ServerName] = append(groups[a.ServerName], a)
	}
	return order, groups
}
