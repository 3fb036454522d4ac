// pkg/suppress/exceptions.go

package suppress

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
)

// IsExcepted reports whether any enabled rule matches the alert. A rule
// matches when its value is a substring of the field it targets; alerts
// without that field never match.
func IsExcepted(a domain.Alert, rules []domain.ExceptionRule) bool {
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		field, ok := target(a, r.RuleType)
		if ok && strings.Contains(field, r.Value) {
			return true
		}
	}
	return false
}

func target(a domain.Alert, t domain.ExceptionType) (string, bool) {
	switch t {
	case domain.ExceptionIP:
		if a.IPAddress == nil {
			return "", false
		}
		return *a.IPAddress, true
	case domain.ExceptionUsername:
		if a.Username == nil {
			return "", false
		}
		return *a.Username, true
	case domain.ExceptionServer:
		return a.ServerName, a.ServerName != ""
	case domain.ExceptionLogSource:
		return a.SourceLog, a.SourceLog != ""
	case domain.ExceptionRulePattern:
		return a.Rule.String(), true
	}
	return "", false
}
