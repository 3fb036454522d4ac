// pkg/domain/rule.go

package domain

import "strings"

// RuleKind is the taxonomy key of a detection rule.
type RuleKind uint8

const (
	RuleCustom RuleKind = iota
	RuleFail2banBan
	RuleFail2banUnban
	RuleSSHDFailed
	RulePAMAuthFailure
	RuleSSHDAccepted
	RuleBreakInAttempt
)

var ruleNames = map[RuleKind]string{
	RuleCustom:         "custom",
	RuleFail2banBan:    "fail2ban_ban",
	RuleFail2banUnban:  "fail2ban_unban",
	RuleSSHDFailed:     "sshd_failed",
	RulePAMAuthFailure: "pam_auth_failure",
	RuleSSHDAccepted:   "sshd_accepted",
	RuleBreakInAttempt: "break_in_attempt",
}

func (k RuleKind) String() string {
	if n, ok := ruleNames[k]; ok {
		return n
	}
	return ruleNames[RuleCustom]
}

// Critical reports whether alerts of this kind go out in the immediate
// critical notification rather than only the digest.
func (k RuleKind) Critical() bool {
	switch k {
	case RuleSSHDFailed, RulePAMAuthFailure, RuleFail2banBan, RuleBreakInAttempt:
		return true
	}
	return false
}

// ParseRuleKind maps a stored rule name back to its kind. Unknown names
// come back as RuleCustom.
func ParseRuleKind(s string) RuleKind {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range ruleNames {
		if n == s {
			return k
		}
	}
	return RuleCustom
}

// KnownRules lists the built-in rule kinds in classifier order.
func KnownRules() []RuleKind {
	return []RuleKind{
		RuleFail2banBan,
		RuleFail2banUnban,
		RuleSSHDFailed,
		RulePAMAuthFailure,
		RuleSSHDAccepted,
		RuleBreakInAttempt,
	}
}

// MarshalText stores the kind by name.
func (k RuleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RuleKind) UnmarshalText(b []byte) error {
	*k = ParseRuleKind(string(b))
	return nil
}
