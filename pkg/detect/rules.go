// pkg/detect/rules.go

package detect

import (
	"regexp"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
)

// Match carries what a detector extracted from a line.
type Match struct {
	IP       *string
	Username *string
}

// Detector pairs a rule with the predicate that recognises it.
type Detector struct {
	Kind  domain.RuleKind
	Level domain.Level
	Match func(line string) (Match, bool)
}

var (
	reFail2banBan   = regexp.MustCompile(`(?i)fail2ban.*\bBan\b\s+(\S+)`)
	reFail2banUnban = regexp.MustCompile(`(?i)fail2ban.*\bUnban\b\s+(\S+)`)
	reSSHDFailed    = regexp.MustCompile(`(?i)sshd\[\d+\]:\s+(?:Failed password|Invalid user|Connection closed by authenticating user|Received disconnect)\b`)
	rePAMFailure    = regexp.MustCompile(`(?i)pam_unix\(sshd:auth\):\s+authentication failure`)
	reSSHDAccepted  = regexp.MustCompile(`(?i)sshd\[\d+\]:\s+Accepted (?:password|publickey) for (\S+) from (\S+)\b`)
	reBreakIn       = regexp.MustCompile(`(?i)Possible break-in attempt`)
)

// DefaultDetectors returns the built-in rule table. Order matters: the
// first detector that matches a line wins.
func DefaultDetectors() []Detector {
	return []Detector{
		{Kind: domain.RuleFail2banBan, Level: domain.LevelHigh, Match: captureToken(reFail2banBan)},
		{Kind: domain.RuleFail2banUnban, Level: domain.LevelInfo, Match: captureToken(reFail2banUnban)},
		{Kind: domain.RuleSSHDFailed, Level: domain.LevelMedium, Match: withFirstIPv4(reSSHDFailed)},
		{Kind: domain.RulePAMAuthFailure, Level: domain.LevelMedium, Match: withFirstIPv4(rePAMFailure)},
		{Kind: domain.RuleSSHDAccepted, Level: domain.LevelInfo, Match: matchAccepted},
		{Kind: domain.RuleBreakInAttempt, Level: domain.LevelHigh, Match: withFirstIPv4(reBreakIn)},
	}
}

func captureToken(re *regexp.Regexp) func(string) (Match, bool) {
	return func(line string) (Match, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return Match{}, false
		}
		return Match{IP: domain.Ptr(m[1])}, true
	}
}

func withFirstIPv4(re *regexp.Regexp) func(string) (Match, bool) {
	return func(line string) (Match, bool) {
		if !re.MatchString(line) {
			return Match{}, false
		}
		var out Match
		if ip, ok := FirstIPv4(line); ok {
			out.IP = domain.Ptr(ip)
		}
		return out, true
	}
}

func matchAccepted(line string) (Match, bool) {
	m := reSSHDAccepted.FindStringSubmatch(line)
	if m == nil {
		return Match{}, false
	}
	return Match{Username: domain.Ptr(m[1]), IP: domain.Ptr(m[2])}, true
}
