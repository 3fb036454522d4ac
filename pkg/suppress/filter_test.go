package suppress

import (
	"testing"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alert(rule domain.RuleKind, ip, user, msg string) domain.Alert {
	a := domain.Alert{
		ServerName: "web1",
		SourceLog:  "/var/log/auth.log",
		Rule:       rule,
		Message:    msg,
	}
	if ip != "" {
		a.IPAddress = domain.Ptr(ip)
	}
	if user != "" {
		a.Username = domain.Ptr(user)
	}
	return a
}

func TestIsExcepted(t *testing.T) {
	a := alert(domain.RuleSSHDFailed, "10.0.0.5", "", "sshd[1]: Failed password")

	tests := []struct {
		name  string
		rules []domain.ExceptionRule
		want  bool
	}{
		{"enabled ip prefix", []domain.ExceptionRule{{RuleType: domain.ExceptionIP, Value: "10.0.0.", Enabled: true}}, true},
		{"disabled rule ignored", []domain.ExceptionRule{{RuleType: domain.ExceptionIP, Value: "10.0.0.", Enabled: false}}, false},
		{"absent username never matches", []domain.ExceptionRule{{RuleType: domain.ExceptionUsername, Value: "", Enabled: true}}, false},
		{"server substring", []domain.ExceptionRule{{RuleType: domain.ExceptionServer, Value: "web", Enabled: true}}, true},
		{"log source substring", []domain.ExceptionRule{{RuleType: domain.ExceptionLogSource, Value: "auth.log", Enabled: true}}, true},
		{"rule pattern", []domain.ExceptionRule{{RuleType: domain.ExceptionRulePattern, Value: "sshd_", Enabled: true}}, true},
		{"unknown type", []domain.ExceptionRule{{RuleType: "hostname", Value: "web1", Enabled: true}}, false},
		{"or over rules", []domain.ExceptionRule{
			{RuleType: domain.ExceptionIP, Value: "192.168.", Enabled: true},
			{RuleType: domain.ExceptionServer, Value: "web1", Enabled: true},
		}, true},
		{"no rules", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExcepted(a, tt.rules))
		})
	}
}

func TestFilterApplyOrder(t *testing.T) {
	rules := []domain.ExceptionRule{{RuleType: domain.ExceptionUsername, Value: "backup", Enabled: true}}
	f := NewFilter([]string{"203.0.113.7", "172.16.0.0/12", " "}, rules, []string{"for ansible "})

	in := []domain.Alert{
		alert(domain.RuleSSHDFailed, "203.0.113.7", "", "failed from ignored"),
		alert(domain.RuleSSHDFailed, "172.20.1.1", "", "failed from ignored range"),
		alert(domain.RuleSSHDAccepted, "10.0.0.1", "backup", "Accepted publickey for backup from 10.0.0.1"),
		alert(domain.RuleSSHDAccepted, "10.0.0.2", "vigil", "sshd[9]: Accepted publickey for vigil from 10.0.0.2 port 1 ssh2"),
		alert(domain.RuleSSHDAccepted, "10.0.0.3", "ansible", "sshd[9]: Accepted publickey for ansible from 10.0.0.3"),
		alert(domain.RuleSSHDAccepted, "10.0.0.4", "alice", "sshd[9]: Accepted password for alice from 10.0.0.4"),
		alert(domain.RuleSSHDFailed, "10.0.0.5", "", "sshd[9]: Failed password for vigil from 10.0.0.5"),
	}

	kept, dropped := f.Apply(in)
	require.Len(t, kept, 2)
	assert.Equal(t, "10.0.0.4", kept[0].IP())
	assert.Equal(t, "10.0.0.5", kept[1].IP())
	assert.Equal(t, 2, dropped[ReasonIgnoredIP])
	assert.Equal(t, 1, dropped[ReasonException])
	assert.Equal(t, 2, dropped[ReasonMonitoring])
}

func TestIgnoredIP(t *testing.T) {
	f := NewFilter([]string{"10.0.0.1", "192.168.0.0/16", "not-an-ip"}, nil, nil)
	assert.True(t, f.IgnoredIP("10.0.0.1"))
	assert.True(t, f.IgnoredIP("192.168.44.2"))
	assert.True(t, f.IgnoredIP("not-an-ip"))
	assert.False(t, f.IgnoredIP("10.0.0.2"))
	assert.False(t, f.IgnoredIP(""))
}
