package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		line string
		now  time.Time
		want time.Time
		ok   bool
	}{
		{
			name: "iso with comma millis",
			line: "2024-01-15 10:30:45,123 sshd[1]: Failed password",
			now:  now,
			want: time.Date(2024, 1, 15, 10, 30, 45, 123_000_000, time.UTC),
			ok:   true,
		},
		{
			name: "iso with T separator",
			line: "2024-01-15T10:30:45 host sshd[1]: x",
			now:  now,
			want: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
			ok:   true,
		},
		{
			name: "iso with zone offset",
			line: "2024-01-15T10:30:45+0100 host sshd[1]: x",
			now:  now,
			want: time.Date(2024, 1, 15, 9, 30, 45, 0, time.UTC),
			ok:   true,
		},
		{
			name: "syslog same year",
			line: "Jan 15 10:30:45 test-host Test message",
			now:  now,
			want: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC),
			ok:   true,
		},
		{
			name: "syslog december seen in january belongs to last year",
			line: "Dec 31 23:59:59 host sshd[1]: x",
			now:  time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			want: time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			ok:   true,
		},
		{
			name: "syslog january seen in december belongs to next year",
			line: "Jan  2 00:00:01 host sshd[1]: x",
			now:  time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 2, 0, 0, 1, 0, time.UTC),
			ok:   true,
		},
		{
			name: "unknown month",
			line: "Foo 15 10:30:45 host message",
			now:  now,
			ok:   false,
		},
		{
			name: "impossible day",
			line: "Feb 30 10:30:45 host message",
			now:  now,
			ok:   false,
		},
		{
			name: "no timestamp",
			line: "sshd[1]: Failed password for root",
			now:  now,
			ok:   false,
		},
		{
			name: "empty line",
			line: "",
			now:  now,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.line, tt.now)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
			}
		})
	}
}

func TestParseTimestampPrefersISO(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, ok := ParseTimestamp("2023-03-01 00:00:00 Jan 15 10:30:45 host x", now)
	require.True(t, ok)
	assert.Equal(t, 2023, got.Year())
	assert.Equal(t, time.March, got.Month())
}

func TestFirstIPv4(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Failed password for root from 10.0.0.5 port 22", "10.0.0.5", true},
		{"from 256.1.2.3 then 192.168.1.10", "192.168.1.10", true},
		{"192.168.1.1.1 only", "", false},
		{"version 8.9p1", "", false},
		{"rhost=203.0.113.9.", "203.0.113.9", true},
		{"999.999.999.999", "", false},
	}
	for _, tt := range tests {
		got, ok := FirstIPv4(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
