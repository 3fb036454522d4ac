package storage

import (
	"context"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), config.StorageConfig{Driver: "sqlite", SQLitePath: ":memory:"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleAlert(server string, ts time.Time, rule domain.RuleKind) domain.Alert {
	return domain.Alert{
		ServerName: server,
		SourceLog:  "/var/log/auth.log",
		Timestamp:  ts,
		Level:      domain.LevelHigh,
		Rule:       rule,
		Message:    "Failed password for root from 203.0.113.5 port 22 ssh2",
		IPAddress:  domain.Ptr("203.0.113.5"),
		Username:   domain.Ptr("root"),
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "mysql"}, nil)
	require.Error(t, err)
	assert.True(t, vigil_err.IsCategory(err, vigil_err.CategoryValidation))
}

func TestAlerts_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	alerts := []domain.Alert{
		sampleAlert("web1", base, domain.RuleSSHDFailed),
		sampleAlert("web1", base.Add(time.Minute), domain.RuleSSHDAccepted),
		sampleAlert("db1", base.Add(2*time.Minute), domain.RuleSSHDFailed),
	}
	alerts[1].Level = domain.LevelInfo
	alerts[1].IPAddress = nil

	require.NoError(t, s.SaveAlerts(ctx, alerts))
	for _, a := range alerts {
		assert.NotZero(t, a.ID)
	}

	all, err := s.ListAlerts(ctx, AlertFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "db1", all[0].ServerName, "newest first")
	assert.Equal(t, domain.RuleSSHDFailed, all[0].Rule)
	assert.Nil(t, all[1].IPAddress)
	assert.Equal(t, "root", all[2].User())

	tests := []struct {
		name   string
		filter AlertFilter
		want   int
	}{
		{name: "by server", filter: AlertFilter{Server: "web1"}, want: 2},
		{name: "by level", filter: AlertFilter{Level: domain.LevelInfo}, want: 1},
		{name: "by rule", filter: AlertFilter{Rule: "sshd_failed"}, want: 2},
		{name: "since", filter: AlertFilter{Since: ptrTime(base.Add(90 * time.Second))}, want: 1},
		{name: "limit", filter: AlertFilter{Limit: 1}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListAlerts(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestAlerts_Acknowledge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()
	alerts := []domain.Alert{
		sampleAlert("web1", now, domain.RuleSSHDFailed),
		sampleAlert("web1", now, domain.RuleSSHDFailed),
		sampleAlert("web1", now, domain.RulePAMAuthFailure),
	}
	require.NoError(t, s.SaveAlerts(ctx, alerts))

	ok, err := s.AcknowledgeAlert(ctx, alerts[2].ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	got, found, err := s.GetAlert(ctx, alerts[2].ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Acknowledged)
	require.NotNil(t, got.AcknowledgedBy)
	assert.Equal(t, "alice", *got.AcknowledgedBy)
	assert.NotNil(t, got.AcknowledgedAt)

	n, err := s.AcknowledgeByRule(ctx, "sshd_failed", "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	unacked := false
	open, err := s.ListAlerts(ctx, AlertFilter{Acknowledged: &unacked})
	require.NoError(t, err)
	assert.Empty(t, open)

	ok, err = s.AcknowledgeAlert(ctx, 9999, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAlerts_DeleteAndCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alerts := []domain.Alert{
		sampleAlert("web1", time.Now(), domain.RuleSSHDFailed),
		sampleAlert("web1", time.Now(), domain.RuleSSHDAccepted),
	}
	alerts[1].Level = domain.LevelInfo
	require.NoError(t, s.SaveAlerts(ctx, alerts))

	counts, err := s.CountAlerts(ctx, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[domain.LevelHigh])
	assert.EqualValues(t, 1, counts[domain.LevelInfo])

	ok, err := s.DeleteAlert(ctx, alerts[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteAlert(ctx, alerts[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServers_UpsertListDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	web := domain.Server{Name: "web1", Host: "10.0.0.5", Username: "ops", Logs: []string{"/var/log/auth.log"}}
	require.NoError(t, s.UpsertServer(ctx, web))
	require.NoError(t, s.UpsertServer(ctx, domain.Server{Name: "app1", Host: "10.0.0.6", Port: 2222, Username: "ops"}))

	got, found, err := s.GetServer(ctx, "web1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 22, got.Port, "port defaults to 22")
	assert.Equal(t, []string{"/var/log/auth.log"}, got.Logs)

	web.Host = "10.0.0.50"
	web.Password = domain.Ptr("s3cret")
	web.Logs = []string{"journal:ssh"}
	require.NoError(t, s.UpsertServer(ctx, web))

	list, err := s.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "app1", list[0].Name, "ordered by name")
	assert.Equal(t, "10.0.0.50", list[1].Host)
	assert.True(t, list[1].HasPassword())
	assert.Equal(t, []string{"journal:ssh"}, list[1].Logs)

	ok, err := s.DeleteServer(ctx, "app1")
	require.NoError(t, err)
	assert.True(t, ok)
	_, found, err = s.GetServer(ctx, "app1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestServers_SeedOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seed := []domain.Server{{Name: "web1", Host: "h1", Username: "u"}, {Name: "web2", Host: "h2", Username: "u"}}

	n, err := s.SeedServers(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.SeedServers(ctx, []domain.Server{{Name: "web3", Host: "h3", Username: "u"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := s.CountServers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestExceptions_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateException(ctx, domain.ExceptionRule{RuleType: "bogus", Value: "x"})
	require.Error(t, err)
	assert.True(t, vigil_err.IsCategory(err, vigil_err.CategoryValidation))

	rule, err := s.CreateException(ctx, domain.ExceptionRule{RuleType: domain.ExceptionIP, Value: "10.0.0.", Enabled: true})
	require.NoError(t, err)
	assert.NotZero(t, rule.ID)
	assert.Nil(t, rule.UpdatedAt)

	_, err = s.CreateException(ctx, domain.ExceptionRule{RuleType: domain.ExceptionUsername, Value: "backup", Enabled: false})
	require.NoError(t, err)

	enabled, err := s.ListEnabledExceptions(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "10.0.0.", enabled[0].Value)

	rule.Enabled = false
	rule.Description = domain.Ptr("office range")
	updated, found, err := s.UpdateException(ctx, rule)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, updated.Enabled)
	assert.NotNil(t, updated.UpdatedAt)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "office range", *updated.Description)

	_, found, err = s.UpdateException(ctx, domain.ExceptionRule{ID: 999, RuleType: domain.ExceptionIP, Value: "x"})
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := s.DeleteException(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := s.ListExceptions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWatermarks_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, ok, err := s.GetWatermark(ctx, "web1", "/var/log/auth.log")
	require.NoError(t, err)
	assert.False(t, ok)

	first := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)
	require.NoError(t, s.SetWatermark(ctx, "web1", "/var/log/auth.log", first))
	got, ok, err := s.GetWatermark(ctx, "web1", "/var/log/auth.log")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(first))

	second := first.Add(time.Hour)
	require.NoError(t, s.SetWatermark(ctx, "web1", "/var/log/auth.log", second))
	got, ok, err = s.GetWatermark(ctx, "web1", "/var/log/auth.log")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(second))

	require.NoError(t, s.SetWatermark(ctx, "web1", "journal:ssh", first))
	marks, err := s.ListWatermarks(ctx)
	require.NoError(t, err)
	assert.Len(t, marks, 2)
}

func ptrTime(t time.Time) *time.Time { return &t }
