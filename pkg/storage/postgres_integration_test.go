//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

// newPostgresStore starts a throwaway PostgreSQL container. Run with
// `go test -tags integration ./pkg/storage/...` on a host with Docker.
func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "vigil",
				"POSTGRES_PASSWORD": "vigil",
				"POSTGRES_DB":       "vigil",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=vigil password=vigil dbname=vigil sslmode=disable", host, port.Port())
	s, err := Open(ctx, config.StorageConfig{Driver: "postgres", PostgresDSN: dsn}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgres_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newPostgresStore(t)
	assert.Equal(t, "postgres", s.Driver())

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	alerts := []domain.Alert{
		sampleAlert("web1", base, domain.RuleSSHDFailed),
		sampleAlert("web1", base.Add(time.Minute), domain.RuleFail2banBan),
	}
	require.NoError(t, s.SaveAlerts(ctx, alerts))

	got, err := s.ListAlerts(ctx, AlertFilter{Server: "web1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.RuleFail2banBan, got[0].Rule)

	n, err := s.AcknowledgeByRule(ctx, "sshd_failed", "ops")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.UpsertServer(ctx, domain.Server{
		Name: "web1", Host: "10.0.0.5", Port: 22, Username: "ops",
		Logs: []string{"journal:ssh", "/var/log/fail2ban.log"},
	}))
	srv, ok, err := s.GetServer(ctx, "web1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"journal:ssh", "/var/log/fail2ban.log"}, srv.Logs)

	ts := base.Add(90*time.Second + 123*time.Microsecond)
	require.NoError(t, s.SetWatermark(ctx, "web1", "journal:ssh", ts))
	wm, ok, err := s.GetWatermark(ctx, "web1", "journal:ssh")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, wm.Equal(ts))
}
