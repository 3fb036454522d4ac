package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingRefresher struct{ n atomic.Int32 }

func (r *countingRefresher) TriggerRefresh() { r.n.Add(1) }

type fixture struct {
	store     *storage.Store
	refresher *countingRefresher
	handler   http.Handler
}

func newFixture(t *testing.T, cfg config.WebConfig) *fixture {
	t.Helper()
	store, err := storage.Open(context.Background(), config.StorageConfig{Driver: "sqlite", SQLitePath: ":memory:"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if cfg.WriteRatePerSecond == 0 {
		cfg.WriteRatePerSecond = 1000
	}
	reg := prometheus.NewRegistry()
	probe := prometheus.NewCounter(prometheus.CounterOpts{Name: "vigil_probe_total", Help: "probe"})
	reg.MustRegister(probe)
	probe.Inc()

	ref := &countingRefresher{}
	return &fixture{store: store, refresher: ref, handler: New(store, ref, reg, cfg).Handler()}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func seedAlerts(t *testing.T, s *storage.Store) []domain.Alert {
	t.Helper()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	alerts := []domain.Alert{
		{ServerName: "web1", SourceLog: "journal:ssh", Timestamp: base, Level: domain.LevelMedium,
			Rule: domain.RuleSSHDFailed, Message: "Failed password for root from 10.0.0.5", IPAddress: domain.Ptr("10.0.0.5")},
		{ServerName: "web1", SourceLog: "journal:ssh", Timestamp: base.Add(time.Minute), Level: domain.LevelInfo,
			Rule: domain.RuleSSHDAccepted, Message: "Accepted publickey for alice", Username: domain.Ptr("alice")},
		{ServerName: "db1", SourceLog: "/var/log/auth.log", Timestamp: base.Add(2 * time.Minute), Level: domain.LevelMedium,
			Rule: domain.RuleSSHDFailed, Message: "Failed password for <script>x</script>"},
	}
	require.NoError(t, s.SaveAlerts(context.Background(), alerts))
	return alerts
}

func TestHealthAndIndex(t *testing.T) {
	f := newFixture(t, config.WebConfig{})

	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/ui/alerts"`)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, config.WebConfig{})
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vigil_probe_total 1")
}

func TestListAlerts(t *testing.T) {
	f := newFixture(t, config.WebConfig{})
	seedAlerts(t, f.store)

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{name: "all", query: "", status: http.StatusOK, count: 3},
		{name: "by server", query: "?server=web1", status: http.StatusOK, count: 2},
		{name: "by level", query: "?level=info", status: http.StatusOK, count: 1},
		{name: "limit", query: "?limit=1", status: http.StatusOK, count: 1},
		{name: "since", query: "?since=2024-03-10T12:01:00Z", status: http.StatusOK, count: 2},
		{name: "since zone-less", query: "?since=2024-03-10T12:02:00", status: http.StatusOK, count: 1},
		{name: "unacknowledged", query: "?acknowledged=false", status: http.StatusOK, count: 3},
		{name: "bad level", query: "?level=loud", status: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=-3", status: http.StatusBadRequest},
		{name: "bad since", query: "?since=yesterday", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/alerts"+tt.query, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var got []map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Len(t, got, tt.count)
		})
	}
}

func TestListAlerts_NewestFirstWithRuleNames(t *testing.T) {
	f := newFixture(t, config.WebConfig{})
	seedAlerts(t, f.store)

	rec := f.do(t, http.MethodGet, "/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "db1", got[0].ServerName)
	assert.Contains(t, rec.Body.String(), `"rule":"sshd_failed"`)
}

func TestAcknowledge(t *testing.T) {
	f := newFixture(t, config.WebConfig{})
	seedAlerts(t, f.store)
	all, err := f.store.ListAlerts(context.Background(), storage.AlertFilter{Server: "web1", Rule: "sshd_accepted"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	id := all[0].ID

	rec := f.do(t, http.MethodPost, "/alerts/"+uintString(id)+"/ack", `{"acknowledged_by":"ops"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/alerts/99999/ack", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/alerts/abc/ack", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/alerts/ack", `{"rule":"sshd_failed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"acknowledged":2`)

	rec = f.do(t, http.MethodPost, "/alerts/ack", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	acked := true
	done, err := f.store.ListAlerts(context.Background(), storage.AlertFilter{Acknowledged: &acked})
	require.NoError(t, err)
	require.Len(t, done, 3)
	for _, a := range done {
		if a.ID == id {
			require.NotNil(t, a.AcknowledgedBy)
			assert.Equal(t, "ops", *a.AcknowledgedBy)
		} else {
			require.NotNil(t, a.AcknowledgedBy)
			assert.Equal(t, defaultAcknowledger, *a.AcknowledgedBy)
		}
	}

	rec = f.do(t, http.MethodGet, "/alerts/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unacknowledged":{}`)
}

func TestDeleteAlert(t *testing.T) {
	f := newFixture(t, config.WebConfig{})
	seedAlerts(t, f.store)
	all, err := f.store.ListAlerts(context.Background(), storage.AlertFilter{})
	require.NoError(t, err)

	rec := f.do(t, http.MethodDelete, "/alerts/"+uintString(all[0].ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodDelete, "/alerts/"+uintString(all[0].ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	left, err := f.store.ListAlerts(context.Background(), storage.AlertFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestServers(t *testing.T) {
	f := newFixture(t, config.WebConfig{})

	rec := f.do(t, http.MethodPost, "/servers",
		`{"name":" web1 ","host":"10.0.0.1","port":22,"username":"vigil","password":"s3cret","logs":["journal:ssh"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "s3cret")
	assert.Equal(t, int32(1), f.refresher.n.Load())

	rec = f.do(t, http.MethodGet, "/servers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "web1", got[0]["name"])
	assert.Equal(t, true, got[0]["has_password"])
	_, leaked := got[0]["password"]
	assert.False(t, leaked)

	bad := []struct {
		name string
		body string
	}{
		{name: "missing host", body: `{"name":"x","port":22,"username":"u"}`},
		{name: "port out of range", body: `{"name":"x","host":"h","port":70000,"username":"u"}`},
		{name: "blank name", body: `{"name":"  ","host":"h","port":22,"username":"u"}`},
		{name: "bad source", body: `{"name":"x","host":"h","port":22,"username":"u","logs":["journal:"]}`},
		{name: "not json", body: `name=x`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/servers", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, int32(1), f.refresher.n.Load(), "rejected writes do not wake the collector")

	rec = f.do(t, http.MethodDelete, "/servers/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/servers/web1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), f.refresher.n.Load())
}

func TestExceptionsCRUD(t *testing.T) {
	f := newFixture(t, config.WebConfig{})

	rec := f.do(t, http.MethodPost, "/exceptions", `{"rule_type":"ip","value":"10.0.0.","description":"lan"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.ExceptionRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.True(t, created.Enabled)

	rec = f.do(t, http.MethodPost, "/exceptions", `{"rule_type":"planet","value":"mars"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/exceptions/"+uintString(created.ID), `{"rule_type":"ip","value":"10.0.","enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.ExceptionRule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "10.0.", updated.Value)
	assert.False(t, updated.Enabled)
	assert.NotNil(t, updated.UpdatedAt)

	rec = f.do(t, http.MethodPut, "/exceptions/424242", `{"rule_type":"ip","value":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/exceptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":"10.0."`)

	rec = f.do(t, http.MethodDelete, "/exceptions/"+uintString(created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/exceptions", "")
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestWriteRateLimit(t *testing.T) {
	f := newFixture(t, config.WebConfig{WriteRatePerSecond: 0.01})

	first := f.do(t, http.MethodPost, "/refresh", "")
	require.Equal(t, http.StatusAccepted, first.Code)
	second := f.do(t, http.MethodPost, "/refresh", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, int32(1), f.refresher.n.Load())

	// reads are not throttled
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/servers", "").Code)
}

func TestUIPages(t *testing.T) {
	f := newFixture(t, config.WebConfig{})
	seedAlerts(t, f.store)
	require.NoError(t, f.store.UpsertServer(context.Background(), domain.Server{Name: "web1", Host: "10.0.0.1", Port: 22, Username: "vigil"}))

	rec := f.do(t, http.MethodGet, "/ui/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "sshd_failed")
	assert.Contains(t, body, "&lt;script&gt;x&lt;/script&gt;")
	assert.NotContains(t, body, "<script>x</script>")

	rec = f.do(t, http.MethodGet, "/ui/alerts?server=db1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "alice")

	rec = f.do(t, http.MethodGet, "/ui/servers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "10.0.0.1")
	assert.Contains(t, rec.Body.String(), "auto")
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
