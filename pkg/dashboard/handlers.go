// pkg/dashboard/handlers.go

package dashboard

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/remote"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/storage"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const defaultAcknowledger = "dashboard"

// fail writes err as a JSON error. Validation errors are the caller's
// fault and are echoed; everything else is logged and hidden.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if vigil_err.IsCategory(err, vigil_err.CategoryValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      "internal error",
		"request_id": c.GetString(requestIDKey),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func notFoundJSON(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok", "time": s.now().UTC().Format(time.RFC3339), "database": "ok"}
	if err := s.store.Ping(c.Request.Context()); err != nil {
		otelzap.Ctx(c.Request.Context()).Warn("Health check: database unreachable", zap.Error(err))
		body["status"] = "degraded"
		body["database"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Links": []string{"/alerts", "/ui/alerts", "/servers", "/ui/servers", "/exceptions", "/metrics", "/health"},
	})
}

// alertFilterFromQuery reads limit, since, server, level, rule and
// acknowledged.
func alertFilterFromQuery(c *gin.Context) (storage.AlertFilter, error) {
	f := storage.AlertFilter{
		Server: strings.TrimSpace(c.Query("server")),
		Rule:   strings.TrimSpace(c.Query("rule")),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, vigil_err.NewValidationError("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := c.Query("since"); v != "" {
		t, ok := parseSince(v)
		if !ok {
			return f, vigil_err.NewValidationError("since must be an ISO-8601 timestamp", "e.g. 2024-03-10T12:00:00Z")
		}
		f.Since = &t
	}
	if v := c.Query("level"); v != "" {
		lvl := domain.Level(strings.ToLower(v))
		if !lvl.Valid() {
			return f, vigil_err.NewValidationError("level must be one of high, medium, info")
		}
		f.Level = lvl
	}
	if v := c.Query("acknowledged"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, vigil_err.NewValidationError("acknowledged must be true or false")
		}
		f.Acknowledged = &b
	}
	return f, nil
}

var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseSince accepts RFC 3339 and zone-less ISO forms. Zone-less values
// are taken as UTC.
func parseSince(v string) (time.Time, bool) {
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *Server) listAlerts(c *gin.Context) {
	f, err := alertFilterFromQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	alerts, err := s.store.ListAlerts(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) alertSummary(c *gin.Context) {
	ctx := c.Request.Context()
	all, err := s.store.CountAlerts(ctx, false)
	if err != nil {
		fail(c, err)
		return
	}
	open, err := s.store.CountAlerts(ctx, true)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": all, "unacknowledged": open})
}

type ackRequest struct {
	Rule           string `json:"rule"`
	AcknowledgedBy string `json:"acknowledged_by"`
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !cerr.Is(err, io.EOF) {
		return vigil_err.NewValidationError("invalid JSON body: " + err.Error())
	}
	return nil
}

func acknowledger(req ackRequest) string {
	if by := strings.TrimSpace(req.AcknowledgedBy); by != "" {
		return by
	}
	return defaultAcknowledger
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

func (s *Server) ackAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	by := acknowledger(req)
	found, err := s.store.AcknowledgeAlert(c.Request.Context(), id, by)
	if err != nil {
		fail(c, err)
		return
	}
	if !found {
		notFoundJSON(c, "alert")
		return
	}
	otelzap.Ctx(c.Request.Context()).Info("Alert acknowledged", zap.Uint("alert_id", id), zap.String("by", by))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": id})
}

func (s *Server) ackByRule(c *gin.Context) {
	var req ackRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	rule := strings.TrimSpace(req.Rule)
	if rule == "" {
		badRequest(c, "rule is required")
		return
	}
	by := acknowledger(req)
	n, err := s.store.AcknowledgeByRule(c.Request.Context(), rule, by)
	if err != nil {
		fail(c, err)
		return
	}
	otelzap.Ctx(c.Request.Context()).Info("Alerts acknowledged by rule",
		zap.String("rule", rule), zap.Int64("count", n), zap.String("by", by))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "acknowledged": n})
}

func (s *Server) deleteAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	found, err := s.store.DeleteAlert(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !found {
		notFoundJSON(c, "alert")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": id})
}

// serverView is a server as the API shows it: the password is reduced to
// has_password.
type serverView struct {
	Name           string   `json:"name"`
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	Username       string   `json:"username"`
	PrivateKeyPath *string  `json:"private_key_path"`
	Logs           []string `json:"logs"`
	HasPassword    bool     `json:"has_password"`
}

func toServerView(s domain.Server) serverView {
	logs := s.Logs
	if logs == nil {
		logs = []string{}
	}
	return serverView{
		Name:           s.Name,
		Host:           s.Host,
		Port:           s.Port,
		Username:       s.Username,
		PrivateKeyPath: s.PrivateKeyPath,
		Logs:           logs,
		HasPassword:    s.HasPassword(),
	}
}

func (s *Server) listServers(c *gin.Context) {
	servers, err := s.store.ListServers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]serverView, len(servers))
	for i, srv := range servers {
		out[i] = toServerView(srv)
	}
	c.JSON(http.StatusOK, out)
}

type serverRequest struct {
	Name           string   `json:"name" binding:"required"`
	Host           string   `json:"host" binding:"required"`
	Port           int      `json:"port" binding:"required,min=1,max=65535"`
	Username       string   `json:"username" binding:"required"`
	Password       *string  `json:"password"`
	PrivateKeyPath *string  `json:"private_key_path"`
	Logs           []string `json:"logs"`
}

func optional(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

func (req serverRequest) toDomain() (domain.Server, error) {
	srv := domain.Server{
		Name:           strings.TrimSpace(req.Name),
		Host:           strings.TrimSpace(req.Host),
		Port:           req.Port,
		Username:       strings.TrimSpace(req.Username),
		PrivateKeyPath: optional(req.PrivateKeyPath),
	}
	if req.Password != nil && *req.Password != "" {
		pw := *req.Password
		srv.Password = &pw
	}
	if srv.Name == "" || srv.Host == "" || srv.Username == "" {
		return srv, vigil_err.NewValidationError("name, host and username must not be blank")
	}
	for _, raw := range req.Logs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, err := remote.ParseSource(raw); err != nil {
			return srv, vigil_err.NewValidationError(err.Error(), "use a file path, journal:<unit> or ssh:auto")
		}
		srv.Logs = append(srv.Logs, raw)
	}
	return srv, nil
}

func (s *Server) upsertServer(c *gin.Context) {
	var req serverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	srv, err := req.toDomain()
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.UpsertServer(c.Request.Context(), srv); err != nil {
		fail(c, err)
		return
	}
	otelzap.Ctx(c.Request.Context()).Info("Upserted server",
		zap.String("server", srv.Name),
		zap.String("host", srv.Host),
		zap.Int("port", srv.Port))
	s.triggerRefresh()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "server": toServerView(srv)})
}

func (s *Server) deleteServer(c *gin.Context) {
	name := c.Param("name")
	found, err := s.store.DeleteServer(c.Request.Context(), name)
	if err != nil {
		fail(c, err)
		return
	}
	if !found {
		notFoundJSON(c, "server")
		return
	}
	otelzap.Ctx(c.Request.Context()).Info("Deleted server", zap.String("server", name))
	s.triggerRefresh()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "name": name})
}

func (s *Server) listExceptions(c *gin.Context) {
	rules, err := s.store.ListExceptions(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if rules == nil {
		rules = []domain.ExceptionRule{}
	}
	c.JSON(http.StatusOK, rules)
}

type exceptionRequest struct {
	RuleType    string  `json:"rule_type" binding:"required"`
	Value       string  `json:"value" binding:"required"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

func (req exceptionRequest) toDomain() domain.ExceptionRule {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return domain.ExceptionRule{
		RuleType:    domain.ExceptionType(strings.ToLower(strings.TrimSpace(req.RuleType))),
		Value:       req.Value,
		Description: optional(req.Description),
		Enabled:     enabled,
	}
}

func (s *Server) createException(c *gin.Context) {
	var req exceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rule, err := s.store.CreateException(c.Request.Context(), req.toDomain())
	if err != nil {
		fail(c, err)
		return
	}
	otelzap.Ctx(c.Request.Context()).Info("Created exception rule",
		zap.Uint("exception_id", rule.ID),
		zap.String("rule_type", string(rule.RuleType)),
		zap.String("value", rule.Value))
	c.JSON(http.StatusCreated, rule)
}

func (s *Server) updateException(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req exceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	rule := req.toDomain()
	rule.ID = id
	updated, found, err := s.store.UpdateException(c.Request.Context(), rule)
	if err != nil {
		fail(c, err)
		return
	}
	if !found {
		notFoundJSON(c, "exception")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteException(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	found, err := s.store.DeleteException(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !found {
		notFoundJSON(c, "exception")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "id": id})
}

func (s *Server) refresh(c *gin.Context) {
	s.triggerRefresh()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh requested"})
}
