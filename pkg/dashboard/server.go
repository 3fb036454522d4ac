// pkg/dashboard/server.go

// Package dashboard serves the JSON API, the HTML views and the Prometheus
// endpoint. It reads and writes through the record store and pokes the
// collector when the server list changes.
package dashboard

import (
	"context"
	"embed"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/storage"
	cerr "github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 5 * time.Second

// Store is the persistence the dashboard reads and mutates.
type Store interface {
	Ping(ctx context.Context) error

	ListAlerts(ctx context.Context, f storage.AlertFilter) ([]domain.Alert, error)
	AcknowledgeAlert(ctx context.Context, id uint, by string) (bool, error)
	AcknowledgeByRule(ctx context.Context, rule string, by string) (int64, error)
	DeleteAlert(ctx context.Context, id uint) (bool, error)
	CountAlerts(ctx context.Context, unacknowledgedOnly bool) (map[domain.Level]int64, error)

	ListServers(ctx context.Context) ([]domain.Server, error)
	UpsertServer(ctx context.Context, srv domain.Server) error
	DeleteServer(ctx context.Context, name string) (bool, error)

	ListExceptions(ctx context.Context) ([]domain.ExceptionRule, error)
	CreateException(ctx context.Context, rule domain.ExceptionRule) (domain.ExceptionRule, error)
	UpdateException(ctx context.Context, rule domain.ExceptionRule) (domain.ExceptionRule, bool, error)
	DeleteException(ctx context.Context, id uint) (bool, error)
}

// Refresher wakes the collector early.
type Refresher interface {
	TriggerRefresh()
}

type Server struct {
	store     Store
	refresher Refresher
	gatherer  prometheus.Gatherer
	limiter   *rate.Limiter
	cfg       config.WebConfig
	engine    *gin.Engine
	now       func() time.Time
}

// New builds the router. refresher and gatherer may be nil; without a
// gatherer /metrics serves the default registry.
func New(store Store, refresher Refresher, gatherer prometheus.Gatherer, cfg config.WebConfig) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	perSecond := cfg.WriteRatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := int(perSecond * 2)
	if burst < 1 {
		burst = 1
	}

	s := &Server{
		store:     store,
		refresher: refresher,
		gatherer:  gatherer,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), burst),
		cfg:       cfg,
		now:       time.Now,
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Server) routes() *gin.Engine {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(requestID(), accessLog(), recovery())
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(viewFuncs).ParseFS(templateFS, "templates/*.html")))

	r.GET("/health", s.health)
	r.GET("/", s.index)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	r.GET("/alerts", s.listAlerts)
	r.GET("/alerts/summary", s.alertSummary)
	r.GET("/servers", s.listServers)
	r.GET("/exceptions", s.listExceptions)

	w := r.Group("/", writeLimit(s.limiter))
	w.POST("alerts/ack", s.ackByRule)
	w.POST("alerts/:id/ack", s.ackAlert)
	w.DELETE("alerts/:id", s.deleteAlert)
	w.POST("servers", s.upsertServer)
	w.DELETE("servers/:name", s.deleteServer)
	w.POST("exceptions", s.createException)
	w.PUT("exceptions/:id", s.updateException)
	w.DELETE("exceptions/:id", s.deleteException)
	w.POST("refresh", s.refresh)

	r.GET("/ui/alerts", s.uiAlerts)
	r.GET("/ui/servers", s.uiServers)
	return r
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	logger := otelzap.Ctx(ctx)
	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Dashboard listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if cerr.Is(err, http.ErrServerClosed) {
			return nil
		}
		return cerr.Wrapf(err, "dashboard listen on %s", srv.Addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Dashboard shutdown did not complete cleanly", zap.Error(err))
		return cerr.Wrap(err, "dashboard shutdown")
	}
	logger.Info("Dashboard stopped")
	return nil
}

func (s *Server) triggerRefresh() {
	if s.refresher != nil {
		s.refresher.TriggerRefresh()
	}
}
