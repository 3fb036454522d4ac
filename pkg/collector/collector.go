// pkg/collector/collector.go

// Package collector runs the collection cycle: fetch each server's log
// sources, keep the lines newer than the stored watermark, classify them,
// drop suppressed alerts, persist the rest and notify.
package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/detect"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/remote"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/suppress"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/telemetry"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/watermark"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// State is the loop's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

const (
	ReasonStartup  = "startup"
	ReasonInterval = "interval"
	ReasonManual   = "manual"
	ReasonOnce     = "once"

	minSleep = time.Second
)

// Store is the persistence the collector needs.
type Store interface {
	watermark.Store
	ListServers(ctx context.Context) ([]domain.Server, error)
	ListEnabledExceptions(ctx context.Context) ([]domain.ExceptionRule, error)
	SaveAlerts(ctx context.Context, alerts []domain.Alert) error
}

// Fetcher reads raw log lines from a server.
type Fetcher interface {
	Fetch(ctx context.Context, server domain.Server, source string, tail int) (remote.Result, error)
}

// Notifier delivers the per-cycle emails.
type Notifier interface {
	NotifyCritical(ctx context.Context, cfg config.EmailConfig, alerts []domain.Alert) error
	NotifyDigest(ctx context.Context, cfg config.EmailConfig, alerts []domain.Alert) error
}

// Deps are the collector's collaborators. Classifier, Metrics and Now
// default when nil.
type Deps struct {
	Store      Store
	Fetcher    Fetcher
	Notifier   Notifier
	Classifier *detect.Classifier
	Metrics    *Metrics
	Now        func() time.Time
}

// Collector owns the polling loop. Run it on its own goroutine; the other
// methods are safe to call from any goroutine.
type Collector struct {
	deps Deps
	cfg  atomic.Pointer[config.Config]

	state    atomic.Int32
	stopping atomic.Bool
	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func New(deps Deps, cfg *config.Config) *Collector {
	if deps.Classifier == nil {
		deps.Classifier = detect.DefaultClassifier()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	c := &Collector{
		deps: deps,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	c.cfg.Store(cfg)
	return c
}

// UpdateConfig swaps the configuration snapshot. It takes effect at the
// start of the next cycle.
func (c *Collector) UpdateConfig(cfg *config.Config) {
	if cfg != nil {
		c.cfg.Store(cfg)
	}
}

func (c *Collector) Config() *config.Config {
	return c.cfg.Load()
}

func (c *Collector) State() State {
	return State(c.state.Load())
}

// Done is closed when Run returns.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// TriggerRefresh wakes the loop early. Requests made while one is already
// pending are coalesced.
func (c *Collector) TriggerRefresh() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Stop asks the loop to exit. The pair being processed finishes; no
// further pair is started.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		c.stopping.Store(true)
		close(c.stop)
	})
}

// Run loops until Stop is called or ctx is cancelled. Cancellation is a
// stop request; it does not abort a fetch already in progress.
func (c *Collector) Run(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return cerr.Newf("collector cannot run from state %s", c.State())
	}
	defer close(c.done)
	defer c.state.Store(int32(StateStopped))

	logger := otelzap.Ctx(ctx)
	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-c.done:
		}
	}()

	work := context.WithoutCancel(ctx)
	reason := ReasonStartup
	logger.Info("Collector started", zap.Duration("interval", c.Config().PollInterval()))

	for !c.stopping.Load() {
		report := c.runCycle(work, reason)
		if c.stopping.Load() {
			break
		}

		wait := c.Config().PollInterval() - report.Duration
		if wait < minSleep {
			wait = minSleep
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			reason = ReasonInterval
		case <-c.wake:
			reason = ReasonManual
			logger.Info("Manual refresh requested, starting cycle early")
		case <-c.stop:
		}
		timer.Stop()
	}

	logger.Info("Collector stopped")
	return nil
}

// RunOnce performs a single cycle outside the loop.
func (c *Collector) RunOnce(ctx context.Context) CycleReport {
	return c.runCycle(ctx, ReasonOnce)
}

// CycleReport summarises one cycle.
type CycleReport struct {
	ID          string
	Reason      string
	Started     time.Time
	Duration    time.Duration
	Servers     int
	Pairs       int
	PairsFailed int
	Lines       int
	Fresh       int
	Detected    int
	Suppressed  map[suppress.Reason]int
	Persisted   int
	Critical    int
	Alerts      []domain.Alert
	Err         error
}

func (r *CycleReport) addErr(err error) {
	r.Err = multierror.Append(r.Err, err)
}

func (c *Collector) runCycle(ctx context.Context, reason string) (report CycleReport) {
	cfg := c.Config()
	now := c.deps.Now()
	report = CycleReport{
		ID:         logger.GenerateTraceID(),
		Reason:     reason,
		Started:    now,
		Suppressed: make(map[suppress.Reason]int),
	}

	ctx, span := telemetry.Start(ctx, "collector.cycle",
		attribute.String("cycle_id", report.ID),
		attribute.String("reason", reason))
	defer span.End()

	logger := otelzap.Ctx(ctx)
	cycleID := zap.String("cycle_id", report.ID)
	switch reason {
	case ReasonManual:
		logger.Info("Collection cycle started by manual refresh", cycleID)
	case ReasonInterval:
		logger.Debug("Collection cycle started by interval", cycleID)
	default:
		logger.Info("Collection cycle started", cycleID, zap.String("reason", reason))
	}

	defer func() {
		report.Duration = c.deps.Now().Sub(report.Started)
		c.deps.Metrics.Cycles.WithLabelValues(reason).Inc()
		c.deps.Metrics.CycleDuration.Observe(report.Duration.Seconds())
		c.deps.Metrics.LastCycle.SetToCurrentTime()
		span.SetAttributes(
			attribute.Int("alerts.new", len(report.Alerts)),
			attribute.Int("pairs.failed", report.PairsFailed))
	}()

	servers, err := c.deps.Store.ListServers(ctx)
	if err != nil {
		logger.Error("Failed to load servers, skipping cycle", cycleID, zap.Error(err))
		report.addErr(err)
		return report
	}
	report.Servers = len(servers)

	exceptions, err := c.deps.Store.ListEnabledExceptions(ctx)
	if err != nil {
		logger.Error("Failed to load exception rules, continuing without them", cycleID, zap.Error(err))
		report.addErr(err)
	}
	filter := suppress.NewFilter(cfg.Collection.IgnoreSourceIPs, exceptions, cfg.Collection.MonitoringMarkers)

	var newAlerts []domain.Alert
pairs:
	for _, server := range servers {
		for _, source := range server.Sources() {
			if c.stopping.Load() {
				logger.Info("Stop requested, leaving remaining sources for the next run", cycleID)
				break pairs
			}
			newAlerts = append(newAlerts, c.processPair(ctx, cfg, filter, server, source, &report)...)
		}
	}

	report.Alerts = newAlerts
	critical := domain.PartitionCritical(newAlerts)
	report.Critical = len(critical)
	c.notify(ctx, cfg, critical, newAlerts)

	logger.Info("Collection cycle finished",
		cycleID,
		zap.Int("servers", report.Servers),
		zap.Int("pairs", report.Pairs),
		zap.Int("pairs_failed", report.PairsFailed),
		zap.Int("new_alerts", len(newAlerts)),
		zap.Int("critical", report.Critical),
		zap.Duration("elapsed", c.deps.Now().Sub(report.Started)))
	return report
}

// processPair handles one server and log source. It returns the alerts
// that were persisted.
func (c *Collector) processPair(ctx context.Context, cfg *config.Config, filter *suppress.Filter,
	server domain.Server, source string, report *CycleReport) []domain.Alert {

	report.Pairs++
	ctx, span := telemetry.Start(ctx, "collector.pair",
		attribute.String("server", server.Name),
		attribute.String("source", source))
	defer span.End()
	logger := otelzap.Ctx(ctx)
	pair := []zap.Field{zap.String("server", server.Name), zap.String("source", source)}

	res, err := c.deps.Fetcher.Fetch(ctx, server, source, cfg.Collection.TailLines)
	if err != nil {
		logger.Warn("Failed to fetch log source, skipping for this cycle", append(pair, zap.Error(err))...)
		c.deps.Metrics.FetchErrors.WithLabelValues(server.Name).Inc()
		report.PairsFailed++
		report.addErr(cerr.Wrapf(err, "fetch %s %s", server.Name, source))
		return nil
	}
	logID := res.LogIdentifier
	if logID == "" {
		logID = source
	}
	report.Lines += len(res.Lines)

	stored, ok, err := c.deps.Store.GetWatermark(ctx, server.Name, logID)
	if err != nil {
		logger.Error("Failed to read watermark, skipping source", append(pair, zap.String("log", logID), zap.Error(err))...)
		report.PairsFailed++
		report.addErr(err)
		return nil
	}
	var last *time.Time
	if ok {
		last = &stored
	}

	now := c.deps.Now()
	sel := watermark.Select(res.Lines, last, now)
	report.Fresh += len(sel.Fresh)

	detected := c.deps.Classifier.Detect(server.Name, logID, sel.Fresh, now)
	report.Detected += len(detected)
	for _, a := range detected {
		c.deps.Metrics.Detected.WithLabelValues(server.Name, a.Rule.String()).Inc()
	}

	kept, dropped := filter.Apply(detected)
	for reason, n := range dropped {
		report.Suppressed[reason] += n
		c.deps.Metrics.Suppressed.WithLabelValues(string(reason)).Add(float64(n))
	}

	var persisted []domain.Alert
	if len(kept) > 0 {
		if err := c.deps.Store.SaveAlerts(ctx, kept); err != nil {
			logger.Error("Failed to persist alerts, they will not be notified",
				append(pair, zap.Int("alerts", len(kept)), zap.Error(err))...)
			report.addErr(err)
		} else {
			persisted = kept
			report.Persisted += len(kept)
			c.deps.Metrics.Persisted.Add(float64(len(kept)))
		}
	}

	// advances even when persistence failed so a broken store does not
	// cause the same lines to alert forever
	if sel.HasNewest {
		next := watermark.Advance(last, sel.Newest)
		if err := c.deps.Store.SetWatermark(ctx, server.Name, logID, next); err != nil {
			logger.Error("Failed to store watermark", append(pair, zap.String("log", logID), zap.Error(err))...)
			report.addErr(err)
		}
	}

	logger.Debug("Processed log source", append(pair,
		zap.String("log", logID),
		zap.Int("lines", len(res.Lines)),
		zap.Int("fresh", len(sel.Fresh)),
		zap.Int("detected", len(detected)),
		zap.Int("persisted", len(persisted)))...)
	return persisted
}

func (c *Collector) notify(ctx context.Context, cfg *config.Config, critical, all []domain.Alert) {
	if !cfg.Email.Enabled || c.deps.Notifier == nil {
		return
	}
	logger := otelzap.Ctx(ctx)

	if len(critical) > 0 {
		outcome := "sent"
		if err := c.deps.Notifier.NotifyCritical(ctx, cfg.Email, critical); err != nil {
			outcome = "failed"
			logger.Warn("Critical notification failed", zap.Error(err))
		}
		c.deps.Metrics.Notifications.WithLabelValues("critical", outcome).Inc()
	}
	if len(all) > 0 {
		outcome := "sent"
		if err := c.deps.Notifier.NotifyDigest(ctx, cfg.Email, all); err != nil {
			outcome = "failed"
			logger.Warn("Digest notification failed", zap.Error(err))
		}
		c.deps.Metrics.Notifications.WithLabelValues("digest", outcome).Inc()
	}
}
