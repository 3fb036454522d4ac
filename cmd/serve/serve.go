// cmd/serve/serve.go

package serve

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/alerts"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/collector"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/dashboard"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/remote"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/telemetry"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var noWatch bool

// ServeCmd runs the collector loop and the dashboard until interrupted.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector and the dashboard",
	Long: `Run the collection loop and, when web.enabled is set, the HTTP dashboard.
Servers listed in the configuration are copied into the store on first start.
The configuration file is watched and edits apply from the next cycle.

SIGINT or SIGTERM stops the loop after the source being processed.`,
	RunE: vigil_cli.Wrap(runServe),
}

func init() {
	ServeCmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the configuration file on change")
}

func runServe(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, err := vigil_cli.Setup(rc, cmd)
	if err != nil {
		return err
	}
	log := rc.Log

	shutdownTelemetry, err := telemetry.Init("vigil", cfg.Telemetry)
	if err != nil {
		return err
	}

	store, err := vigil_cli.OpenStore(rc, cfg)
	if err != nil {
		_ = shutdownTelemetry(context.Background())
		return err
	}
	if err := collector.SeedServers(rc.Ctx, store, cfg); err != nil {
		_ = store.Close()
		_ = shutdownTelemetry(context.Background())
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	notifier := alerts.NewNotifier(&alerts.SMTPSender{})
	c := collector.New(collector.Deps{
		Store:    store,
		Fetcher:  remote.NewFetcher(remote.NewSSHDialer(cfg.Collection)),
		Notifier: notifier,
		Metrics:  collector.NewMetrics(reg),
	}, cfg)

	sig := vigil_cli.NewSignalHandler(rc.Ctx, shutdownTimeout)
	sig.RegisterCleanup(shutdownTelemetry)
	sig.RegisterCleanup(func(context.Context) error { return store.Close() })
	sig.RegisterCleanup(func(ctx context.Context) error {
		c.Stop()
		select {
		case <-c.Done():
			return nil
		case <-ctx.Done():
			return cerr.Wrap(ctx.Err(), "collector did not stop in time")
		}
	})
	defer func() {
		if err := sig.Shutdown(); err != nil {
			log.Warn("Shutdown finished with errors", zap.Error(err))
		}
	}()
	ctx := sig.Context()

	if !noWatch {
		path := vigil_cli.ConfigPath()
		if err := config.Watch(ctx, path, func(next *config.Config) {
			c.UpdateConfig(next)
			log.Info("Configuration reloaded",
				zap.String("path", path),
				zap.Duration("poll_interval", next.PollInterval()),
				zap.Int("configured_servers", len(next.Servers)))
		}); err != nil {
			log.Warn("Configuration hot reload unavailable", zap.String("path", path), zap.Error(err))
		}
	}

	go func() {
		if err := c.Run(ctx); err != nil {
			log.Error("Collector exited", zap.Error(err))
		}
	}()

	webErr := make(chan error, 1)
	if cfg.Web.Enabled {
		web := dashboard.New(store, c, reg, cfg.Web)
		go func() { webErr <- web.ListenAndServe(ctx) }()
	} else {
		log.Info("Dashboard disabled by configuration")
	}

	log.Info("vigil running",
		zap.Duration("poll_interval", cfg.PollInterval()),
		zap.Bool("email", cfg.Email.Enabled),
		zap.Bool("web", cfg.Web.Enabled),
		zap.String("storage", store.Driver()))

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
		return nil
	case <-c.Done():
		return nil
	case err := <-webErr:
		if err != nil {
			log.Error("Dashboard failed, shutting down", zap.Error(err))
		}
		return err
	}
}
