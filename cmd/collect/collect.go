// cmd/collect/collect.go

package collect

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/alerts"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/collector"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/remote"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/suppress"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	noNotify bool
	format   string
)

// CollectCmd runs a single collection cycle and prints what it found.
var CollectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection cycle and exit",
	Long: `Fetch every configured log source once, store new alerts, advance the
watermarks and send the usual notifications. Useful from cron or to test a
new server before running 'vigil serve'.`,
	RunE: vigil_cli.Wrap(runCollect),
}

func init() {
	CollectCmd.Flags().BoolVar(&noNotify, "no-notify", false, "Do not send email for this cycle")
	CollectCmd.Flags().StringVar(&format, "format", vigil_cli.FormatTable, "Output format (table, json, yaml)")
}

func runCollect(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	cfg, err := vigil_cli.Setup(rc, cmd)
	if err != nil {
		return err
	}
	if noNotify {
		cfg.Email.Enabled = false
	}

	store, err := vigil_cli.OpenStore(rc, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := collector.SeedServers(rc.Ctx, store, cfg); err != nil {
		return err
	}

	c := collector.New(collector.Deps{
		Store:    store,
		Fetcher:  remote.NewFetcher(remote.NewSSHDialer(cfg.Collection)),
		Notifier: alerts.NewNotifier(&alerts.SMTPSender{}),
	}, cfg)
	report := c.RunOnce(rc.Ctx)

	rc.Attributes["cycle_id"] = report.ID
	rc.Log.Info("Cycle complete",
		zap.Int("pairs", report.Pairs),
		zap.Int("pairs_failed", report.PairsFailed),
		zap.Int("new_alerts", len(report.Alerts)))

	tbl := vigil_cli.Table{Header: []string{"TIME", "LEVEL", "SERVER", "LOG", "RULE", "IP", "USER"}}
	for _, a := range report.Alerts {
		tbl.Rows = append(tbl.Rows, []string{
			a.Timestamp.Format("2006-01-02 15:04:05"),
			string(a.Level),
			a.ServerName,
			a.SourceLog,
			a.Rule.String(),
			vigil_cli.OrDash(a.IPAddress),
			vigil_cli.OrDash(a.Username),
		})
	}
	if err := vigil_cli.Render(os.Stdout, format, report.Alerts, tbl); err != nil {
		return err
	}

	if format == vigil_cli.FormatTable || format == "" {
		fmt.Fprintf(os.Stdout, "\n%d server(s), %d source(s), %d failed, %d line(s) read, %d fresh, %d detected, %d suppressed%s\n",
			report.Servers, report.Pairs, report.PairsFailed, report.Lines, report.Fresh,
			report.Detected, totalSuppressed(report), suppressedDetail(report))
	}

	// partial failures are reported, not fatal
	if report.Err != nil && report.PairsFailed == report.Pairs {
		return report.Err
	}
	return nil
}

func totalSuppressed(r collector.CycleReport) int {
	n := 0
	for _, v := range r.Suppressed {
		n += v
	}
	return n
}

func suppressedDetail(r collector.CycleReport) string {
	if len(r.Suppressed) == 0 {
		return ""
	}
	keys := make([]string, 0, len(r.Suppressed))
	for k := range r.Suppressed {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := " ("
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += k + "=" + strconv.Itoa(r.Suppressed[suppress.Reason(k)])
	}
	return out + ")"
}
