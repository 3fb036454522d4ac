// cmd/read/alerts.go

package read

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/storage"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

var (
	alertServer  string
	alertLevel   string
	alertRule    string
	alertSince   time.Duration
	alertUnacked bool
	alertLimit   int
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List stored alerts, newest first",
	Example: `  vigil read alerts --unacked --level high
  vigil read alerts --server web1 --since 24h --format json`,
	Args: cobra.NoArgs,
	RunE: vigil_cli.Wrap(runReadAlerts),
}

func init() {
	alertsCmd.Flags().StringVar(&alertServer, "server", "", "Only alerts from this server")
	alertsCmd.Flags().StringVar(&alertLevel, "level", "", "Only alerts of this level (high, medium, info)")
	alertsCmd.Flags().StringVar(&alertRule, "rule", "", "Only alerts from this rule")
	alertsCmd.Flags().DurationVar(&alertSince, "since", 0, "Only alerts newer than this age, e.g. 24h")
	alertsCmd.Flags().BoolVar(&alertUnacked, "unacked", false, "Only unacknowledged alerts")
	alertsCmd.Flags().IntVar(&alertLimit, "limit", storage.DefaultAlertLimit, "Maximum number of alerts")
}

func runReadAlerts(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	f := storage.AlertFilter{
		Server: alertServer,
		Rule:   alertRule,
		Limit:  alertLimit,
	}
	if alertLevel != "" {
		f.Level = domain.Level(strings.ToLower(alertLevel))
		if !f.Level.Valid() {
			return vigil_err.NewExpectedError(fmt.Errorf("unknown level %q (use high, medium or info)", alertLevel))
		}
	}
	if alertSince > 0 {
		since := time.Now().Add(-alertSince)
		f.Since = &since
	}
	if alertUnacked {
		acked := false
		f.Acknowledged = &acked
	}

	cfg, err := vigil_cli.Setup(rc, cmd)
	if err != nil {
		return err
	}
	store, err := vigil_cli.OpenStore(rc, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	alerts, err := store.ListAlerts(rc.Ctx, f)
	if err != nil {
		return err
	}

	tbl := vigil_cli.Table{Header: []string{"ID", "TIME", "LEVEL", "SERVER", "RULE", "IP", "USER", "ACK"}}
	for _, a := range alerts {
		ack := "-"
		if a.Acknowledged {
			ack = vigil_cli.OrDash(a.AcknowledgedBy)
		}
		tbl.Rows = append(tbl.Rows, []string{
			strconv.FormatUint(uint64(a.ID), 10),
			a.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(a.Level),
			a.ServerName,
			a.Rule.String(),
			vigil_cli.OrDash(a.IPAddress),
			vigil_cli.OrDash(a.Username),
			ack,
		})
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	return vigil_cli.Render(os.Stdout, format, alerts, tbl)
}
