// cmd/update/ack.go

package update

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ackRule string
	ackBy   string
)

var ackCmd = &cobra.Command{
	Use:   "ack [id...]",
	Short: "Acknowledge alerts by id or every open alert of a rule",
	Example: `  vigil update ack 42 43
  vigil update ack --rule sshd_accepted --by alice`,
	RunE: vigil_cli.Wrap(runAck),
}

func init() {
	ackCmd.Flags().StringVar(&ackRule, "rule", "", "Acknowledge every unacknowledged alert of this rule")
	ackCmd.Flags().StringVar(&ackBy, "by", "", "Name recorded as the acknowledger (default: $USER)")
}

func runAck(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (ackRule == "") {
		return vigil_err.NewExpectedError(fmt.Errorf("give alert ids or --rule, not both"))
	}
	ids := make([]uint, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 0)
		if err != nil || id == 0 {
			return vigil_err.NewExpectedError(fmt.Errorf("invalid alert id %q", a))
		}
		ids = append(ids, uint(id))
	}
	by := strings.TrimSpace(ackBy)
	if by == "" {
		by = os.Getenv("USER")
	}
	if by == "" {
		by = "cli"
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

	if ackRule != "" {
		n, err := store.AcknowledgeByRule(rc.Ctx, ackRule, by)
		if err != nil {
			return err
		}
		rc.Log.Info("Acknowledged alerts by rule", zap.String("rule", ackRule), zap.Int64("count", n), zap.String("by", by))
		fmt.Fprintf(os.Stdout, "%d alert(s) of rule %s acknowledged\n", n, ackRule)
		return nil
	}

	var missing []string
	for _, id := range ids {
		ok, err := store.AcknowledgeAlert(rc.Ctx, id, by)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, strconv.FormatUint(uint64(id), 10))
		}
	}
	fmt.Fprintf(os.Stdout, "%d alert(s) acknowledged\n", len(ids)-len(missing))
	if len(missing) > 0 {
		return vigil_err.NewExpectedError(fmt.Errorf("alert(s) not found: %s", strings.Join(missing, ", ")))
	}
	return nil
}
