// cmd/update/exception.go

package update

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

var (
	exceptionValue       string
	exceptionDescription string
	exceptionEnable      bool
	exceptionDisable     bool
)

var exceptionCmd = &cobra.Command{
	Use:   "exception <id>",
	Short: "Change the value, description or state of an exception rule",
	Args:  cobra.ExactArgs(1),
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 0)
		if err != nil || id == 0 {
			return vigil_err.NewExpectedError(fmt.Errorf("invalid exception id %q", args[0]))
		}
		if exceptionEnable && exceptionDisable {
			return vigil_err.NewExpectedError(fmt.Errorf("--enable and --disable are mutually exclusive"))
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

		rules, err := store.ListExceptions(rc.Ctx)
		if err != nil {
			return err
		}
		var rule *domain.ExceptionRule
		for i := range rules {
			if rules[i].ID == uint(id) {
				rule = &rules[i]
				break
			}
		}
		if rule == nil {
			return vigil_err.NewExpectedError(fmt.Errorf("exception %d not found", id))
		}

		if cmd.Flags().Changed("value") {
			rule.Value = strings.TrimSpace(exceptionValue)
		}
		if cmd.Flags().Changed("description") {
			d := exceptionDescription
			rule.Description = &d
		}
		if exceptionEnable {
			rule.Enabled = true
		}
		if exceptionDisable {
			rule.Enabled = false
		}
		if err := rule.Validate(); err != nil {
			return vigil_err.NewExpectedError(err)
		}

		updated, ok, err := store.UpdateException(rc.Ctx, *rule)
		if err != nil {
			return err
		}
		if !ok {
			return vigil_err.NewExpectedError(fmt.Errorf("exception %d not found", id))
		}
		fmt.Fprintf(os.Stdout, "Exception %d updated (%s contains %q, enabled=%t)\n",
			updated.ID, updated.RuleType, updated.Value, updated.Enabled)
		return nil
	}),
}

func init() {
	exceptionCmd.Flags().StringVar(&exceptionValue, "value", "", "New substring to match")
	exceptionCmd.Flags().StringVar(&exceptionDescription, "description", "", "New description")
	exceptionCmd.Flags().BoolVar(&exceptionEnable, "enable", false, "Enable the rule")
	exceptionCmd.Flags().BoolVar(&exceptionDisable, "disable", false, "Disable the rule")
}
