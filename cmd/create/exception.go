// cmd/create/exception.go

package create

import (
	"fmt"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exceptionType        string
	exceptionValue       string
	exceptionDescription string
	exceptionDisabled    bool
)

var exceptionCmd = &cobra.Command{
	Use:   "exception",
	Short: "Add an exception rule that suppresses matching alerts",
	Long: `Add an exception rule. An alert is suppressed when the field selected by
--type contains --value. Types: ip, username, server, log_source,
rule_pattern.`,
	Example: `  vigil create exception --type ip --value 203.0.113.7 --description "office VPN"
  vigil create exception --type rule_pattern --value sshd_accepted`,
	Args: cobra.NoArgs,
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		rule := domain.ExceptionRule{
			RuleType: domain.ExceptionType(strings.ToLower(strings.TrimSpace(exceptionType))),
			Value:    strings.TrimSpace(exceptionValue),
			Enabled:  !exceptionDisabled,
		}
		if exceptionDescription != "" {
			d := exceptionDescription
			rule.Description = &d
		}
		if err := rule.Validate(); err != nil {
			return vigil_err.NewExpectedError(err)
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

		created, err := store.CreateException(rc.Ctx, rule)
		if err != nil {
			return err
		}
		rc.Log.Info("Exception rule created",
			zap.Uint("id", created.ID),
			zap.String("type", string(created.RuleType)),
			zap.String("value", created.Value))
		fmt.Fprintf(os.Stdout, "Exception %d created (%s contains %q)\n", created.ID, created.RuleType, created.Value)
		return nil
	}),
}

func init() {
	exceptionCmd.Flags().StringVar(&exceptionType, "type", "", "Field to match (ip, username, server, log_source, rule_pattern)")
	exceptionCmd.Flags().StringVar(&exceptionValue, "value", "", "Substring to match")
	exceptionCmd.Flags().StringVar(&exceptionDescription, "description", "", "Free-form note")
	exceptionCmd.Flags().BoolVar(&exceptionDisabled, "disabled", false, "Create the rule disabled")
	_ = exceptionCmd.MarkFlagRequired("type")
	_ = exceptionCmd.MarkFlagRequired("value")
}
