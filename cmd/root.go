/* cmd/root.go */

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Subcommands
	"github.com/CodeMonkeyCybersecurity/vigil/cmd/check"
	"github.com/CodeMonkeyCybersecurity/vigil/cmd/collect"
	"github.com/CodeMonkeyCybersecurity/vigil/cmd/create"
	"github.com/CodeMonkeyCybersecurity/vigil/cmd/delete"
	"github.com/CodeMonkeyCybersecurity/vigil/cmd/read"
	"github.com/CodeMonkeyCybersecurity/vigil/cmd/serve"
	"github.com/CodeMonkeyCybersecurity/vigil/cmd/update"
)

// RootCmd is the base command for vigil.
var RootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Collect SSH security events from remote servers",
	Long: `vigil polls the SSH and fail2ban logs of remote servers, classifies
security events, stores them and notifies operators by email. A dashboard
lists alerts and manages servers and exception rules.`,
	Version:       vigil_io.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Println("No subcommand provided. Try `vigil help`.")
		return cmd.Help()
	}),
}

// HelpCmd wraps help so that it can be invoked like a normal command.
var HelpCmd = &cobra.Command{
	Use:   "help",
	Short: "Help about any command",
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return RootCmd.Help()
		}
		c, _, err := RootCmd.Find(args)
		if err != nil || c == nil {
			return vigil_err.NewExpectedError(fmt.Errorf("command not found: %s", strings.Join(args, " ")))
		}
		return c.Help()
	}),
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	RootCmd.SetHelpCommand(HelpCmd)
	vigil_cli.BindGlobalFlags(RootCmd.PersistentFlags())

	for _, subCmd := range []*cobra.Command{
		serve.ServeCmd,
		collect.CollectCmd,
		check.CheckCmd,
		read.ReadCmd,
		create.CreateCmd,
		delete.DeleteCmd,
		update.UpdateCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command.
func Execute() {
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush logs: %v\n", err)
		}
	}()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		if vigil_err.IsExpectedUserError(err) {
			logger.L().Warn("CLI completed with user error", zap.Error(err))
			vigil_err.PrintError("vigil", err)
			os.Exit(0)
		}
		logger.L().Error("CLI execution error", zap.Error(err))
		vigil_err.PrintError("vigil failed", err)
		os.Exit(vigil_err.GetExitCode(err))
	}
}
