// cmd/check/check.go

package check

import (
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

// CheckCmd represents the 'vigil check' command
var CheckCmd = &cobra.Command{
	Use:   "check [command]",
	Short: "Validate the configuration or a server connection",
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

func init() {
	CheckCmd.AddCommand(configCmd)
	CheckCmd.AddCommand(serverCmd)
}
