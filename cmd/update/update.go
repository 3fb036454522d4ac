// cmd/update/update.go

package update

import (
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

// UpdateCmd is the root command for update operations
var UpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Acknowledge alerts or change exception rules",
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

func init() {
	UpdateCmd.AddCommand(ackCmd)
	UpdateCmd.AddCommand(exceptionCmd)
}
