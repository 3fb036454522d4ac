// cmd/delete/delete.go

package delete

import (
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

// DeleteCmd is the root command for delete operations
var DeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"remove", "rm"},
	Short:   "Remove a server, an exception rule or an alert",
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

func init() {
	DeleteCmd.AddCommand(serverCmd)
	DeleteCmd.AddCommand(exceptionCmd)
	DeleteCmd.AddCommand(alertCmd)
}
