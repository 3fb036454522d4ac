// cmd/read/read.go

package read

import (
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

var format string

// ReadCmd is the root command for read operations
var ReadCmd = &cobra.Command{
	Use:     "read",
	Short:   "List stored alerts, servers or exception rules",
	Aliases: []string{"list", "ls"},
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

func init() {
	ReadCmd.PersistentFlags().StringVar(&format, "format", vigil_cli.FormatTable, "Output format (table, json, yaml)")
	ReadCmd.AddCommand(alertsCmd)
	ReadCmd.AddCommand(serversCmd)
	ReadCmd.AddCommand(exceptionsCmd)
}
