// cmd/create/create.go

package create

import (
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

// CreateCmd is the root command for create operations
var CreateCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"add"},
	Short:   "Add a server or an exception rule",
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}),
}

func init() {
	CreateCmd.AddCommand(serverCmd)
	CreateCmd.AddCommand(exceptionCmd)
}
