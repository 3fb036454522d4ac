// cmd/delete/server.go

package delete

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serverCmd = &cobra.Command{
	Use:   "server <name>",
	Short: "Stop monitoring a server",
	Long: `Remove a server from the store. Its alerts and watermarks are kept, so
adding it back later resumes where collection stopped. A server that is
also listed in the configuration file stays removed; the file only seeds
an empty store.`,
	Args: cobra.ExactArgs(1),
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		cfg, err := vigil_cli.Setup(rc, cmd)
		if err != nil {
			return err
		}
		store, err := vigil_cli.OpenStore(rc, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		ok, err := store.DeleteServer(rc.Ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return vigil_err.NewExpectedError(fmt.Errorf("server %q not found", args[0]))
		}
		rc.Log.Info("Server deleted", zap.String("server", args[0]))
		fmt.Fprintf(os.Stdout, "Server %s deleted\n", args[0])
		return nil
	}),
}
