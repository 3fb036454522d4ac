// cmd/delete/exception.go

package delete

import (
	"fmt"
	"os"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exceptionCmd = &cobra.Command{
	Use:   "exception <id>",
	Short: "Delete an exception rule",
	Args:  cobra.ExactArgs(1),
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
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

		ok, err := store.DeleteException(rc.Ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return vigil_err.NewExpectedError(fmt.Errorf("exception %d not found", id))
		}
		rc.Log.Info("Exception rule deleted", zap.Uint("id", id))
		fmt.Fprintf(os.Stdout, "Exception %d deleted\n", id)
		return nil
	}),
}

var alertCmd = &cobra.Command{
	Use:   "alert <id>",
	Short: "Delete a stored alert",
	Args:  cobra.ExactArgs(1),
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
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

		ok, err := store.DeleteAlert(rc.Ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return vigil_err.NewExpectedError(fmt.Errorf("alert %d not found", id))
		}
		fmt.Fprintf(os.Stdout, "Alert %d deleted\n", id)
		return nil
	}),
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 0)
	if err != nil || id == 0 {
		return 0, vigil_err.NewExpectedError(fmt.Errorf("invalid id %q", s))
	}
	return uint(id), nil
}
