// pkg/vigil_cli/wrap.go

package vigil_cli

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Wrap ensures panic recovery, telemetry and outcome logging for a command.
func Wrap(fn func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.InitFallback()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		rc := vigil_io.NewContext(parent, cmd.CommandPath())
		defer rc.End(&err)

		defer func() {
			if r := recover(); r != nil {
				err = cerr.AssertionFailedf("panic: %v", r)
				rc.Log.Error("Panic recovered", zap.Any("panic", r))
			}
		}()

		rc.Log.Debug("Command started", zap.Strings("args", args))

		err = fn(rc, cmd, args)
		if err != nil && !vigil_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
