// cmd/check/config.go

package check

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_cli"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
)

var showConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Load and validate the configuration file",
	Long: `Load the configuration with defaults and environment overrides applied and
report every validation problem at once. With --show the effective
configuration is printed with secrets masked.`,
	Args: cobra.NoArgs,
	RunE: vigil_cli.Wrap(func(rc *vigil_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		cfg, err := vigil_cli.Setup(rc, cmd)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Configuration %s is valid: %d server(s), poll every %s, email %s, storage %s\n",
			vigil_cli.ConfigPath(), len(cfg.Servers), cfg.PollInterval(), onOff(cfg.Email.Enabled), cfg.Storage.Driver)
		if !showConfig {
			return nil
		}
		out, err := config.Marshal(cfg.Redacted())
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}),
}

func init() {
	configCmd.Flags().BoolVar(&showConfig, "show", false, "Print the effective configuration (secrets masked)")
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
