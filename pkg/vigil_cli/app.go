// pkg/vigil_cli/app.go

package vigil_cli

import (
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/storage"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_io"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var configPath = config.DefaultPath

// BindGlobalFlags registers --config and --log-level on the root command.
func BindGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the YAML configuration file")
	fs.String("log-level", "", "Override logging.level (DEBUG, INFO, WARNING, ERROR)")
}

// ConfigPath is the --config value.
func ConfigPath() string {
	return configPath
}

// Setup loads the configuration, installs the configured logger and
// rescopes rc.Log to it.
func Setup(rc *vigil_io.RuntimeContext, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadWithFlags(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	l, err := logger.Init(cfg.Logging)
	if err != nil {
		return nil, err
	}
	rc.Log = l.With(zap.String("command", rc.Command))
	rc.Attributes["config"] = configPath
	return cfg, nil
}

// OpenStore opens the configured record store.
func OpenStore(rc *vigil_io.RuntimeContext, cfg *config.Config) (*storage.Store, error) {
	store, err := storage.Open(rc.Ctx, cfg.Storage, rc.Log)
	if err != nil {
		return nil, err
	}
	rc.Log.Debug("Opened record store", zap.String("driver", store.Driver()))
	return store, nil
}
