// pkg/config/load.go

package config

import (
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. VIGIL_EMAIL_PASSWORD.
	EnvPrefix = "VIGIL"

	DefaultPath = "config.yaml"
)

var validate = validator.New()

// SetDefaults registers a default for every key so that environment
// overrides resolve even when the file omits the key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("poll_interval_seconds", 60)
	v.SetDefault("servers", []map[string]any{})

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.implicit_tls", false)
	v.SetDefault("email.username", nil)
	v.SetDefault("email.password", nil)
	v.SetDefault("email.from_addr", nil)
	v.SetDefault("email.to_addrs", []string{})
	v.SetDefault("email.timeout_seconds", 30)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/vigil.db")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("collection.tail_lines", 2000)
	v.SetDefault("collection.ignore_source_ips", []string{})
	v.SetDefault("collection.connect_timeout_seconds", 15)
	v.SetDefault("collection.command_timeout_seconds", 15)
	v.SetDefault("collection.known_hosts_file", "")
	v.SetDefault("collection.monitoring_markers", []string{})

	v.SetDefault("web.enabled", true)
	v.SetDefault("web.host", "127.0.0.1")
	v.SetDefault("web.port", 8000)
	v.SetDefault("web.write_rate_per_second", 5.0)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.file_path", "./logs/vigil.log")
	v.SetDefault("logging.max_size_mb", 1)
	v.SetDefault("logging.backup_count", 3)
	v.SetDefault("logging.retention_days", 30)
	v.SetDefault("logging.console", true)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.file_path", "./logs/telemetry.jsonl")
}

// NewViper returns a viper instance with defaults and the VIGIL_ env prefix.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the YAML file at path (a missing file yields defaults), applies
// .env and environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, cerr.Wrap(err, "load .env")
	}
	return LoadWith(NewViper(), path)
}

// LoadWithFlags is Load with command-line overrides. --log-level binds to
// logging.level and wins over the file and the environment when set.
func LoadWithFlags(path string, fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, cerr.Wrap(err, "load .env")
	}
	v := NewViper()
	if fs != nil {
		if f := fs.Lookup("log-level"); f != nil {
			if err := v.BindPFlag("logging.level", f); err != nil {
				return nil, cerr.Wrap(err, "bind --log-level")
			}
		}
	}
	return LoadWith(v, path)
}

// LoadWith loads using a caller-prepared viper, e.g. one with bound flags.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				return nil, vigil_err.WrapConfigError(cerr.Wrapf(err, "read config %s", path), path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, vigil_err.WrapConfigError(cerr.Wrap(err, "decode config"), path)
	}
	if err := Validate(&cfg); err != nil {
		return nil, vigil_err.WrapConfigError(vigil_err.WrapValidationError(err), path)
	}
	return &cfg, nil
}

// Validate checks struct tags plus the cross-field rules tags cannot
// express. All problems are reported together.
func Validate(cfg *Config) error {
	var result *multierror.Error

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if cerr.As(err, &verrs) {
			for _, fe := range verrs {
				result = multierror.Append(result, vigil_err.NewValidationError(
					"invalid "+fe.Namespace()+": failed "+fe.Tag()))
			}
		} else {
			result = multierror.Append(result, err)
		}
	}

	seen := make(map[string]struct{}, len(cfg.Servers))
	for _, s := range cfg.Servers {
		if _, dup := seen[s.Name]; dup {
			result = multierror.Append(result, vigil_err.NewValidationError(
				"duplicate server name "+s.Name, "server names are the key for alerts and watermarks"))
		}
		seen[s.Name] = struct{}{}
	}
	if cfg.Email.UseTLS && cfg.Email.ImplicitTLS {
		result = multierror.Append(result, vigil_err.NewValidationError(
			"email.use_tls and email.implicit_tls are mutually exclusive"))
	}
	if cfg.Email.Enabled && cfg.Email.Sender() == "" {
		result = multierror.Append(result, vigil_err.NewValidationError(
			"email.from_addr or email.username is required when email is enabled"))
	}

	return result.ErrorOrNil()
}

// Marshal renders the configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
