// pkg/config/types.go

package config

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
)

// Config is the full, validated runtime configuration. It is treated as an
// immutable snapshot once loaded.
type Config struct {
	PollIntervalSeconds int              `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds" validate:"gte=1"`
	Servers             []ServerConfig   `mapstructure:"servers" yaml:"servers" validate:"dive"`
	Email               EmailConfig      `mapstructure:"email" yaml:"email"`
	Storage             StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Collection          CollectionConfig `mapstructure:"collection" yaml:"collection"`
	Web                 WebConfig        `mapstructure:"web" yaml:"web"`
	Logging             LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Telemetry           TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
}

type ServerConfig struct {
	Name           string   `mapstructure:"name" yaml:"name" validate:"required"`
	Host           string   `mapstructure:"host" yaml:"host" validate:"required"`
	Port           int      `mapstructure:"port" yaml:"port" validate:"omitempty,gte=1,lte=65535"`
	Username       string   `mapstructure:"username" yaml:"username" validate:"required"`
	Password       *string  `mapstructure:"password" yaml:"password,omitempty"`
	PrivateKeyPath *string  `mapstructure:"private_key_path" yaml:"private_key_path,omitempty"`
	Logs           []string `mapstructure:"logs" yaml:"logs,omitempty"`
}

type EmailConfig struct {
	Enabled        bool     `mapstructure:"enabled" yaml:"enabled"`
	SMTPHost       string   `mapstructure:"smtp_host" yaml:"smtp_host" validate:"required_if=Enabled true"`
	SMTPPort       int      `mapstructure:"smtp_port" yaml:"smtp_port" validate:"gte=1,lte=65535"`
	UseTLS         bool     `mapstructure:"use_tls" yaml:"use_tls"`
	ImplicitTLS    bool     `mapstructure:"implicit_tls" yaml:"implicit_tls"`
	Username       *string  `mapstructure:"username" yaml:"username,omitempty"`
	Password       *string  `mapstructure:"password" yaml:"password,omitempty"`
	FromAddr       *string  `mapstructure:"from_addr" yaml:"from_addr,omitempty" validate:"omitempty,email"`
	ToAddrs        []string `mapstructure:"to_addrs" yaml:"to_addrs" validate:"required_if=Enabled true,dive,email"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=1"`
}

// Sender returns the envelope sender: from_addr, else the SMTP username.
func (e EmailConfig) Sender() string {
	if e.FromAddr != nil && *e.FromAddr != "" {
		return *e.FromAddr
	}
	if e.Username != nil {
		return *e.Username
	}
	return ""
}

type StorageConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn,omitempty" validate:"required_if=Driver postgres"`
}

type CollectionConfig struct {
	TailLines             int      `mapstructure:"tail_lines" yaml:"tail_lines" validate:"gte=1"`
	IgnoreSourceIPs       []string `mapstructure:"ignore_source_ips" yaml:"ignore_source_ips"`
	ConnectTimeoutSeconds int      `mapstructure:"connect_timeout_seconds" yaml:"connect_timeout_seconds" validate:"gte=1"`
	CommandTimeoutSeconds int      `mapstructure:"command_timeout_seconds" yaml:"command_timeout_seconds" validate:"gte=1"`
	KnownHostsFile        string   `mapstructure:"known_hosts_file" yaml:"known_hosts_file,omitempty"`
	MonitoringMarkers     []string `mapstructure:"monitoring_markers" yaml:"monitoring_markers,omitempty"`
}

type WebConfig struct {
	Enabled            bool    `mapstructure:"enabled" yaml:"enabled"`
	Host               string  `mapstructure:"host" yaml:"host" validate:"required_if=Enabled true"`
	Port               int     `mapstructure:"port" yaml:"port" validate:"gte=1,lte=65535"`
	WriteRatePerSecond float64 `mapstructure:"write_rate_per_second" yaml:"write_rate_per_second" validate:"gt=0"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level" validate:"oneof=DEBUG INFO WARNING WARN ERROR debug info warning warn error"`
	FilePath      string `mapstructure:"file_path" yaml:"file_path"`
	MaxSizeMB     int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=1"`
	BackupCount   int    `mapstructure:"backup_count" yaml:"backup_count" validate:"gte=0"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days" validate:"gte=0"`
	Console       bool   `mapstructure:"console" yaml:"console"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
}

// PollInterval is the target cycle period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c CollectionConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c CollectionConfig) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}

// DomainServers converts the configured servers for seeding the store.
func (c *Config) DomainServers() []domain.Server {
	out := make([]domain.Server, 0, len(c.Servers))
	for _, s := range c.Servers {
		port := s.Port
		if port == 0 {
			port = 22
		}
		out = append(out, domain.Server{
			Name:           s.Name,
			Host:           s.Host,
			Port:           port,
			Username:       s.Username,
			Password:       s.Password,
			PrivateKeyPath: s.PrivateKeyPath,
			Logs:           append([]string(nil), s.Logs...),
		})
	}
	return out
}

// Redacted returns a copy safe for printing.
func (c *Config) Redacted() *Config {
	cp := *c
	mask := "********"
	cp.Servers = make([]ServerConfig, len(c.Servers))
	for i, s := range c.Servers {
		if s.Password != nil {
			s.Password = &mask
		}
		cp.Servers[i] = s
	}
	if cp.Email.Password != nil {
		cp.Email.Password = &mask
	}
	if cp.Storage.PostgresDSN != "" {
		cp.Storage.PostgresDSN = mask
	}
	return &cp
}
