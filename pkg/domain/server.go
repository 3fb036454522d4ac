// pkg/domain/server.go

package domain

import "time"

// DefaultSource is used when a server has no configured log sources.
const DefaultSource = "ssh:auto"

// Server is a monitored host. Name is the join key for alerts and
// watermarks.
type Server struct {
	Name           string    `json:"name" yaml:"name"`
	Host           string    `json:"host" yaml:"host"`
	Port           int       `json:"port" yaml:"port"`
	Username       string    `json:"username" yaml:"username"`
	Password       *string   `json:"-" yaml:"-"`
	PrivateKeyPath *string   `json:"private_key_path,omitempty" yaml:"private_key_path,omitempty"`
	Logs           []string  `json:"logs" yaml:"logs"`
	CreatedAt      time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Sources returns the configured log sources, or the auto-detect source.
func (s Server) Sources() []string {
	if len(s.Logs) == 0 {
		return []string{DefaultSource}
	}
	return s.Logs
}

func (s Server) HasPassword() bool {
	return s.Password != nil && *s.Password != ""
}

// Watermark is the newest event time processed for one server and log.
type Watermark struct {
	ServerName string    `json:"server_name"`
	LogPath    string    `json:"log_path"`
	LastSeen   time.Time `json:"last_seen"`
}
