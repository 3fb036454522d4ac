// pkg/storage/models.go

package storage

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/domain"
)

type alertRecord struct {
	ID             uint       `gorm:"primaryKey"`
	ServerName     string     `gorm:"size:255;not null;index:idx_alerts_server"`
	SourceLog      string     `gorm:"size:512;not null"`
	Timestamp      time.Time  `gorm:"not null;index:idx_alerts_timestamp"`
	Level          string     `gorm:"size:16;not null"`
	Rule           string     `gorm:"size:64;not null;index:idx_alerts_rule"`
	Message        string     `gorm:"type:text;not null"`
	IPAddress      *string    `gorm:"size:64"`
	Username       *string    `gorm:"size:255"`
	Acknowledged   bool       `gorm:"not null"`
	AcknowledgedBy *string    `gorm:"size:255"`
	AcknowledgedAt *time.Time
	CreatedAt      time.Time
}

func (alertRecord) TableName() string { return "alerts" }

func alertToRecord(a domain.Alert) alertRecord {
	return alertRecord{
		ID:             a.ID,
		ServerName:     a.ServerName,
		SourceLog:      a.SourceLog,
		Timestamp:      a.Timestamp.UTC(),
		Level:          string(a.Level),
		Rule:           a.Rule.String(),
		Message:        a.Message,
		IPAddress:      a.IPAddress,
		Username:       a.Username,
		Acknowledged:   a.Acknowledged,
		AcknowledgedBy: a.AcknowledgedBy,
		AcknowledgedAt: a.AcknowledgedAt,
	}
}

func (r alertRecord) toDomain() domain.Alert {
	return domain.Alert{
		ID:             r.ID,
		ServerName:     r.ServerName,
		SourceLog:      r.SourceLog,
		Timestamp:      r.Timestamp,
		Level:          domain.Level(r.Level),
		Rule:           domain.ParseRuleKind(r.Rule),
		Message:        r.Message,
		IPAddress:      r.IPAddress,
		Username:       r.Username,
		Acknowledged:   r.Acknowledged,
		AcknowledgedBy: r.AcknowledgedBy,
		AcknowledgedAt: r.AcknowledgedAt,
		CreatedAt:      r.CreatedAt,
	}
}

type serverRecord struct {
	Name           string   `gorm:"primaryKey;size:255"`
	Host           string   `gorm:"size:255;not null"`
	Port           int      `gorm:"not null"`
	Username       string   `gorm:"size:255;not null"`
	Password       *string  `gorm:"size:255"`
	PrivateKeyPath *string  `gorm:"size:1024"`
	Logs           []string `gorm:"serializer:json;type:text;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (serverRecord) TableName() string { return "servers" }

func serverToRecord(s domain.Server) serverRecord {
	logs := s.Logs
	if logs == nil {
		logs = []string{}
	}
	port := s.Port
	if port == 0 {
		port = 22
	}
	return serverRecord{
		Name:           s.Name,
		Host:           s.Host,
		Port:           port,
		Username:       s.Username,
		Password:       s.Password,
		PrivateKeyPath: s.PrivateKeyPath,
		Logs:           logs,
	}
}

func (r serverRecord) toDomain() domain.Server {
	return domain.Server{
		Name:           r.Name,
		Host:           r.Host,
		Port:           r.Port,
		Username:       r.Username,
		Password:       r.Password,
		PrivateKeyPath: r.PrivateKeyPath,
		Logs:           r.Logs,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type exceptionRecord struct {
	ID          uint    `gorm:"primaryKey"`
	RuleType    string  `gorm:"size:32;not null;index:idx_exceptions_type"`
	Value       string  `gorm:"size:512;not null"`
	Description *string `gorm:"type:text"`
	Enabled     bool    `gorm:"not null"`
	CreatedAt   time.Time
	// set by hand; only updates stamp it
	ModifiedAt *time.Time `gorm:"column:updated_at"`
}

func (exceptionRecord) TableName() string { return "exceptions" }

func (r exceptionRecord) toDomain() domain.ExceptionRule {
	return domain.ExceptionRule{
		ID:          r.ID,
		RuleType:    domain.ExceptionType(r.RuleType),
		Value:       r.Value,
		Description: r.Description,
		Enabled:     r.Enabled,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.ModifiedAt,
	}
}

type watermarkRecord struct {
	ServerName string `gorm:"primaryKey;size:255"`
	LogPath    string `gorm:"primaryKey;size:512"`
	LastSeenTS string `gorm:"column:last_seen_ts;size:64;not null"`
}

func (watermarkRecord) TableName() string { return "state" }
