/* pkg/logger/logger.go */

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu  sync.Mutex
	log *zap.Logger
)

// L returns the global logger, initialising the fallback logger if needed.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if log == nil {
		log = NewFallbackLogger()
		install(log)
	}
	return log
}

// Init builds the configured logger: an optional console core tee'd with a
// JSON file core rotated by size. It replaces the zap and otelzap globals.
func Init(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := ParseLogLevel(cfg.Level)

	var cores []zapcore.Core
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(DefaultConsoleEncoderConfig()),
			zapcore.Lock(os.Stdout),
			level,
		))
	}

	if cfg.FilePath != "" {
		writer, err := RotatingWriter(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not open log file %s, logging to console only: %v\n", cfg.FilePath, err)
		} else {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), writer, level))
		}
	}

	if len(cores) == 0 {
		cores = append(cores, zapcore.NewNopCore())
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	mu.Lock()
	log = l
	install(l)
	mu.Unlock()

	l.Debug("Logger initialized",
		zap.String("level", level.String()),
		zap.String("file", cfg.FilePath),
		zap.Bool("console", cfg.Console))
	return l, nil
}

// RotatingWriter opens the log file through lumberjack. Backups are capped
// by count and by age in days.
func RotatingWriter(cfg config.LoggingConfig) (zapcore.WriteSyncer, error) {
	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	// probe writability now; lumberjack only opens lazily
	f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	_ = f.Close()

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.BackupCount,
		MaxAge:     cfg.RetentionDays,
		LocalTime:  true,
	}), nil
}

// ParseLogLevel accepts the level names used in config files, in any case.
func ParseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL", "CRITICAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Sync flushes any buffered log entries. Should be called before exit.
func Sync() error {
	mu.Lock()
	l := log
	mu.Unlock()
	if l == nil {
		return nil
	}
	err := l.Sync()
	// stdout cannot be fsynced on most terminals
	if err != nil && strings.Contains(err.Error(), "/dev/stdout") {
		return nil
	}
	return err
}

func install(l *zap.Logger) {
	zap.ReplaceGlobals(l)
	otelzap.ReplaceGlobals(otelzap.New(l))
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
