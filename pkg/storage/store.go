// pkg/storage/store.go

// Package storage persists alerts, servers, exception rules and watermarks
// through gorm. SQLite is the default backend; PostgreSQL is available for
// shared deployments.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/CodeMonkeyCybersecurity/vigil/pkg/config"
	"github.com/CodeMonkeyCybersecurity/vigil/pkg/vigil_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the record store shared by the collector and the dashboard.
type Store struct {
	db     *gorm.DB
	driver string
}

// Open connects to the configured backend and migrates the schema.
func Open(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		if err := ensureDir(cfg.SQLitePath); err != nil {
			return nil, vigil_err.NewPersistenceError("create database directory", err)
		}
		dialector = sqlite.Open(sqliteDSN(cfg.SQLitePath))
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN)
	default:
		return nil, vigil_err.NewValidationError("unsupported storage driver " + cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newGormLogger(log),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, vigil_err.NewPersistenceError("open "+cfg.Driver, err)
	}

	if cfg.Driver != "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, vigil_err.NewPersistenceError("open sqlite pool", err)
		}
		// one writer; also keeps ":memory:" databases on a single connection
		sqlDB.SetMaxOpenConns(1)
	}

	return New(ctx, db, cfg.Driver)
}

// New wraps an existing gorm handle and migrates the schema.
func New(ctx context.Context, db *gorm.DB, driver string) (*Store, error) {
	s := &Store{db: db, driver: driver}
	if err := s.db.WithContext(ctx).AutoMigrate(
		&alertRecord{},
		&serverRecord{},
		&exceptionRecord{},
		&watermarkRecord{},
	); err != nil {
		return nil, vigil_err.NewPersistenceError("migrate schema", err)
	}
	return s, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return vigil_err.NewPersistenceError("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return vigil_err.NewPersistenceError("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Driver names the backend in use.
func (s *Store) Driver() string {
	if s.driver == "" {
		return "sqlite"
	}
	return s.driver
}

func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o750)
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	// wait on locks rather than failing while the dashboard reads
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func newGormLogger(log *zap.Logger) gormlogger.Interface {
	if log == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(zapPrintf{log.Named("gorm").Sugar()}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type zapPrintf struct {
	s *zap.SugaredLogger
}

func (z zapPrintf) Printf(format string, args ...interface{}) {
	z.s.Warnf(format, args...)
}

// notFound reports whether err is gorm's record-not-found error.
func notFound(err error) bool {
	return cerr.Is(err, gorm.ErrRecordNotFound)
}
