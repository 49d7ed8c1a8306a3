// Package database opens the run store database and keeps the shared
// connection. Runs and their resources live in one SQLite file accessed
// through GORM.
package database

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/verustcode/glance/internal/model"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
)

// slowQueryThreshold marks queries worth a warning; large run documents
// are written in one statement so the bar is generous
const slowQueryThreshold = 500 * time.Millisecond

// Options configure the database connection
type Options struct {
	// Path of the SQLite file; parent directories are created
	Path string
	// Debug logs every SQL statement at debug level
	Debug bool
}

var (
	db   *gorm.DB
	mu   sync.Mutex
	open bool
)

// Init opens the database described by opts and migrates the schema.
// Later calls are no-ops until Close.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()
	if open {
		return nil
	}

	conn, err := connect(opts, newSQLiteDriver())
	if err != nil {
		return err
	}
	db, open = conn, true
	return nil
}

// InitWithPath opens the database at path with default options
func InitWithPath(path string) error {
	return Init(Options{Path: path})
}

// connect opens, tunes and migrates one database
func connect(opts Options, driver Driver) (*gorm.DB, error) {
	logger.Info("Opening run database", zap.String("path", opts.Path), zap.String("driver", driver.Name()))

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory "+dir, err)
		}
	}

	conn, err := gorm.Open(driver.Dialector(opts.Path), &gorm.Config{Logger: newGormLogger(opts.Debug)})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to connect to database", err)
	}

	if err := driver.BeforeMigrate(conn); err != nil {
		closeConn(conn)
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to configure database", err)
	}

	models := model.AllModels()
	if err := conn.AutoMigrate(models...); err != nil {
		closeConn(conn)
		logger.Error("Failed to migrate run database", zap.Error(err))
		return nil, errors.Wrap(errors.ErrCodeDBMigration, "failed to migrate database", err)
	}
	logger.Debug("Run database migrated", zap.Int("tables", len(models)))

	// foreign keys are switched on only after migration
	if err := driver.AfterMigrate(conn); err != nil {
		closeConn(conn)
		return nil, errors.Wrap(errors.ErrCodeDBConnection, "failed to configure database", err)
	}
	return conn, nil
}

// Get returns the shared connection. Panics before Init.
func Get() *gorm.DB {
	mu.Lock()
	defer mu.Unlock()
	if !open {
		panic("database not initialized, call Init first")
	}
	return db
}

// Close closes the shared connection; Init may be called again afterwards
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if !open {
		return nil
	}
	open = false
	conn := db
	db = nil

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	logger.Info("Closing run database")
	return sqlDB.Close()
}

// ResetForTesting closes the shared connection, ignoring errors
func ResetForTesting() {
	_ = Close()
}

// Ping checks that conn still answers, used by the health endpoint
func Ping(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return errors.New(errors.ErrCodeDBConnection, "database not initialized")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "database ping failed", err)
	}
	return nil
}

func closeConn(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.Close()
	}
}

// newGormLogger routes GORM messages through the application logger
func newGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(gormWriter{}, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// gormWriter adapts the zap logger to gormlogger.Writer
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...interface{}) {
	logger.Named("gorm").Sugar().Debugf(format, args...)
}
