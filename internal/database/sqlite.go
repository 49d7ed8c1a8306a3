package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/glance/pkg/logger"
)

// Driver adapts a database engine to the migration sequence in connect
type Driver interface {
	Name() string
	// Dialector returns the GORM dialector for dsn
	Dialector(dsn string) gorm.Dialector
	// BeforeMigrate tunes the connection; foreign keys must stay off
	BeforeMigrate(db *gorm.DB) error
	// AfterMigrate applies settings that need the final schema
	AfterMigrate(db *gorm.DB) error
}

// busyTimeoutMs is the default SQLite busy timeout in milliseconds
const busyTimeoutMs = 5000

// sqliteDriver runs the store on a single SQLite file in WAL mode
type sqliteDriver struct {
	// busyTimeoutMs lets readers wait for the single writer
	busyTimeoutMs int
}

func newSQLiteDriver() *sqliteDriver {
	return &sqliteDriver{busyTimeoutMs: busyTimeoutMs}
}

func (d *sqliteDriver) Name() string { return "sqlite" }

func (d *sqliteDriver) Dialector(dsn string) gorm.Dialector {
	return sqlite.Open(dsn)
}

func (d *sqliteDriver) BeforeMigrate(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	// SQLite has one writer and run documents are written in transactions
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", d.busyTimeoutMs),
	} {
		if err := db.Exec(pragma).Error; err != nil {
			logger.Warn("SQLite pragma not applied", zap.String("pragma", pragma), zap.Error(err))
		}
	}
	logger.Debug("SQLite connection tuned", zap.Int("busy_timeout_ms", d.busyTimeoutMs))
	return nil
}

// AfterMigrate enables foreign keys so resources are deleted with their run
func (d *sqliteDriver) AfterMigrate(db *gorm.DB) error {
	return db.Exec("PRAGMA foreign_keys = ON").Error
}

// Vacuum compacts the database file after large deletions
func Vacuum() error {
	if err := Get().Exec("VACUUM").Error; err != nil {
		return err
	}
	logger.Info("Run database vacuumed")
	return nil
}
