package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verustcode/glance/internal/model"
	"github.com/verustcode/glance/pkg/logger"
)

func initTestDB(t *testing.T) {
	t.Helper()
	logger.Init(logger.Config{Level: "error", Format: "text"})

	ResetForTesting()
	require.NoError(t, InitWithPath(filepath.Join(t.TempDir(), "nested", "test.db")))
	t.Cleanup(ResetForTesting)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestSQLiteOptimizations(t *testing.T) {
	initTestDB(t)
	db := Get()

	var journalMode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&journalMode).Error)
	assert.Equal(t, "wal", journalMode)

	var synchronous int
	require.NoError(t, db.Raw("PRAGMA synchronous").Scan(&synchronous).Error)
	assert.Equal(t, 1, synchronous, "synchronous should be NORMAL")

	var foreignKeys int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&foreignKeys).Error)
	assert.Equal(t, 1, foreignKeys)

	var busy int
	require.NoError(t, db.Raw("PRAGMA busy_timeout").Scan(&busy).Error)
	assert.Equal(t, busyTimeoutMs, busy)
}

func TestMigrationCreatesTables(t *testing.T) {
	initTestDB(t)
	db := Get()

	for _, m := range model.AllModels() {
		assert.True(t, db.Migrator().HasTable(m), "table for %T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&model.Run{}, "idx_report_run"))
}

func TestResourceCascade(t *testing.T) {
	initTestDB(t)

	run := model.Run{
		ReportID:  "nightly",
		RunID:     "r1",
		Resources: []model.Resource{{Key: "plot", Filename: "plot.png", Data: []byte{1, 2}}},
	}
	require.NoError(t, Get().Create(&run).Error)
	require.NoError(t, Get().Delete(&model.Run{}, run.ID).Error)

	var count int64
	require.NoError(t, Get().Model(&model.Resource{}).Count(&count).Error)
	assert.Zero(t, count, "resources are deleted with their run")
}

func TestInitOnlyOnce(t *testing.T) {
	initTestDB(t)
	first := Get()

	require.NoError(t, InitWithPath(filepath.Join(t.TempDir(), "other.db")))
	assert.Same(t, first, Get())
}

func TestCloseAllowsReopen(t *testing.T) {
	initTestDB(t)
	first := Get()

	require.NoError(t, Close())
	require.NoError(t, Close(), "closing twice is a no-op")
	assert.Panics(t, func() { Get() })

	require.NoError(t, Init(Options{Path: filepath.Join(t.TempDir(), "again.db"), Debug: true}))
	assert.NotSame(t, first, Get())
}

func TestPingAndVacuum(t *testing.T) {
	ResetForTesting()
	assert.Error(t, Ping(context.Background(), nil), "uninitialized database")
	assert.Panics(t, func() { Get() })

	initTestDB(t)
	assert.NoError(t, Ping(context.Background(), Get()))
	assert.NoError(t, Vacuum())

	conn := Get()
	require.NoError(t, Close())
	assert.Error(t, Ping(context.Background(), conn), "closed connection")
}

func TestGormWriter(t *testing.T) {
	logs := observeLogs(t)
	gormWriter{}.Printf("%s [%.3fms] %s", "run.go:10", 1.5, "SELECT 1")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "gorm", entries[0].LoggerName)
	assert.Contains(t, entries[0].Message, "SELECT 1")
}
