package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/verustcode/glance/internal/database"
	"github.com/verustcode/glance/internal/report"
)

// SetupTestDB creates a temporary SQLite database for testing.
// It returns a Store instance and a cleanup function.
// The cleanup function should be called with defer in tests.
func SetupTestDB(t testing.TB) (Store, func()) {
	t.Helper()

	// Reset database state to allow re-initialization
	database.ResetForTesting()

	tmpFile, err := os.CreateTemp("", "glance_test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	if err := database.InitWithPath(tmpPath); err != nil {
		os.Remove(tmpPath)
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	store := NewStore(database.Get())

	cleanup := func() {
		database.Close()
		database.ResetForTesting()
		os.Remove(tmpPath)
		os.Remove(tmpPath + "-wal")
		os.Remove(tmpPath + "-shm")
	}
	return store, cleanup
}

// NewTestDocument builds a normalized single-block document.
// Fields can be overridden by passing functions that modify it before normalization.
func NewTestDocument(title, runID string, ts time.Time, status report.Status, overrides ...func(*report.Document)) *report.Document {
	doc := &report.Document{
		Title:     title,
		RunID:     runID,
		Timestamp: report.Timestamp{Time: ts},
		Sections: []*report.Section{{
			Title: "Checks",
			Blocks: []*report.Block{{
				Title:   "Check",
				Tags:    []string{"smoke"},
				Results: []*report.Result{report.NewText("result", "message", status)},
			}},
		}},
	}
	for _, override := range overrides {
		override(doc)
	}
	doc.Normalize(ts)
	return doc
}

// CreateTestRun stores a test document and fails the test on error
func CreateTestRun(t testing.TB, store Store, title, runID string, ts time.Time, status report.Status) *report.Document {
	t.Helper()

	doc := NewTestDocument(title, runID, ts, status)
	if _, err := store.Run().Save(context.Background(), doc, nil); err != nil {
		t.Fatalf("Failed to create test run: %v", err)
	}
	return doc
}
