package store

import (
	"context"
	"testing"
	"time"

	"github.com/verustcode/glance/internal/report"
)

// TestRetentionService_Prune tests one pruning pass with both rules
func TestRetentionService_Prune(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	now := baseTime
	CreateTestRun(t, store, "A", "ancient", now.Add(-30*24*time.Hour), report.StatusGood)
	for i, id := range []string{"r1", "r2", "r3"} {
		CreateTestRun(t, store, "A", id, now.Add(-time.Duration(3-i)*time.Hour), report.StatusGood)
	}

	pruned := 0
	svc := NewRetentionService(store.Run(), RetentionPolicy{MaxAge: 7 * 24 * time.Hour, KeepRuns: 2}, func() { pruned++ })
	svc.now = func() time.Time { return now }

	result, err := svc.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if result.ByAge != 1 || result.ByCount != 1 || result.Total() != 2 {
		t.Errorf("Unexpected prune result %+v", result)
	}
	if pruned != 1 {
		t.Errorf("Expected onPrune to be called once, got %d", pruned)
	}

	runs, _ := store.Run().ListRuns(context.Background(), "a")
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs left, got %d", len(runs))
	}

	// nothing left to prune
	result, err = svc.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if result.Total() != 0 || pruned != 1 {
		t.Errorf("Expected an empty second pass, got %+v", result)
	}
}

// TestRetentionService_DisabledRules tests that zero rules delete nothing
func TestRetentionService_DisabledRules(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	CreateTestRun(t, store, "A", "r1", baseTime.Add(-1000*time.Hour), report.StatusGood)

	svc := NewRetentionService(store.Run(), RetentionPolicy{}, nil)
	result, err := svc.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if result.Total() != 0 {
		t.Errorf("Expected nothing pruned, got %+v", result)
	}
	if svc.policy.Schedule != DefaultRetentionSchedule {
		t.Errorf("Expected default schedule, got %q", svc.policy.Schedule)
	}
}

// TestRetentionService_StartStop tests scheduling
func TestRetentionService_StartStop(t *testing.T) {
	store, cleanup := SetupTestDB(t)
	defer cleanup()

	svc := NewRetentionService(store.Run(), RetentionPolicy{Schedule: "not a cron"}, nil)
	if err := svc.Start(); err == nil {
		t.Error("Start() should reject an invalid schedule")
	}

	svc = NewRetentionService(store.Run(), RetentionPolicy{Schedule: "@hourly", KeepRuns: 5}, nil)
	if err := svc.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	svc.SetPolicy(RetentionPolicy{Schedule: "ignored", KeepRuns: 1})
	if svc.policy.Schedule != "@hourly" || svc.policy.KeepRuns != 1 {
		t.Errorf("Unexpected policy after update %+v", svc.policy)
	}
	svc.Stop()
}
