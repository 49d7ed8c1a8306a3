package store

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

// DefaultRetentionSchedule is the cron schedule used when none is configured (daily at 3 AM)
const DefaultRetentionSchedule = "0 3 * * *"

// RetentionPolicy selects the runs removed by pruning. Zero values disable a rule.
type RetentionPolicy struct {
	Schedule string
	MaxAge   time.Duration
	KeepRuns int
}

// PruneResult counts the runs removed per rule
type PruneResult struct {
	ByAge   int64
	ByCount int64
}

// Total returns the number of removed runs
func (r PruneResult) Total() int64 {
	return r.ByAge + r.ByCount
}

// RetentionService prunes old runs on a cron schedule
type RetentionService struct {
	store   RunStore
	cron    *cron.Cron
	policy  RetentionPolicy
	entryID cron.EntryID
	onPrune func()
	now     func() time.Time
	mu      sync.RWMutex
}

// NewRetentionService creates a retention service. onPrune, if set, is called
// after a pruning pass removed at least one run.
func NewRetentionService(store RunStore, policy RetentionPolicy, onPrune func()) *RetentionService {
	if policy.Schedule == "" {
		policy.Schedule = DefaultRetentionSchedule
	}
	return &RetentionService{
		store:   store,
		cron:    cron.New(),
		policy:  policy,
		onPrune: onPrune,
		now:     time.Now,
	}
}

// Start schedules pruning and runs one pass immediately in the background
func (s *RetentionService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(s.policy.Schedule, s.run)
	if err != nil {
		logger.Error("Failed to schedule retention", zap.Error(err))
		return err
	}
	s.entryID = entryID
	s.cron.Start()

	logger.Info("Retention service started",
		zap.String("schedule", s.policy.Schedule),
		zap.Duration("max_age", s.policy.MaxAge),
		zap.Int("keep_runs", s.policy.KeepRuns),
	)

	go s.run()
	return nil
}

// Stop stops the scheduler and waits for a running pass
func (s *RetentionService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		logger.Info("Stopping retention service")
		ctx := s.cron.Stop()
		<-ctx.Done()
		logger.Info("Retention service stopped")
	}
}

// SetPolicy replaces the rules; the schedule is kept
func (s *RetentionService) SetPolicy(policy RetentionPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	policy.Schedule = s.policy.Schedule
	s.policy = policy
	logger.Info("Retention policy updated",
		zap.Duration("max_age", policy.MaxAge),
		zap.Int("keep_runs", policy.KeepRuns),
	)
}

func (s *RetentionService) run() {
	if _, err := s.Prune(context.Background()); err != nil {
		logger.Error("Retention pass failed", zap.Error(err))
	}
}

// Prune applies the policy once. Both rules run even if one fails.
func (s *RetentionService) Prune(ctx context.Context) (PruneResult, error) {
	s.mu.RLock()
	policy := s.policy
	s.mu.RUnlock()

	logger.Info("Starting retention pass")
	start := time.Now()

	var result PruneResult
	var errs error
	if policy.MaxAge > 0 {
		n, err := s.store.DeleteOlder(ctx, "", s.now().Add(-policy.MaxAge))
		errs = multierr.Append(errs, err)
		result.ByAge = n
		telemetry.GetMetrics().RecordRunsPruned(ctx, "max_age", n)
	}
	if policy.KeepRuns > 0 {
		n, err := s.store.DeleteKeepingN(ctx, "", policy.KeepRuns)
		errs = multierr.Append(errs, err)
		result.ByCount = n
		telemetry.GetMetrics().RecordRunsPruned(ctx, "keep_runs", n)
	}

	if result.Total() > 0 && s.onPrune != nil {
		s.onPrune()
	}

	logger.Info("Retention pass completed",
		zap.Int64("by_age", result.ByAge),
		zap.Int64("by_count", result.ByCount),
		zap.Duration("duration", time.Since(start)),
		zap.Error(errs),
	)
	return result, errs
}
