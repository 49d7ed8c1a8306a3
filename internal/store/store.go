// Package store provides the data access layer for stored report runs.
// Queries stay behind small interfaces so that the catalog and the API do
// not depend on the database layout.
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/verustcode/glance/internal/model"
	"github.com/verustcode/glance/pkg/errors"
)

// Store gives access to the run store and the connection behind it
type Store interface {
	Run() RunStore

	// Stats counts what is stored
	Stats(ctx context.Context) (Stats, error)

	// DB returns the underlying connection, used for health checks and
	// maintenance such as VACUUM
	DB() *gorm.DB
}

// Stats are totals over the whole database
type Stats struct {
	Reports       int64 `json:"reports"`
	Runs          int64 `json:"runs"`
	Resources     int64 `json:"resources"`
	ResourceBytes int64 `json:"resource_bytes"`
}

type gormStore struct {
	db   *gorm.DB
	runs RunStore
}

// NewStore creates a Store backed by db
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db, runs: newRunStore(db)}
}

func (s *gormStore) Run() RunStore {
	return s.runs
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Run{}).Distinct("report_id").Count(&st.Reports).Error; err != nil {
		return st, errors.Wrap(errors.ErrCodeDBQuery, "failed to count reports", err)
	}
	if err := db.Model(&model.Run{}).Count(&st.Runs).Error; err != nil {
		return st, errors.Wrap(errors.ErrCodeDBQuery, "failed to count runs", err)
	}

	var res struct {
		Count int64
		Bytes int64
	}
	if err := db.Model(&model.Resource{}).
		Select("COUNT(*) AS count, COALESCE(SUM(size), 0) AS bytes").
		Scan(&res).Error; err != nil {
		return st, errors.Wrap(errors.ErrCodeDBQuery, "failed to count resources", err)
	}
	st.Resources, st.ResourceBytes = res.Count, res.Bytes
	return st, nil
}
