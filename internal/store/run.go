package store

import (
	"context"
	stderrors "errors"
	"mime"
	"path/filepath"
	"sort"
	"time"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/model"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

// indexColumns are the run columns without the serialized document
var indexColumns = []string{
	"id", "created_at", "updated_at", "report_id", "run_id", "title", "run_title",
	"timestamp", "status", "status_stats", "tags", "block_count", "format_version",
}

// ResourceData is an uploaded attachment of a run
type ResourceData struct {
	Key      string
	Filename string
	Data     []byte
}

// RunStore defines operations on stored report runs.
type RunStore interface {
	// Save stores a normalized document, replacing a run with the same
	// report and run id. It reports whether a run was replaced.
	Save(ctx context.Context, doc *report.Document, resources []ResourceData) (bool, error)

	// Get returns a run including its serialized document
	Get(ctx context.Context, reportID, runID string) (*model.Run, error)
	// Latest returns the newest run of a report including its document
	Latest(ctx context.Context, reportID string) (*model.Run, error)
	// Resource returns one attachment of a run
	Resource(ctx context.Context, reportID, runID, key string) (*model.Resource, error)

	// ListReports returns the ids of all reports with at least one run, sorted
	ListReports(ctx context.Context) ([]string, error)
	// ListRuns returns the index data of a report's runs, newest first
	ListRuns(ctx context.Context, reportID string) ([]model.Run, error)
	// Index returns the index data of every run, grouped by report, newest first
	Index(ctx context.Context) ([]model.Run, error)

	Delete(ctx context.Context, reportID, runID string) error
	DeleteReport(ctx context.Context, reportID string) (int64, error)
	// DeleteOlder removes runs older than before; an empty reportID means all reports
	DeleteOlder(ctx context.Context, reportID string, before time.Time) (int64, error)
	// DeleteKeepingN keeps the newest n runs; an empty reportID means every report
	DeleteKeepingN(ctx context.Context, reportID string, n int) (int64, error)

	// LatestStatuses implements telemetry.StatusSource
	LatestStatuses(ctx context.Context) ([]telemetry.ReportStatus, error)
}

// runStore implements RunStore using GORM.
type runStore struct {
	db *gorm.DB
}

func newRunStore(db *gorm.DB) RunStore {
	return &runStore{db: db}
}

func (s *runStore) Save(ctx context.Context, doc *report.Document, resources []ResourceData) (replaced bool, err error) {
	ctx, span := telemetry.StartRun(ctx, "store.SaveRun", doc.ID, doc.RunID)
	defer func() { telemetry.Finish(span, err) }()

	if doc.ID == "" || doc.RunID == "" {
		return false, errors.ErrDocumentInvalid("document has no report or run id", nil)
	}

	data, err := report.Encode(doc, report.FormatJSON)
	if err != nil {
		return false, errors.ErrDocumentInvalid("failed to encode document", err)
	}

	run := newRunRecord(doc, data)
	run.Resources = newResourceRecords(doc, resources)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Run
		err := tx.Select("id").
			Where("report_id = ? AND run_id = ?", doc.ID, doc.RunID).
			First(&existing).Error
		switch {
		case err == nil:
			replaced = true
			if err := deleteRunRows(tx, []uint{existing.ID}); err != nil {
				return err
			}
		case !stderrors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return tx.Create(run).Error
	})
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeDBQuery, "failed to save run", err)
	}

	span.SetAttributes(telemetry.AttrRunReplaced.Bool(replaced))
	telemetry.GetMetrics().RecordRunStored(ctx, doc.ID, replaced)
	logger.Info("Stored run",
		zap.String(logger.FieldReportID, doc.ID),
		zap.String(logger.FieldRunID, doc.RunID),
		zap.Bool("replaced", replaced),
		zap.Int("resources", len(run.Resources)),
	)
	return replaced, nil
}

func newRunRecord(doc *report.Document, data []byte) *model.Run {
	stats := make(model.StatusCounts, 4)
	for status, n := range doc.StatusStats() {
		stats[int(status)] = n
	}

	seen := make(map[string]bool)
	var tags model.StringArray
	for _, blk := range doc.IterBlocks(report.StatusNeutral) {
		for _, tag := range blk.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)

	return &model.Run{
		ReportID:      doc.ID,
		RunID:         doc.RunID,
		Title:         doc.Title,
		RunTitle:      doc.RunTitle,
		Timestamp:     doc.Timestamp.Time,
		Status:        int(doc.WorstStatus()),
		StatusStats:   stats,
		Tags:          tags,
		BlockCount:    doc.BlockCount(),
		FormatVersion: consts.FileFormatVersion,
		Document:      data,
	}
}

func newResourceRecords(doc *report.Document, resources []ResourceData) []model.Resource {
	filenames := make(map[string]string)
	for _, img := range doc.Images() {
		filenames[img.Key] = img.Filename
	}

	records := make([]model.Resource, 0, len(resources))
	for _, r := range resources {
		name := r.Filename
		if name == "" {
			name = filenames[r.Key]
		}
		if name == "" {
			name = r.Key
		}
		records = append(records, model.Resource{
			Key:      r.Key,
			Filename: name,
			MimeType: DetectMimeType(name, r.Data),
			Size:     int64(len(r.Data)),
			Data:     r.Data,
		})
	}
	return records
}

// DetectMimeType sniffs the content, falling back to the file extension
func DetectMimeType(filename string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (s *runStore) Get(ctx context.Context, reportID, runID string) (*model.Run, error) {
	var run model.Run
	err := s.db.WithContext(ctx).
		Where("report_id = ? AND run_id = ?", reportID, runID).
		First(&run).Error
	if err != nil {
		return nil, notFound(err, reportID, runID)
	}
	return &run, nil
}

func (s *runStore) Latest(ctx context.Context, reportID string) (*model.Run, error) {
	var run model.Run
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("timestamp DESC, run_id DESC").
		First(&run).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrReportNotFound(reportID)
		}
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load latest run", err)
	}
	return &run, nil
}

func (s *runStore) Resource(ctx context.Context, reportID, runID, key string) (*model.Resource, error) {
	var res model.Resource
	err := s.db.WithContext(ctx).
		Joins("JOIN runs ON runs.id = resources.run_row_id").
		Where("runs.report_id = ? AND runs.run_id = ? AND resources.key = ?", reportID, runID, key).
		First(&res).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrCodeResourceNotFound, "resource not found: "+key)
		}
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load resource", err)
	}
	return &res, nil
}

func (s *runStore) ListReports(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&model.Run{}).
		Distinct("report_id").
		Order("report_id").
		Pluck("report_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to list reports", err)
	}
	return ids, nil
}

func (s *runStore) ListRuns(ctx context.Context, reportID string) ([]model.Run, error) {
	var runs []model.Run
	err := s.db.WithContext(ctx).
		Select(indexColumns).
		Where("report_id = ?", reportID).
		Order("timestamp DESC, run_id DESC").
		Find(&runs).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to list runs", err)
	}
	return runs, nil
}

func (s *runStore) Index(ctx context.Context) ([]model.Run, error) {
	var runs []model.Run
	err := s.db.WithContext(ctx).
		Select(indexColumns).
		Order("report_id, timestamp DESC, run_id DESC").
		Find(&runs).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load run index", err)
	}
	return runs, nil
}

func (s *runStore) Delete(ctx context.Context, reportID, runID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.Run{}).
			Where("report_id = ? AND run_id = ?", reportID, runID).
			Pluck("id", &ids).Error; err != nil {
			return errors.Wrap(errors.ErrCodeDBQuery, "failed to find run", err)
		}
		if len(ids) == 0 {
			return errors.ErrRunNotFound(reportID, runID)
		}
		return deleteRunRows(tx, ids)
	})
}

func (s *runStore) DeleteReport(ctx context.Context, reportID string) (int64, error) {
	return s.deleteWhere(ctx, s.db.Where("report_id = ?", reportID))
}

func (s *runStore) DeleteOlder(ctx context.Context, reportID string, before time.Time) (int64, error) {
	q := s.db.Where("timestamp < ?", before)
	if reportID != "" {
		q = q.Where("report_id = ?", reportID)
	}
	return s.deleteWhere(ctx, q)
}

func (s *runStore) DeleteKeepingN(ctx context.Context, reportID string, n int) (int64, error) {
	if n < 0 {
		return 0, errors.ErrValidation("number of runs to keep cannot be negative")
	}
	reportIDs := []string{reportID}
	if reportID == "" {
		var err error
		if reportIDs, err = s.ListReports(ctx); err != nil {
			return 0, err
		}
	}

	var total int64
	for _, id := range reportIDs {
		var stale []uint
		err := s.db.WithContext(ctx).Model(&model.Run{}).
			Where("report_id = ?", id).
			Order("timestamp DESC, run_id DESC").
			Offset(n).
			Pluck("id", &stale).Error
		if err != nil {
			return total, errors.Wrap(errors.ErrCodeDBQuery, "failed to find stale runs", err)
		}
		if len(stale) == 0 {
			continue
		}
		if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return deleteRunRows(tx, stale)
		}); err != nil {
			return total, err
		}
		total += int64(len(stale))
	}
	return total, nil
}

// deleteWhere removes the runs selected by cond together with their resources
func (s *runStore) deleteWhere(ctx context.Context, cond *gorm.DB) (int64, error) {
	var ids []uint
	if err := cond.WithContext(ctx).Model(&model.Run{}).Pluck("id", &ids).Error; err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to select runs", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteRunRows(tx, ids)
	})
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// deleteRunRows removes runs by primary key. Resources are removed
// explicitly so that deletion does not depend on the foreign_keys pragma.
func deleteRunRows(tx *gorm.DB, ids []uint) error {
	if err := tx.Where("run_row_id IN ?", ids).Delete(&model.Resource{}).Error; err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete resources", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&model.Run{}).Error; err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to delete runs", err)
	}
	return nil
}

func (s *runStore) LatestStatuses(ctx context.Context) ([]telemetry.ReportStatus, error) {
	runs, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	var statuses []telemetry.ReportStatus
	seen := make(map[string]bool)
	for _, run := range runs {
		// Index is newest first within a report
		if seen[run.ReportID] {
			continue
		}
		seen[run.ReportID] = true
		group, _ := report.SplitGroup(run.Title)
		statuses = append(statuses, telemetry.ReportStatus{
			ReportID: run.ReportID,
			Group:    group,
			Counts:   map[int]int(run.StatusStats),
		})
	}
	return statuses, nil
}

func notFound(err error, reportID, runID string) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrRunNotFound(reportID, runID)
	}
	return errors.Wrap(errors.ErrCodeDBQuery, "failed to load run", err)
}
