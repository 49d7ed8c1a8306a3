// Package catalog is the read side of the run store. It resolves run aliases,
// parses stored documents and keeps short lived caches of report metadata and
// parsed runs so that page views do not hit the database every time.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/internal/model"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

// cache names used in metrics
const (
	cacheReport = "report"
	cacheInfo   = "info"
	cacheList   = "list"

	keyReportList = "reports"
	keyIndex      = "index"
)

// RunInfo is the index entry of one run
type RunInfo struct {
	RunID       string                `json:"runid"`
	RunTitle    string                `json:"runtitle"`
	Timestamp   time.Time             `json:"timestamp"`
	Status      report.Status         `json:"status"`
	StatusStats map[report.Status]int `json:"status_stats"`
	Tags        []string              `json:"tags"`
	BlockCount  int                   `json:"block_count"`
}

// ReportInfo describes a report and its runs
type ReportInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Group      string `json:"group"`
	ShortTitle string `json:"shorttitle"`
	// Latest is the run id of the newest run
	Latest string `json:"latest"`
	// Runs are ordered newest first
	Runs []RunInfo `json:"runs"`
}

// LatestRun returns the newest run
func (i *ReportInfo) LatestRun() RunInfo {
	return i.Runs[0]
}

// Run returns a run by id
func (i *ReportInfo) Run(runID string) (RunInfo, bool) {
	for _, r := range i.Runs {
		if r.RunID == runID {
			return r, true
		}
	}
	return RunInfo{}, false
}

// Group is a named list of reports
type Group struct {
	Name    string        `json:"name"`
	Reports []*ReportInfo `json:"reports"`
}

// Options configure cache sizes, lifetimes and sorting
type Options struct {
	ReportTTL  time.Duration
	ReportSize int
	InfoTTL    time.Duration
	InfoSize   int
	ListTTL    time.Duration
	// Locale collates group names
	Locale language.Tag
}

// OptionsFromConfig converts the viewer configuration
func OptionsFromConfig(cfg *config.ViewerConfig) Options {
	return Options{
		ReportTTL:  cfg.Cache.ReportTTLDuration(),
		ReportSize: cfg.Cache.ReportSize,
		InfoTTL:    cfg.Cache.InfoTTLDuration(),
		InfoSize:   cfg.Cache.InfoSize,
		ListTTL:    cfg.Cache.ListTTLDuration(),
		Locale:     cfg.LocaleTag(),
	}
}

// Catalog answers read queries about stored reports.
// Returned documents are shared between callers and must not be modified.
type Catalog struct {
	runs   store.RunStore
	locale language.Tag
	now    func() time.Time

	reports *ttlCache[*report.Document]
	infos   *ttlCache[*ReportInfo]
	lists   *ttlCache[any]
	flight  singleflight.Group
}

// New creates a catalog on top of a run store
func New(runs store.RunStore, opts Options) *Catalog {
	c := &Catalog{
		runs:   runs,
		locale: opts.Locale,
		now:    time.Now,
	}
	if c.locale == language.Und {
		c.locale = language.English
	}
	clock := func() time.Time { return c.now() }
	c.reports = newTTLCache[*report.Document](opts.ReportSize, opts.ReportTTL, clock)
	c.infos = newTTLCache[*ReportInfo](opts.InfoSize, opts.InfoTTL, clock)
	c.lists = newTTLCache[any](2, opts.ListTTL, clock)
	return c
}

// ListReports returns all report ids in natural order
func (c *Catalog) ListReports(ctx context.Context) ([]string, error) {
	if v, ok := c.lists.get(keyReportList); ok {
		telemetry.GetMetrics().RecordCacheLookup(ctx, cacheList, true)
		return v.([]string), nil
	}
	telemetry.GetMetrics().RecordCacheLookup(ctx, cacheList, false)

	v, err, _ := c.flight.Do(keyReportList, func() (any, error) {
		ids, err := c.runs.ListReports(ctx)
		if err != nil {
			return nil, err
		}
		sort.Sort(natural.StringSlice(ids))
		c.lists.set(keyReportList, ids)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Info returns the metadata and run list of one report
func (c *Catalog) Info(ctx context.Context, reportID string) (*ReportInfo, error) {
	if info, ok := c.infos.get(reportID); ok {
		telemetry.GetMetrics().RecordCacheLookup(ctx, cacheInfo, true)
		return info, nil
	}
	telemetry.GetMetrics().RecordCacheLookup(ctx, cacheInfo, false)

	v, err, _ := c.flight.Do("info:"+reportID, func() (any, error) {
		logger.Debug("Report info cache miss", zap.String(logger.FieldReportID, reportID))
		runs, err := c.runs.ListRuns(ctx, reportID)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, errors.ErrReportNotFound(reportID)
		}
		info := newReportInfo(reportID, runs)
		c.infos.set(reportID, info)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ReportInfo), nil
}

// Index returns every report with at least one run, sorted by group and title
func (c *Catalog) Index(ctx context.Context) ([]*ReportInfo, error) {
	if v, ok := c.lists.get(keyIndex); ok {
		telemetry.GetMetrics().RecordCacheLookup(ctx, cacheList, true)
		return v.([]*ReportInfo), nil
	}
	telemetry.GetMetrics().RecordCacheLookup(ctx, cacheList, false)

	v, err, _ := c.flight.Do(keyIndex, func() (any, error) {
		runs, err := c.runs.Index(ctx)
		if err != nil {
			return nil, err
		}
		var infos []*ReportInfo
		for start := 0; start < len(runs); {
			end := start
			for end < len(runs) && runs[end].ReportID == runs[start].ReportID {
				end++
			}
			info := newReportInfo(runs[start].ReportID, runs[start:end])
			c.infos.set(info.ID, info)
			infos = append(infos, info)
			start = end
		}
		c.sortReports(infos)
		c.lists.set(keyIndex, infos)
		return infos, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*ReportInfo), nil
}

// Groups returns the reports of the index grouped by their title prefix
func (c *Catalog) Groups(ctx context.Context) ([]Group, error) {
	infos, err := c.Index(ctx)
	if err != nil {
		return nil, err
	}
	var groups []Group
	for _, info := range infos {
		if n := len(groups); n > 0 && groups[n-1].Name == info.Group {
			groups[n-1].Reports = append(groups[n-1].Reports, info)
			continue
		}
		groups = append(groups, Group{Name: info.Group, Reports: []*ReportInfo{info}})
	}
	return groups, nil
}

// Run returns the parsed document of a run. The run id "latest" or an empty
// id resolve to the newest run. Element ids are assigned and status tags applied.
func (c *Catalog) Run(ctx context.Context, reportID, runID string) (*report.Document, error) {
	if runID == "" || runID == consts.LatestRun {
		info, err := c.Info(ctx, reportID)
		if err != nil {
			return nil, err
		}
		runID = info.Latest
	}

	key := reportID + "/" + runID
	if doc, ok := c.reports.get(key); ok {
		telemetry.GetMetrics().RecordCacheLookup(ctx, cacheReport, true)
		return doc, nil
	}
	telemetry.GetMetrics().RecordCacheLookup(ctx, cacheReport, false)

	v, err, _ := c.flight.Do("run:"+key, func() (_ any, err error) {
		ctx, span := telemetry.StartRun(ctx, "catalog.LoadRun", reportID, runID)
		defer func() { telemetry.Finish(span, err) }()

		run, err := c.runs.Get(ctx, reportID, runID)
		if err != nil {
			return nil, err
		}
		doc, err := decodeRun(run)
		if err != nil {
			return nil, err
		}
		span.SetAttributes(telemetry.AttrBlockCount.Int(doc.BlockCount()))

		c.reports.set(key, doc)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*report.Document), nil
}

// decodeRun parses a stored run. The ids used in storage win over the ones
// derived from the document title.
func decodeRun(run *model.Run) (*report.Document, error) {
	doc, version, err := report.Decode(run.Document)
	if err != nil {
		logger.Error("Failed to decode stored run",
			zap.String(logger.FieldReportID, run.ReportID),
			zap.String(logger.FieldRunID, run.RunID),
			zap.Error(err))
		return nil, err
	}
	doc.Normalize(run.Timestamp)
	doc.ID = run.ReportID
	doc.RunID = run.RunID
	report.ApplyStatusTags(doc)

	logger.Debug("Loaded run",
		zap.String(logger.FieldReportID, run.ReportID),
		zap.String(logger.FieldRunID, run.RunID),
		zap.Int("format_version", version))
	return doc, nil
}

// ClosestRun picks the run of reportID to show for a run id it does not have.
// If another report has a run with that id, the run closest in time to it is
// chosen; otherwise the run closest to now, which is the newest one.
func (c *Catalog) ClosestRun(ctx context.Context, reportID, runID string) (string, error) {
	info, err := c.Info(ctx, reportID)
	if err != nil {
		return "", err
	}

	target := c.now()
	if runID != "" && runID != consts.LatestRun {
		ids, err := c.ListReports(ctx)
		if err != nil {
			return "", err
		}
		for _, other := range ids {
			if other == reportID {
				continue
			}
			otherInfo, err := c.Info(ctx, other)
			if err != nil {
				continue
			}
			if r, ok := otherInfo.Run(runID); ok {
				logger.Debug("Found run id in another report",
					zap.String(logger.FieldRunID, runID),
					zap.String("other_report", other))
				target = r.Timestamp
				break
			}
		}
	}

	closest := info.Runs[0]
	for _, r := range info.Runs[1:] {
		if absDuration(target.Sub(r.Timestamp)) < absDuration(target.Sub(closest.Timestamp)) {
			closest = r
		}
	}
	return closest.RunID, nil
}

// Invalidate drops cached data of a report, or of every report for an empty id
func (c *Catalog) Invalidate(reportID string) {
	c.lists.clear()
	if reportID == "" {
		c.infos.clear()
		c.reports.clear()
		return
	}
	c.infos.deleteFunc(func(key string) bool { return key == reportID })
	prefix := reportID + "/"
	c.reports.deleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
	logger.Debug("Invalidated report caches", zap.String(logger.FieldReportID, reportID))
}

// sortReports orders by group (locale collation, empty group first), then by
// short title in natural order
func (c *Catalog) sortReports(infos []*ReportInfo) {
	col := collate.New(c.locale, collate.IgnoreCase)
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if a.Group != b.Group {
			return col.CompareString(a.Group, b.Group) < 0
		}
		if a.ShortTitle != b.ShortTitle {
			return natural.Less(a.ShortTitle, b.ShortTitle)
		}
		return a.ID < b.ID
	})
}

func newReportInfo(reportID string, runs []model.Run) *ReportInfo {
	info := &ReportInfo{ID: reportID, Runs: make([]RunInfo, 0, len(runs))}
	for _, run := range runs {
		stats := make(map[report.Status]int, len(run.StatusStats))
		for code, n := range run.StatusStats {
			stats[report.Status(code)] = n
		}
		info.Runs = append(info.Runs, RunInfo{
			RunID:       run.RunID,
			RunTitle:    run.RunTitle,
			Timestamp:   run.Timestamp,
			Status:      report.Status(run.Status),
			StatusStats: stats,
			Tags:        run.Tags,
			BlockCount:  run.BlockCount,
		})
	}
	// runs arrive newest first; the title of the newest run names the report
	info.Title = runs[0].Title
	info.Latest = runs[0].RunID
	info.Group, info.ShortTitle = report.SplitGroup(info.Title)
	return info
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
