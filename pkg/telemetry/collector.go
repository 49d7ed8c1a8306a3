package telemetry

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/gosimple/slug"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/verustcode/glance/pkg/logger"
)

const collectTimeout = 5 * time.Second

// ReportStatus is the status breakdown of the latest run of one report.
// Counts maps the numeric status to the number of blocks with that status.
type ReportStatus struct {
	ReportID string
	Group    string
	Counts   map[int]int
}

// StatusSource provides the latest status breakdown of every report
type StatusSource interface {
	LatestStatuses(ctx context.Context) ([]ReportStatus, error)
}

// ReportStatusCollector exposes report_status{group,report,status} gauges
type ReportStatusCollector struct {
	source StatusSource
	desc   *prometheus.Desc
}

// NewReportStatusCollector creates a collector reading from source on every scrape
func NewReportStatusCollector(source StatusSource) *ReportStatusCollector {
	return &ReportStatusCollector{
		source: source,
		desc: prometheus.NewDesc(
			"report_status",
			"Status of Glance reports",
			[]string{"group", "report", "status"},
			nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *ReportStatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector
func (c *ReportStatusCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	statuses, err := c.source.LatestStatuses(ctx)
	if err != nil {
		logger.Warn("Failed to collect report statuses", zap.Error(err))
		ch <- prometheus.NewInvalidMetric(c.desc, err)
		return
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].ReportID < statuses[j].ReportID
	})

	for _, rs := range statuses {
		codes := make([]int, 0, len(rs.Counts))
		for code := range rs.Counts {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		group, report := slug.Make(rs.Group), slug.Make(rs.ReportID)
		for _, code := range codes {
			ch <- prometheus.MustNewConstMetric(
				c.desc,
				prometheus.GaugeValue,
				float64(rs.Counts[code]),
				group, report, strconv.Itoa(code),
			)
		}
	}
}
