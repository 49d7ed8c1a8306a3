package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/verustcode/glance/pkg/logger"
)

const (
	// MeterName is the default meter name for the application
	MeterName = "github.com/verustcode/glance"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Report metrics
	PagesRendered metric.Int64Counter
	RunsStored    metric.Int64Counter
	RunsPruned    metric.Int64Counter
	Exports       metric.Int64Counter
	CacheLookups  metric.Int64Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the global metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		var err error
		globalMetrics, err = initMetrics()
		if err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			// empty metrics keep the Record* helpers nil-safe
			globalMetrics = &Metrics{}
		}
	})
	return globalMetrics
}

func initMetrics() (*Metrics, error) {
	meter := otel.Meter(MeterName)
	m := &Metrics{}

	var err error
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"glance_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"glance_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.PagesRendered, err = meter.Int64Counter(
		"glance_pages_rendered_total",
		metric.WithDescription("Total number of rendered report pages"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	m.RunsStored, err = meter.Int64Counter(
		"glance_runs_stored_total",
		metric.WithDescription("Total number of stored report runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	m.RunsPruned, err = meter.Int64Counter(
		"glance_runs_pruned_total",
		metric.WithDescription("Total number of runs removed by retention"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	m.Exports, err = meter.Int64Counter(
		"glance_exports_total",
		metric.WithDescription("Total number of report exports by format"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	m.CacheLookups, err = meter.Int64Counter(
		"glance_cache_lookups_total",
		metric.WithDescription("Catalog cache lookups by cache and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Metrics initialized successfully")
	return m, nil
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, durationSeconds float64) {
	if m.HTTPRequestsTotal != nil {
		m.HTTPRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
				attribute.Int("status_code", statusCode),
			),
		)
	}
	if m.HTTPRequestDuration != nil {
		m.HTTPRequestDuration.Record(ctx, durationSeconds,
			metric.WithAttributes(
				attribute.String("method", method),
				attribute.String("path", path),
			),
		)
	}
}

// RecordPageRendered records a rendered report page
func (m *Metrics) RecordPageRendered(ctx context.Context, reportID string) {
	if m.PagesRendered == nil {
		return
	}
	m.PagesRendered.Add(ctx, 1, metric.WithAttributes(AttrReportID.String(reportID)))
}

// RecordRunStored records a stored run and whether it replaced an existing one
func (m *Metrics) RecordRunStored(ctx context.Context, reportID string, replaced bool) {
	if m.RunsStored == nil {
		return
	}
	m.RunsStored.Add(ctx, 1,
		metric.WithAttributes(
			AttrReportID.String(reportID),
			attribute.Bool("replaced", replaced),
		),
	)
}

// RecordRunsPruned records runs deleted by a retention rule
func (m *Metrics) RecordRunsPruned(ctx context.Context, rule string, count int64) {
	if m.RunsPruned == nil || count == 0 {
		return
	}
	m.RunsPruned.Add(ctx, count, metric.WithAttributes(attribute.String("rule", rule)))
}

// RecordExport records a report export
func (m *Metrics) RecordExport(ctx context.Context, format string, success bool) {
	if m.Exports == nil {
		return
	}
	m.Exports.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("format", format),
			attribute.Bool("success", success),
		),
	)
}

// RecordCacheLookup records a hit or miss of a named catalog cache
func (m *Metrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	if m.CacheLookups == nil {
		return
	}
	m.CacheLookups.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("cache", cache),
			attribute.Bool("hit", hit),
		),
	)
}
