package telemetry

import (
	"context"
	"testing"
)

// TestGetMetrics tests the GetMetrics function
func TestGetMetrics(t *testing.T) {
	metrics := GetMetrics()
	if metrics == nil {
		t.Fatal("GetMetrics() returned nil")
	}
	if metrics2 := GetMetrics(); metrics != metrics2 {
		t.Error("GetMetrics() returned different instances on subsequent calls")
	}
}

// TestMetricsRecorders tests that every recorder accepts input without panicking
func TestMetricsRecorders(t *testing.T) {
	metrics := GetMetrics()
	ctx := context.Background()

	metrics.RecordHTTPRequest(ctx, "GET", "/reports/:report", 200, 0.05)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/v1/runs", 201, 0.1)
	metrics.RecordPageRendered(ctx, "nightly-build")
	metrics.RecordRunStored(ctx, "nightly-build", true)
	metrics.RecordRunsPruned(ctx, "max_age", 3)
	metrics.RecordRunsPruned(ctx, "keep_runs", 0)
	metrics.RecordExport(ctx, "markdown", true)
	metrics.RecordCacheLookup(ctx, "report", false)
}

// TestNilMetrics tests that an empty Metrics is safe to use
func TestNilMetrics(t *testing.T) {
	m := &Metrics{}
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "GET", "/", 200, 0.01)
	m.RecordPageRendered(ctx, "r")
	m.RecordRunStored(ctx, "r", false)
	m.RecordRunsPruned(ctx, "max_age", 1)
	m.RecordExport(ctx, "pdf", false)
	m.RecordCacheLookup(ctx, "info", true)
}
