package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans created by Glance
const TracerName = "github.com/verustcode/glance"

// Span attribute keys
var (
	AttrReportID     = attribute.Key("report.id")
	AttrRunID        = attribute.Key("run.id")
	AttrRunStatus    = attribute.Key("run.status")
	AttrRunReplaced  = attribute.Key("run.replaced")
	AttrExportFormat = attribute.Key("export.format")
	AttrBlockCount   = attribute.Key("blocks.count")
)

// StartRun starts a span for an operation on one run of a report.
// End it with Finish.
func StartRun(ctx context.Context, op, reportID, runID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{AttrReportID.String(reportID), AttrRunID.String(runID)}, attrs...)
	return otel.Tracer(TracerName).Start(ctx, op, trace.WithAttributes(attrs...))
}

// Finish sets the span status from err and ends the span
func Finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Annotate adds attributes to the span carried by ctx, if any
func Annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
