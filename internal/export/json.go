package export

import (
	"context"

	"github.com/verustcode/glance/internal/report"
)

// JSONExporter exports runs in the report file format, so that an export
// can be imported again
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Name returns the human-readable name of this exporter
func (e *JSONExporter) Name() string { return "JSON" }

// FileExtension returns the file extension for JSON files
func (e *JSONExporter) FileExtension() string { return ".json" }

// ContentType returns the MIME type of JSON
func (e *JSONExporter) ContentType() string { return "application/json" }

// Export encodes the run document
func (e *JSONExporter) Export(_ context.Context, run *Run) ([]byte, error) {
	return report.Encode(run.Doc, report.FormatJSON)
}
