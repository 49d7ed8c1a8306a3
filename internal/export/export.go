// Package export renders report runs to downloadable formats with pluggable exporters.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/internal/web"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

// Resource is a stored file referenced by the document
type Resource struct {
	Filename string
	MimeType string
	Data     []byte
}

// Run is the input of an export
type Run struct {
	Doc *report.Document
	// Resources by key; missing resources export as broken references
	Resources map[string]Resource
}

// Exporter defines the interface for run exporters
type Exporter interface {
	// Export renders the run
	Export(ctx context.Context, run *Run) ([]byte, error)
	// Name returns the human-readable name of the exporter (e.g., "Markdown", "HTML")
	Name() string
	// FileExtension returns the file extension for this format (e.g., ".md", ".html")
	FileExtension() string
	// ContentType returns the MIME type of the output
	ContentType() string
}

// Output is an exported run
type Output struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Manager manages all registered exporters
type Manager struct {
	exporters map[string]Exporter
	mu        sync.RWMutex
}

// NewManager creates an empty export manager
func NewManager() *Manager {
	return &Manager{
		exporters: make(map[string]Exporter),
	}
}

// NewDefaultManager registers the markdown, json, html and pdf exporters
func NewDefaultManager(renderer *web.Renderer, pdf PDFOptions) *Manager {
	m := NewManager()
	m.Register(consts.ExportFormatMarkdown, NewMarkdownExporter())
	m.Register(consts.ExportFormatJSON, NewJSONExporter())
	html := NewHTMLExporter(renderer)
	m.Register(consts.ExportFormatHTML, html)
	m.Register(consts.ExportFormatPDF, NewPDFExporter(html, pdf))
	return m
}

// Register registers an exporter for a specific format
func (m *Manager) Register(format string, exporter Exporter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exporters[format] = exporter
	logger.Debug("Registered report exporter",
		zap.String("format", format),
		zap.String("name", exporter.Name()),
	)
}

// Get returns the exporter for a specific format
func (m *Manager) Get(format string) (Exporter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exporter, ok := m.exporters[format]
	if !ok {
		return nil, errors.New(errors.ErrCodeExportUnsupported,
			fmt.Sprintf("unsupported export format: %s", format))
	}
	return exporter, nil
}

// SupportedFormats returns the registered formats, sorted
func (m *Manager) SupportedFormats() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	formats := make([]string, 0, len(m.exporters))
	for format := range m.exporters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Export renders a run in the given format
func (m *Manager) Export(ctx context.Context, format string, run *Run) (_ *Output, err error) {
	exporter, err := m.Get(format)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartRun(ctx, "export.Run", run.Doc.ID, run.Doc.RunID,
		telemetry.AttrExportFormat.String(format))
	defer func() { telemetry.Finish(span, err) }()

	logger.Debug("Exporting run",
		zap.String(logger.FieldReportID, run.Doc.ID),
		zap.String(logger.FieldRunID, run.Doc.RunID),
		zap.String("format", format),
		zap.String("exporter", exporter.Name()),
	)

	data, err := exporter.Export(ctx, run)
	telemetry.GetMetrics().RecordExport(ctx, format, err == nil)
	if err != nil {
		if errors.IsAppError(err) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrCodeExportFailed,
			fmt.Sprintf("failed to export run with %s exporter", exporter.Name()), err)
	}
	return &Output{
		Data:        data,
		Filename:    Filename(run.Doc, exporter.FileExtension()),
		ContentType: exporter.ContentType(),
	}, nil
}

// ExportToFile exports a run to a file
func (m *Manager) ExportToFile(ctx context.Context, format string, run *Run, outputPath string) error {
	out, err := m.Export(ctx, format, run)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, out.Data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Info("Run exported to file",
		zap.String(logger.FieldReportID, run.Doc.ID),
		zap.String(logger.FieldRunID, run.Doc.RunID),
		zap.String("format", format),
		zap.String("path", outputPath),
	)
	return nil
}

// Filename generates "<report>-<run><ext>" for an exported run
func Filename(doc *report.Document, ext string) string {
	name := report.Slugify(doc.ID + " " + doc.RunID)
	if name == "" {
		name = "report"
	}
	return name + ext
}

// LoadResources reads the image resources of a document from the store
func LoadResources(ctx context.Context, runs store.RunStore, doc *report.Document) (map[string]Resource, error) {
	resources := make(map[string]Resource)
	for _, key := range doc.ImageKeys() {
		res, err := runs.Resource(ctx, doc.ID, doc.RunID, key)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeResourceNotFound) {
				logger.Warn("Resource referenced by run is missing",
					zap.String(logger.FieldReportID, doc.ID),
					zap.String(logger.FieldRunID, doc.RunID),
					zap.String("key", key))
				continue
			}
			return nil, err
		}
		resources[key] = Resource{Filename: res.Filename, MimeType: res.MimeType, Data: res.Data}
	}
	return resources, nil
}
