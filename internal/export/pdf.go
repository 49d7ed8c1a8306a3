package export

import (
	"context"
	"fmt"
	"html"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/pkg/logger"
)

// PDFOptions contains configuration for PDF generation
type PDFOptions struct {
	// Paper dimensions in inches (A4: 8.27 x 11.69)
	PaperWidth  float64
	PaperHeight float64

	// Margins in inches
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64

	DisplayHeaderFooter bool
	PrintBackground     bool

	// Scale of the webpage rendering (1.0 = 100%)
	Scale float64

	// Timeout for PDF generation
	Timeout time.Duration

	// ChromePath overrides the browser executable, CHROME_PATH is used otherwise
	ChromePath string
}

// DefaultPDFOptions returns default PDF options for A4 paper
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PaperWidth:  8.27,
		PaperHeight: 11.69,

		MarginTop:    0.71, // ~18mm
		MarginBottom: 0.59, // ~15mm
		MarginLeft:   0.79, // ~20mm
		MarginRight:  0.79, // ~20mm

		DisplayHeaderFooter: true,
		PrintBackground:     true,
		Scale:               1.0,
		Timeout:             120 * time.Second,
	}
}

// PDFExporter prints the static HTML export with headless Chrome
type PDFExporter struct {
	html    *HTMLExporter
	options PDFOptions
}

// NewPDFExporter creates a new PDF exporter
func NewPDFExporter(htmlExporter *HTMLExporter, opts PDFOptions) *PDFExporter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPDFOptions().Timeout
	}
	return &PDFExporter{html: htmlExporter, options: opts}
}

// Name returns the human-readable name of this exporter
func (e *PDFExporter) Name() string { return "PDF" }

// FileExtension returns the file extension for PDF files
func (e *PDFExporter) FileExtension() string { return ".pdf" }

// ContentType returns the MIME type of PDF
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Export renders the run to HTML and prints it to PDF
func (e *PDFExporter) Export(ctx context.Context, run *Run) ([]byte, error) {
	startTime := time.Now()
	doc := run.Doc

	logger.Info("[PDF Export] Starting PDF export",
		zap.String(logger.FieldReportID, doc.ID),
		zap.String(logger.FieldRunID, doc.RunID),
		zap.Duration("timeout", e.options.Timeout),
	)

	htmlData, err := e.html.Export(ctx, run)
	if err != nil {
		return nil, err
	}

	// Chrome loads the page from a file, data URLs are size limited
	tmpFile, err := os.CreateTemp("", consts.ServiceName+"-pdf-*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(htmlData); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	tmpFile.Close()

	ctx, cancel := context.WithTimeout(ctx, e.options.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
		chromedp.WSURLReadTimeout(60*time.Second),
	)
	chromePath := e.options.ChromePath
	if chromePath == "" {
		chromePath = os.Getenv("CHROME_PATH")
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
		logger.Debug("[PDF Export] Using custom Chrome path", zap.String("chrome_path", chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf("[PDF Export] chromedp: "+format, args...))
		}),
	)
	defer browserCancel()

	header, footer := headerFooter(doc)
	var pdfData []byte

	chromeStartTime := time.Now()
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+tmpPath),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPaperWidth(e.options.PaperWidth).
				WithPaperHeight(e.options.PaperHeight).
				WithMarginTop(e.options.MarginTop).
				WithMarginBottom(e.options.MarginBottom).
				WithMarginLeft(e.options.MarginLeft).
				WithMarginRight(e.options.MarginRight).
				WithDisplayHeaderFooter(e.options.DisplayHeaderFooter).
				WithHeaderTemplate(header).
				WithFooterTemplate(footer).
				WithPrintBackground(e.options.PrintBackground).
				WithScale(e.options.Scale).
				WithPreferCSSPageSize(false).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		logger.Error("[PDF Export] Failed to generate PDF",
			zap.String(logger.FieldReportID, doc.ID),
			zap.Error(err),
			zap.Duration("chrome_duration", time.Since(chromeStartTime)),
		)
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	logger.Info("[PDF Export] PDF export completed successfully",
		zap.String(logger.FieldReportID, doc.ID),
		zap.String("pdf_size", formatBytes(len(pdfData))),
		zap.Duration("total_duration", time.Since(startTime)),
	)
	return pdfData, nil
}

// headerFooter creates the page header and footer. Chrome fills the
// pageNumber and totalPages classes.
func headerFooter(doc *report.Document) (header, footer string) {
	header = fmt.Sprintf(`<div style="width:100%%; padding:8px 20px; font-size:10px; font-family:system-ui,sans-serif; color:#666; display:flex; justify-content:space-between;">
	<span style="font-weight:600;">%s</span>
	<span>%s</span>
</div>`, html.EscapeString(doc.Title), html.EscapeString(doc.RunTitle))

	footer = fmt.Sprintf(`<div style="width:100%%; padding:0 20px; font-size:9px; font-family:system-ui,sans-serif; color:#666; display:flex; justify-content:space-between;">
	<span>%s %s</span>
	<span>Page <span class="pageNumber"></span> of <span class="totalPages"></span></span>
</div>`, html.EscapeString(consts.ProjectName), html.EscapeString(doc.Timestamp.Format(report.TimestampLayoutShort)))
	return header, footer
}

// formatBytes converts bytes to human-readable format
func formatBytes(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := int64(bytes) / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
