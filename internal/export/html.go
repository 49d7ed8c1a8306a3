package export

import (
	"bytes"
	"context"
	"encoding/base64"

	"github.com/verustcode/glance/internal/web"
)

// HTMLExporter exports runs to a self-contained HTML page. Images are
// inlined as data URIs and the stylesheet is embedded.
type HTMLExporter struct {
	renderer *web.Renderer
}

// NewHTMLExporter creates a new HTML exporter
func NewHTMLExporter(renderer *web.Renderer) *HTMLExporter {
	return &HTMLExporter{renderer: renderer}
}

// Name returns the human-readable name of this exporter
func (e *HTMLExporter) Name() string { return "HTML" }

// FileExtension returns the file extension for HTML files
func (e *HTMLExporter) FileExtension() string { return ".html" }

// ContentType returns the MIME type of HTML
func (e *HTMLExporter) ContentType() string { return "text/html; charset=utf-8" }

// Export renders the run page in static mode
func (e *HTMLExporter) Export(_ context.Context, run *Run) ([]byte, error) {
	var buf bytes.Buffer
	err := e.renderer.Report(&buf, web.ReportData{
		Doc:          run.Doc,
		Options:      web.DefaultViewOptions(),
		Static:       true,
		ResourceURLs: dataURIs(run.Resources),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dataURIs(resources map[string]Resource) map[string]string {
	uris := make(map[string]string, len(resources))
	for key, res := range resources {
		mimeType := res.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		uris[key] = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(res.Data)
	}
	return uris
}
