// Package web renders the HTML pages of the report viewer. Pages are
// server-side html/template documents whose markup carries the hooks the
// browser viewer binds to; the initial view state is computed with the same
// viewer controllers that run in the browser.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticPrefix is the URL prefix of the viewer assets
const StaticPrefix = "/uistatic"

// ViewerAssets are the static files the browser viewer needs. They are
// produced by go generate and the pages only load the viewer when all of
// them are present.
var ViewerAssets = []string{"wasm_exec.js", "viewer.wasm"}

const defaultDateLayout = "02-01-2006 15:04"

// page templates, each executed through layout.html
var pages = []string{"index.html", "report.html", "error.html"}

// Renderer renders the viewer pages
type Renderer struct {
	cfg      *config.ViewerConfig
	basePath string
	pages    map[string]*template.Template
	css      template.CSS
	viewer   bool
}

// New parses the embedded templates. basePath prefixes every generated URL.
func New(cfg *config.ViewerConfig, basePath string) (*Renderer, error) {
	r := &Renderer{
		cfg:      cfg,
		basePath: strings.TrimSuffix(basePath, "/"),
		pages:    make(map[string]*template.Template, len(pages)),
	}

	base, err := template.New("layout.html").Funcs(r.funcs()).ParseFS(templateFS, "templates/layout.html", "templates/results.html")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse layout templates", err)
	}
	for _, name := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to clone layout template", err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse template "+name, err)
		}
		r.pages[name] = clone
	}

	css, err := fs.ReadFile(staticFS, "static/glance.css")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read stylesheet", err)
	}
	r.css = template.CSS(css)
	r.viewer = r.hasAssets(ViewerAssets...)
	return r, nil
}

// DefaultView is the initial view of a report page before URL options.
// Every section and block is rendered open unless viewer.start_collapsed
// is set, which starts the blocks collapsed.
func (r *Renderer) DefaultView() ViewOptions {
	opts := DefaultViewOptions()
	if r.cfg != nil {
		opts.Collapsed = r.cfg.StartCollapsed
	}
	return opts
}

// HasViewer reports whether the browser viewer assets can be served
func (r *Renderer) HasViewer() bool {
	return r.viewer
}

func (r *Renderer) hasAssets(names ...string) bool {
	fsys := r.StaticFS()
	for _, name := range names {
		f, err := fsys.Open("/" + name)
		if err != nil {
			logger.Debug("Viewer asset not available", zap.String("asset", name), zap.Error(err))
			return false
		}
		f.Close()
	}
	return true
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"datetimeformat": datetimeFormat,
		"nl2br":          nl2br,
		"slugify":        report.Slugify,
		"statusName":     func(s report.Status) string { return s.String() },
		"statusMarker":   func(s report.Status) string { return s.Marker() },
		"static":         func(name string) string { return r.basePath + StaticPrefix + "/" + name },
		"url":            func(p string) string { return r.basePath + p },
		"trusted":        func(s string) template.HTML { return template.HTML(s) },
	}
}

// StaticFS serves the viewer assets, from viewer.static_dir when configured
func (r *Renderer) StaticFS() http.FileSystem {
	if r.cfg != nil && r.cfg.StaticDir != "" {
		return http.Dir(r.cfg.StaticDir)
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// the embedded directory always exists
		panic(err)
	}
	return http.FS(sub)
}

// site is the data shared by every page
type site struct {
	Title         string
	SidebarStatus bool
	Version       string
	Now           time.Time
	// Static pages are self-contained: inline stylesheet, no scripts
	Static bool
	CSS    template.CSS
	// Viewer loads the browser viewer
	Viewer bool
}

func (r *Renderer) site(static bool) site {
	s := site{
		Title:   consts.ProjectName,
		Version: consts.Version,
		Now:     time.Now(),
		Static:  static,
		Viewer:  !static && r.viewer,
	}
	if static {
		s.CSS = r.css
	}
	if r.cfg != nil {
		if r.cfg.Title != "" {
			s.Title = r.cfg.Title
		}
		s.SidebarStatus = r.cfg.SidebarStatus
	}
	return s
}

// Index renders the report list
func (r *Renderer) Index(w io.Writer, groups []catalog.Group) error {
	data := struct {
		Site   site
		Groups []groupView
	}{Site: r.site(false)}

	for _, g := range groups {
		gv := groupView{Name: g.Name}
		for _, info := range g.Reports {
			latest := info.LatestRun()
			gv.Reports = append(gv.Reports, indexEntry{
				Info:   info,
				URL:    r.ReportURL(info.ID, consts.LatestRun),
				Status: latest.Status,
				Run:    latest,
			})
		}
		data.Groups = append(data.Groups, gv)
	}
	return r.execute(w, "index.html", data)
}

// Error renders an error page
func (r *Renderer) Error(w io.Writer, status int, message string) error {
	data := struct {
		Site    site
		Status  int
		Text    string
		Message string
	}{r.site(false), status, http.StatusText(status), message}
	return r.execute(w, "error.html", data)
}

// Report renders a report run
func (r *Renderer) Report(w io.Writer, data ReportData) error {
	view := r.buildReportView(data)
	return r.execute(w, "report.html", view)
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.New(errors.ErrCodeInternal, "unknown page "+name)
	}
	// render to a buffer so a failing template does not leave half a page
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Error("Failed to render page", zap.String("page", name), zap.Error(err))
		return errors.Wrap(errors.ErrCodeInternal, "failed to render "+name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// ReportURL is the page of a run
func (r *Renderer) ReportURL(reportID, runID string) string {
	return r.basePath + "/reports/" + url.PathEscape(reportID) + "/" + url.PathEscape(runID)
}

// BlockURL is the page of a run focused on one block
func (r *Renderer) BlockURL(reportID, runID string, index int) string {
	return r.ReportURL(reportID, runID) + "/" + strconv.Itoa(index)
}

// ResourceURL serves a stored run resource
func (r *Renderer) ResourceURL(reportID, runID, key, filename string) string {
	return r.basePath + "/" + path.Join(url.PathEscape(reportID), url.PathEscape(runID),
		"resource", url.PathEscape(key), url.PathEscape(filename))
}

// CSVURL downloads the data of a table result
func (r *Renderer) CSVURL(reportID, runID, resultID string) string {
	return r.basePath + "/" + path.Join(url.PathEscape(reportID), url.PathEscape(runID), "data-export", "csv", resultID)
}

// JSONURL downloads the data of a table result as JSON records
func (r *Renderer) JSONURL(reportID, runID, resultID string) string {
	return r.basePath + "/" + path.Join(url.PathEscape(reportID), url.PathEscape(runID), "data-export", "json", resultID+".json")
}

// LinkURL resolves a block link against viewer.link_endpoints
func (r *Renderer) LinkURL(link *report.Link) (string, bool) {
	if link == nil || r.cfg == nil {
		return "", false
	}
	base, ok := r.cfg.Endpoint(link.Endpoint)
	if !ok {
		logger.Debug("Unknown link endpoint", zap.String("endpoint", link.Endpoint))
		return "", false
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(link.Path, "/"), true
}

// datetimeFormat formats a time with an optional Go layout
func datetimeFormat(v any, layout ...string) string {
	l := defaultDateLayout
	if len(layout) > 0 && layout[0] != "" {
		l = layout[0]
	}
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.Format(l)
	case report.Timestamp:
		if t.IsZero() {
			return "-"
		}
		return t.Format(l)
	}
	return "-"
}

// nl2br escapes s and turns newlines into line breaks
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n"))
}

// groupView is a report group on the index page
type groupView struct {
	Name    string
	Reports []indexEntry
}

type indexEntry struct {
	Info   *catalog.ReportInfo
	URL    string
	Status report.Status
	Run    catalog.RunInfo
}

func (g groupView) Anchor() string {
	if g.Name == "" {
		return "ungrouped"
	}
	return fmt.Sprintf("group-%s", report.Slugify(g.Name))
}
