package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/internal/web"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

const htmlContentType = "text/html; charset=utf-8"

// UIHandler serves the HTML pages and the downloads linked from them
type UIHandler struct {
	catalog  *catalog.Catalog
	runs     store.RunStore
	renderer *web.Renderer
	debug    bool
}

// NewUIHandler creates a new UI handler
func NewUIHandler(cat *catalog.Catalog, runs store.RunStore, renderer *web.Renderer, debug bool) *UIHandler {
	return &UIHandler{catalog: cat, runs: runs, renderer: renderer, debug: debug}
}

// Index handles GET /
func (h *UIHandler) Index(c *gin.Context) {
	groups, err := h.catalog.Groups(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Index(&buf, groups); err != nil {
		h.renderError(c, err)
		return
	}
	c.Data(http.StatusOK, htmlContentType, buf.Bytes())
}

// Report handles GET /reports/:report, /reports/:report/:run and
// /reports/:report/:run/:block
func (h *UIHandler) Report(c *gin.Context) {
	ctx := c.Request.Context()
	reportID := c.Param("report")
	runID := c.Param("run")
	if runID == "" {
		runID = consts.LatestRun
	}

	info, err := h.catalog.Info(ctx, reportID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	doc, err := h.catalog.Run(ctx, reportID, runID)
	if errors.HasCode(err, errors.ErrCodeRunNotFound) {
		h.redirectToClosest(c, reportID, runID)
		return
	}
	if err != nil {
		h.renderError(c, err)
		return
	}

	opts := web.ParseViewOptions(c.Request.URL.Query(), h.renderer.DefaultView())
	if block := c.Param("block"); block != "" {
		index, err := strconv.Atoi(block)
		if err != nil {
			h.renderError(c, errors.New(errors.ErrCodeElementNotFound, "invalid block "+block))
			return
		}
		if _, _, ok := doc.BlockAt(index); !ok {
			h.renderError(c, errors.New(errors.ErrCodeElementNotFound, "block "+block+" not found"))
			return
		}
		opts.Block = index
	}

	reports, err := h.catalog.Index(ctx)
	if err != nil {
		h.renderError(c, err)
		return
	}

	var buf bytes.Buffer
	err = h.renderer.Report(&buf, web.ReportData{
		Doc:     doc,
		Info:    info,
		Reports: reports,
		Options: opts,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	telemetry.GetMetrics().RecordPageRendered(ctx, reportID)
	c.Data(http.StatusOK, htmlContentType, buf.Bytes())
}

// redirectToClosest sends unknown run ids to the closest run of the report,
// keeping the block and the query string
func (h *UIHandler) redirectToClosest(c *gin.Context, reportID, runID string) {
	closest, err := h.catalog.ClosestRun(c.Request.Context(), reportID, runID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	target := h.renderer.ReportURL(reportID, closest)
	if block := c.Param("block"); block != "" {
		target += "/" + block
	}
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	logger.Debug("Redirecting to closest run",
		zap.String(logger.FieldReportID, reportID),
		zap.String(logger.FieldRunID, runID),
		zap.String("closest", closest))
	c.Redirect(http.StatusFound, target)
}

// DataExportCSV handles GET /:report/:run/data-export/csv/:result
func (h *UIHandler) DataExportCSV(c *gin.Context) {
	res, ok := h.exportableResult(c, c.Param("result"))
	if !ok {
		return
	}
	data, err := res.CSV()
	if err != nil {
		h.renderError(c, errors.ErrInternal("failed to encode table", err))
		return
	}
	attachment(c, report.SlugFilename(res.Title+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// DataExportJSON handles GET /:report/:run/data-export/json/:result.json
func (h *UIHandler) DataExportJSON(c *gin.Context) {
	id := strings.TrimSuffix(c.Param("result"), ".json")
	res, ok := h.exportableResult(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Records())
}

// exportableResult finds a table result whose data may be downloaded
func (h *UIHandler) exportableResult(c *gin.Context, resultID string) (*report.Result, bool) {
	doc, err := h.catalog.Run(c.Request.Context(), c.Param("report"), c.Param("run"))
	if err != nil {
		h.renderError(c, err)
		return nil, false
	}

	el, err := doc.ElementByID(resultID)
	if err != nil {
		h.renderError(c, errors.New(errors.ErrCodeElementNotFound, err.Error()))
		return nil, false
	}
	res, ok := el.(*report.Result)
	if !ok || res.Kind != report.KindTable {
		h.renderError(c, errors.New(errors.ErrCodeElementNotFound, "element "+resultID+" is not a table"))
		return nil, false
	}
	if !res.Exportable() {
		h.renderError(c, errors.ErrForbidden("data export is not allowed for this table"))
		return nil, false
	}
	return res, true
}

// Resource handles GET /:report/:run/resource/:key/:filename
func (h *UIHandler) Resource(c *gin.Context) {
	ctx := c.Request.Context()
	reportID, runID := c.Param("report"), c.Param("run")
	if runID == consts.LatestRun {
		info, err := h.catalog.Info(ctx, reportID)
		if err != nil {
			h.renderError(c, err)
			return
		}
		runID = info.Latest
	}

	res, err := h.runs.Resource(ctx, reportID, runID, c.Param("key"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	etag := computeETag(res.Data)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, max-age=3600")
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, res.MimeType, res.Data)
}

// renderError renders the error page with the status of err
func (h *UIHandler) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"
	if appErr, ok := errors.AsAppError(err); ok {
		status = appErr.HTTPStatus()
		if status < http.StatusInternalServerError || h.debug {
			message = appErr.Message
		}
	} else if h.debug {
		message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Failed to serve page", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	_ = c.Error(err)
	var buf bytes.Buffer
	if renderErr := h.renderer.Error(&buf, status, message); renderErr != nil {
		c.AbortWithStatus(status)
		return
	}
	c.Data(status, htmlContentType, buf.Bytes())
	c.Abort()
}
