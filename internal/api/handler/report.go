package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/api/middleware"
	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/export"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/internal/web"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/idgen"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

// ReportHandler serves the JSON API over stored runs
type ReportHandler struct {
	catalog  *catalog.Catalog
	runs     store.RunStore
	exports  *export.Manager
	renderer *web.Renderer
	now      func() time.Time
}

// NewReportHandler creates a new report handler
func NewReportHandler(cat *catalog.Catalog, runs store.RunStore, exports *export.Manager, renderer *web.Renderer) *ReportHandler {
	return &ReportHandler{
		catalog:  cat,
		runs:     runs,
		exports:  exports,
		renderer: renderer,
		now:      time.Now,
	}
}

// Index handles GET /api/v1/index
func (h *ReportHandler) Index(c *gin.Context) {
	groups, err := h.catalog.Groups(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": groups})
}

// ListReports handles GET /api/v1/reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	infos, err := h.catalog.Index(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  infos,
		"total": len(infos),
	})
}

// GetReport handles GET /api/v1/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	info, err := h.catalog.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetRun handles GET /api/v1/reports/:id/runs/:run
//
// Query parameters filter the results of the run: element=s-b-r selects one
// element by id, match=section/block/result selects results by glob and
// regexp=... by regular expression.
func (h *ReportHandler) GetRun(c *gin.Context) {
	doc, err := h.catalog.Run(c.Request.Context(), c.Param("id"), c.Param("run"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	if id := c.Query("element"); id != "" {
		el, err := doc.ElementByID(id)
		if err != nil {
			abortWithError(c, errors.New(errors.ErrCodeElementNotFound, err.Error()))
			return
		}
		c.JSON(http.StatusOK, gin.H{"element": id, "data": el})
		return
	}

	var results []*report.Result
	switch {
	case c.Query("match") != "":
		results, err = doc.Match(c.Query("match"))
	case c.Query("regexp") != "":
		results, err = doc.MatchRegexp(c.Query("regexp"))
	default:
		tags := report.CollectTags(doc)
		c.JSON(http.StatusOK, gin.H{
			"report_id":    doc.ID,
			"run_id":       doc.RunID,
			"status":       doc.WorstStatus(),
			"status_stats": statusCounts(doc.StatusStats()),
			"tags":         tags.Counter,
			"url":          h.renderer.ReportURL(doc.ID, doc.RunID),
			"document":     doc,
		})
		return
	}
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if results == nil {
		results = []*report.Result{}
	}
	c.JSON(http.StatusOK, gin.H{"data": results, "total": len(results)})
}

// UploadResource is an attachment of an uploaded run; Data is base64 in JSON
type UploadResource struct {
	Key      string `json:"key" binding:"required"`
	Filename string `json:"filename"`
	Data     []byte `json:"data" binding:"required"`
}

// CreateRunRequest represents the upload body. Document holds a report file,
// either inline JSON or a string with the JSON or YAML file content.
type CreateRunRequest struct {
	Document  json.RawMessage  `json:"document" binding:"required"`
	Resources []UploadResource `json:"resources"`
}

// CreateRun handles POST /api/v1/runs
func (h *ReportHandler) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	data := []byte(req.Document)
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var content string
		if err := json.Unmarshal(trimmed, &content); err != nil {
			badRequest(c, "Invalid document string")
			return
		}
		data = []byte(content)
	}

	doc, _, err := report.Decode(data)
	if err != nil {
		logger.Warn("Rejected uploaded run",
			zap.String("document", truncateContent(string(data), 200)),
			zap.Error(err))
		abortWithError(c, err)
		return
	}
	doc.Normalize(h.now())

	resources := make([]store.ResourceData, 0, len(req.Resources))
	for _, r := range req.Resources {
		if r.Filename != "" && !validateFilename(r.Filename) {
			badRequest(c, fmt.Sprintf("Invalid resource filename %q", r.Filename))
			return
		}
		resources = append(resources, store.ResourceData{Key: r.Key, Filename: r.Filename, Data: r.Data})
	}

	replaced, err := h.runs.Save(c.Request.Context(), doc, resources)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.catalog.Invalidate(doc.ID)
	telemetry.Annotate(c.Request.Context(),
		telemetry.AttrReportID.String(doc.ID),
		telemetry.AttrRunID.String(doc.RunID),
		telemetry.AttrRunStatus.String(doc.WorstStatus().String()))

	status := http.StatusCreated
	if replaced {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"upload_id": idgen.NewUploadID(),
		"report_id": doc.ID,
		"run_id":    doc.RunID,
		"replaced":  replaced,
		"url":       h.renderer.ReportURL(doc.ID, doc.RunID),
	})
}

// DeleteRun handles DELETE /api/v1/reports/:id/runs/:run
func (h *ReportHandler) DeleteRun(c *gin.Context) {
	reportID, runID := c.Param("id"), c.Param("run")
	if runID == consts.LatestRun {
		badRequest(c, "Runs must be deleted by id")
		return
	}

	if err := h.runs.Delete(c.Request.Context(), reportID, runID); err != nil {
		abortWithError(c, err)
		return
	}
	h.catalog.Invalidate(reportID)

	logger.Info("Run deleted via API",
		zap.String(logger.FieldReportID, reportID),
		zap.String(logger.FieldRunID, runID),
		zap.String("username", c.GetString(middleware.ContextKeyUsername)))
	c.JSON(http.StatusOK, gin.H{"message": "Run deleted"})
}

// DeleteReport handles DELETE /api/v1/reports/:id and removes every run
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	reportID := c.Param("id")
	n, err := h.runs.DeleteReport(c.Request.Context(), reportID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if n == 0 {
		abortWithError(c, errors.ErrReportNotFound(reportID))
		return
	}
	h.catalog.Invalidate(reportID)

	logger.Info("Report deleted via API",
		zap.String(logger.FieldReportID, reportID),
		zap.Int64("runs", n),
		zap.String("username", c.GetString(middleware.ContextKeyUsername)))
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted", "deleted": n})
}

// ExportRun handles GET /api/v1/reports/:id/runs/:run/export?format=markdown
func (h *ReportHandler) ExportRun(c *gin.Context) {
	ctx := c.Request.Context()
	format := c.DefaultQuery("format", consts.ExportFormatMarkdown)
	if _, err := h.exports.Get(format); err != nil {
		abortWithError(c, err)
		return
	}

	doc, err := h.catalog.Run(ctx, c.Param("id"), c.Param("run"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	resources, err := export.LoadResources(ctx, h.runs, doc)
	if err != nil {
		abortWithError(c, err)
		return
	}

	out, err := h.exports.Export(ctx, format, &export.Run{Doc: doc, Resources: resources})
	if err != nil {
		abortWithError(c, err)
		return
	}

	attachment(c, out.Filename)
	c.Header("Content-Length", strconv.Itoa(len(out.Data)))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

// statusCounts keys the counts by status name
func statusCounts(stats map[report.Status]int) map[string]int {
	counts := make(map[string]int, len(stats))
	for status, n := range stats {
		counts[status.String()] = n
	}
	return counts
}
