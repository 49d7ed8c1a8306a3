// Package router sets up the HTTP routes of the viewer: the report pages,
// their downloads and the JSON API.
package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/api/handler"
	"github.com/verustcode/glance/internal/api/middleware"
	"github.com/verustcode/glance/internal/auth"
	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/internal/export"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/internal/web"
	"github.com/verustcode/glance/pkg/logger"
)

// Deps are the services the routes are served by
type Deps struct {
	Config   *config.Config
	Catalog  *catalog.Catalog
	Runs     store.RunStore
	Renderer *web.Renderer
	Exports  *export.Manager
	Auth     *auth.Authenticator
	// Metrics serves /metrics when set
	Metrics http.Handler
	// HealthCheck reports storage problems on /health when set
	HealthCheck func(ctx context.Context) error
}

// Setup configures all routes under server.base_path
func Setup(r *gin.Engine, d Deps) {
	cfg := d.Config

	// Apply global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog:    cfg.Logging.AccessLog,
		SkipPrefixes: []string{
			cfg.Server.BasePath + "/health",
			cfg.Server.BasePath + web.StaticPrefix,
		},
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))

	// Apply OpenTelemetry tracing middleware
	r.Use(otelgin.Middleware(consts.ServiceName))

	base := r.Group(cfg.Server.BasePath)

	// Health check endpoint (public)
	base.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if d.HealthCheck != nil {
			if err := d.HealthCheck(c.Request.Context()); err != nil {
				logger.Warn("Health check failed", zap.Error(err))
				status, code = "unavailable", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": consts.Version,
			"uptime":  consts.Uptime().String(),
		})
	})
	if d.Metrics != nil {
		base.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// ============== API routes ==============

	authHandler := handler.NewAuthHandler(d.Auth)
	reportHandler := handler.NewReportHandler(d.Catalog, d.Runs, d.Exports, d.Renderer)

	v1 := base.Group("/api/v1")
	{
		v1.POST("/auth/token", authHandler.Token)

		v1.GET("/index", reportHandler.Index)
		v1.GET("/reports", reportHandler.ListReports)
		v1.GET("/reports/:id", reportHandler.GetReport)
		v1.GET("/reports/:id/runs/:run", reportHandler.GetRun)
		v1.GET("/reports/:id/runs/:run/export", reportHandler.ExportRun)
	}

	// Write routes need a token when auth is enabled
	write := v1.Group("")
	if d.Auth.Enabled() {
		write.Use(middleware.JWTAuth(d.Auth))
		write.GET("/auth/me", authHandler.Me)
	}
	{
		write.POST("/runs", reportHandler.CreateRun)
		write.DELETE("/reports/:id", reportHandler.DeleteReport)
		write.DELETE("/reports/:id/runs/:run", reportHandler.DeleteRun)
	}

	// ============== UI routes ==============

	ui := handler.NewUIHandler(d.Catalog, d.Runs, d.Renderer, cfg.Server.Debug)

	base.StaticFS(web.StaticPrefix, d.Renderer.StaticFS())
	base.GET("/", ui.Index)
	base.GET("/reports/:report", ui.Report)
	base.GET("/reports/:report/:run", ui.Report)
	base.GET("/reports/:report/:run/:block", ui.Report)

	base.GET("/:report/:run/data-export/csv/:result", ui.DataExportCSV)
	base.GET("/:report/:run/data-export/json/:result", ui.DataExportJSON)
	base.GET("/:report/:run/resource/:key/:filename", ui.Resource)
}
