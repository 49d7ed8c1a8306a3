// Package server assembles the viewer: store, catalog, renderer, exporters
// and router, and runs the HTTP listener until shutdown.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/glance/internal/api/router"
	"github.com/verustcode/glance/internal/auth"
	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/internal/database"
	"github.com/verustcode/glance/internal/export"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/internal/web"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 150 * time.Second // PDF exports run a headless browser
	idleTimeout  = 60 * time.Second

	shutdownTimeout = 30 * time.Second
	stopTimeout     = 5 * time.Second
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	listener   net.Listener
	router     *gin.Engine
	store      store.Store
	telemetry  *telemetry.Telemetry
	catalog    *catalog.Catalog
	renderer   *web.Renderer
	exports    *export.Manager
	auth       *auth.Authenticator
	retention  *store.RetentionService
}

// New creates a new server instance. tel may be nil when telemetry is not
// initialized, in which case /metrics is not served.
func New(cfg *config.Config, s store.Store, tel *telemetry.Telemetry) (*Server, error) {
	// Set Gin mode based on debug flag
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Report URLs carry ids in every segment, never redirect them
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	renderer, err := web.New(&cfg.Viewer, cfg.Server.BasePath)
	if err != nil {
		return nil, err
	}
	if !renderer.HasViewer() {
		logger.Warn("Browser viewer assets missing, report pages only change state through their URL",
			zap.Strings("assets", web.ViewerAssets),
			zap.String("hint", "go generate ./internal/web"))
	}

	cat := catalog.New(s.Run(), catalog.OptionsFromConfig(&cfg.Viewer))

	srv := &Server{
		cfg:       cfg,
		router:    r,
		store:     s,
		telemetry: tel,
		catalog:   cat,
		renderer:  renderer,
		exports:   export.NewDefaultManager(renderer, export.DefaultPDFOptions()),
		auth:      auth.New(&cfg.Auth),
	}

	if cfg.Retention.Enabled {
		srv.retention = store.NewRetentionService(s.Run(), RetentionPolicy(&cfg.Retention), func() {
			cat.Invalidate("")
		})
	}

	if tel != nil {
		if err := tel.Register(telemetry.NewReportStatusCollector(s.Run())); err != nil {
			return nil, err
		}
	}

	return srv, nil
}

// RetentionPolicy converts the retention configuration into a pruning policy
func RetentionPolicy(cfg *config.RetentionConfig) store.RetentionPolicy {
	return store.RetentionPolicy{
		Schedule: cfg.Schedule,
		MaxAge:   time.Duration(cfg.MaxAgeDays) * 24 * time.Hour,
		KeepRuns: cfg.KeepRuns,
	}
}

// SetupRoutes configures the API, UI and download routes
func (s *Server) SetupRoutes() {
	deps := router.Deps{
		Config:   s.cfg,
		Catalog:  s.catalog,
		Runs:     s.store.Run(),
		Renderer: s.renderer,
		Exports:  s.exports,
		Auth:     s.auth,
	}
	deps.HealthCheck = func(ctx context.Context) error {
		return database.Ping(ctx, s.store.DB())
	}
	if s.telemetry != nil && s.telemetry.ServesOnRouter() {
		deps.Metrics = s.telemetry.Handler()
	}
	router.Setup(s.router, deps)
}

// Start starts the retention scheduler, binds the listen address and
// serves in the background. Bind errors are returned.
func (s *Server) Start() error {
	if s.retention != nil {
		if err := s.retention.Start(); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", s.cfg.Server.Address())
	if err != nil {
		if s.retention != nil {
			s.retention.Stop()
		}
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Address(), err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	logger.Info("Serving HTTP",
		zap.String("address", ln.Addr().String()),
		zap.String("base_path", s.cfg.Server.BasePath),
		zap.Bool("debug", s.cfg.Server.Debug),
		zap.Bool("auth", s.auth.Enabled()),
	)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then drains in-flight
// requests. A second signal exits immediately.
func (s *Server) WaitForShutdown() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	<-ctx.Done()
	stop()
	logger.Info("Shutting down, press Ctrl+C again to force exit")

	force := make(chan os.Signal, 1)
	signal.Notify(force, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-force
		logger.Warn("Forced exit")
		os.Exit(1)
	}()

	if err := s.shutdown(shutdownTimeout); err != nil {
		logger.Error("Graceful shutdown incomplete", zap.Error(err))
	}
	logger.Info("Server stopped")
}

// Stop shuts the server down without waiting for a signal
func (s *Server) Stop() error {
	return s.shutdown(stopTimeout)
}

func (s *Server) shutdown(timeout time.Duration) error {
	if s.retention != nil {
		s.retention.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Catalog returns the report catalog shared by the handlers
func (s *Server) Catalog() *catalog.Catalog {
	return s.catalog
}

// Exports returns the export manager
func (s *Server) Exports() *export.Manager {
	return s.exports
}
