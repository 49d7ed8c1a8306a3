// Package main is the entry point for the Glance application.
// Glance stores report runs and serves them as browsable web pages.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/check"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/internal/database"
	"github.com/verustcode/glance/internal/server"
	"github.com/verustcode/glance/internal/store"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/idgen"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

// Build information - set via ldflags during build
// These variables are linked to consts package for global access
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// init synchronizes build info to consts package for global access
func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// configFlag holds the --config flag
var configFlag string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "glance",
	Short: "Glance - report run storage and viewer",
	Long: `Glance stores report runs (sections, blocks and results with a status)
and serves them as web pages with tag filtering and collapsible blocks.`,
	SilenceUsage: true,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Glance server",
	Long: `Start the HTTP server serving the report pages and the upload API.

On first run, use --check flag to interactively set up your environment:
  glance serve --check

Configuration is looked up in this order:
  --config, config/glance.yaml, $XDG_CONFIG_HOME/glance/config.yaml`,
	Run: runServe,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", consts.ProjectName, Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	// Disable auto-generated completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file path (default: config/glance.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(exportCmd)

	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")
	serveCmd.Flags().Bool("check", false, "run interactive environment check before starting server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runServe starts the Glance server
func runServe(cmd *cobra.Command, args []string) {
	interactiveCheck, _ := cmd.Flags().GetBool("check")

	checkPath := config.Resolve(configFlag)
	if interactiveCheck {
		checker := check.NewChecker(checkPath)
		if err := checker.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Environment check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\n✓ Environment check completed successfully")
	} else {
		checker := check.NewChecker(checkPath)
		result := checker.RunNonInteractive()

		if !result.Success {
			check.PrintCheckResult(result)
			os.Exit(1)
		}

		// Warnings don't block startup
		if len(result.Warnings) > 0 {
			for _, warn := range result.Warnings {
				fmt.Fprintf(os.Stderr, "[WARNING] %s\n", warn)
			}
			fmt.Fprintln(os.Stderr)
		}
	}

	consts.MarkStarted(time.Now())

	cfg, cfgPath, err := config.LoadOrDefault(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}

	ensureJWTSecret(cfg, cfgPath)

	if validationErr := cfg.Validate(); validationErr != nil {
		printValidationError(validationErr)
		os.Exit(errors.ExitCodeConfigValidation)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Glance",
		zap.String("version", Version),
		zap.String("config", cfgPath),
	)

	// Initialize telemetry (OpenTelemetry traces and metrics)
	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	dbOpts := database.Options{Path: cfg.Database.Path, Debug: cfg.Server.Debug}
	if err := database.Init(dbOpts); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	dataStore := store.NewStore(database.Get())
	if st, err := dataStore.Stats(context.Background()); err == nil {
		logger.Info("Run store opened",
			zap.Int64("reports", st.Reports),
			zap.Int64("runs", st.Runs),
			zap.Int64("resource_bytes", st.ResourceBytes))
	}

	srv, err := server.New(cfg, dataStore, tel)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info("Glance server is running",
		zap.String("address", srv.Addr()),
	)

	// Log access URLs for user convenience
	port := cfg.Server.Port
	logger.Info(fmt.Sprintf("  Local:   http://localhost:%d%s/", port, cfg.Server.BasePath))
	if lanIP := getLocalIP(); lanIP != "" {
		logger.Info(fmt.Sprintf("  Network: http://%s:%d%s/", lanIP, port, cfg.Server.BasePath))
	}

	srv.WaitForShutdown()

	logger.Info("Glance stopped")
}

// ensureJWTSecret generates a missing JWT secret and saves it to the config
// file, so tokens stay valid across restarts.
func ensureJWTSecret(cfg *config.Config, cfgPath string) {
	if !cfg.Auth.Enabled || strings.TrimSpace(cfg.Auth.JWTSecret) != "" {
		return
	}
	cfg.Auth.JWTSecret = idgen.NewSecureSecret(config.MinJWTSecretLength)

	if cfgPath == "" {
		fmt.Fprintf(os.Stderr, "[WARNING] No config file, using an auto-generated JWT secret for this session only.\n\n")
		return
	}
	if err := config.UpdateAuthSecrets(cfgPath, cfg.Auth.JWTSecret, ""); err != nil {
		fmt.Fprintf(os.Stderr, "[WARNING] Failed to save JWT secret to config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using auto-generated JWT secret for this session only.\n\n")
		return
	}
	fmt.Fprintf(os.Stderr, "[INFO] JWT secret was empty, auto-generated and saved to %s.\n\n", cfgPath)
}

// printValidationError prints a config error with a hint for the usual causes
func printValidationError(validationErr *errors.AppError) {
	fmt.Fprintf(os.Stderr, "\n[ERROR] Configuration validation failed\n")
	fmt.Fprintf(os.Stderr, "Error Code: %s\n", validationErr.Code)
	fmt.Fprintf(os.Stderr, "Error: %v\n\n", validationErr)

	switch validationErr.Code {
	case errors.ErrCodeJWTSecretInvalid:
		fmt.Fprintf(os.Stderr, "JWT secret is invalid or too short.\n")
		fmt.Fprintf(os.Stderr, "Please configure JWT secret in your config file:\n")
		fmt.Fprintf(os.Stderr, "  auth:\n")
		fmt.Fprintf(os.Stderr, "    jwt_secret: \"%s\"\n\n", idgen.NewSecureSecret(config.MinJWTSecretLength))
	case errors.ErrCodeAuthCredentialsEmpty:
		fmt.Fprintf(os.Stderr, "Please configure the upload username in your config file:\n")
		fmt.Fprintf(os.Stderr, "  auth:\n")
		fmt.Fprintf(os.Stderr, "    username: \"ci\"\n\n")
	default:
		fmt.Fprintf(os.Stderr, "Run 'glance serve --check' to check your configuration.\n\n")
	}
}

// loadConfig loads the configuration and initializes the logger for
// short-lived commands.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(configFlag)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}
	ensureJWTSecret(cfg, path)
	if appErr := cfg.Validate(); appErr != nil {
		return nil, "", appErr
	}

	logCfg := cfg.Logging
	logCfg.File = ""
	logCfg.AccessLog = false
	if logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, path, nil
}

// openStore opens the configured database
func openStore(cfg *config.Config) (store.Store, func(), error) {
	if err := database.InitWithPath(cfg.Database.Path); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store.NewStore(database.Get()), func() { database.Close() }, nil
}

// getLocalIP returns the first non-loopback IPv4 address
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
