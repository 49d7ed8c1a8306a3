// Package config provides configuration management for the application.
// It supports a YAML configuration file with environment variable expansion
// and GLANCE_* overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/pkg/logger"
	"github.com/verustcode/glance/pkg/telemetry"
)

// Default configuration values
const (
	defaultPort            = 8091
	defaultDatabasePath    = "./data/glance.db"
	defaultRetentionCron   = "0 3 * * *"
	defaultOTLPEndpoint    = "localhost:4317"
	defaultTokenExpiry     = 24
	defaultReportCacheTTL  = 300
	defaultInfoCacheTTL    = 60
	defaultListCacheTTL    = 30
	defaultReportCacheSize = 200
	defaultInfoCacheSize   = 5000
)

// DefaultConfigPath is the config file looked up relative to the working directory
const DefaultConfigPath = "config/glance.yaml"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	Viewer    ViewerConfig     `yaml:"viewer"`
	Retention RetentionConfig  `yaml:"retention"`
	Auth      AuthConfig       `yaml:"auth"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	CORSOrigins []string `yaml:"cors_origins"`
	// BasePath mounts every route below a prefix, e.g. "/glance" behind a proxy
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ViewerConfig holds report page settings
type ViewerConfig struct {
	Title string `yaml:"title"`
	// SidebarStatus shows block status indicators in the sidebar
	SidebarStatus bool `yaml:"sidebar_status"`
	// Locale selects the collation of report groups, e.g. "de" or "sv".
	// Empty means the system locale.
	Locale string `yaml:"locale"`
	// StaticDir overrides the embedded viewer assets when set
	StaticDir string `yaml:"static_dir"`
	// StartCollapsed opens report pages with every block collapsed;
	// ?collapsed=0 or 1 overrides it per page
	StartCollapsed bool `yaml:"start_collapsed"`
	// LinkEndpoints maps block link endpoint ids to base URLs
	LinkEndpoints map[string]string `yaml:"link_endpoints"`
	Cache         CacheConfig       `yaml:"cache"`
}

// CacheConfig holds catalog cache sizes and lifetimes (seconds)
type CacheConfig struct {
	ReportTTL  int `yaml:"report_ttl"`
	ReportSize int `yaml:"report_size"`
	InfoTTL    int `yaml:"info_ttl"`
	InfoSize   int `yaml:"info_size"`
	ListTTL    int `yaml:"list_ttl"`
}

// RetentionConfig controls scheduled pruning of old runs
type RetentionConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a standard 5-field cron expression
	Schedule string `yaml:"schedule"`
	// MaxAgeDays deletes runs older than this many days (0 disables)
	MaxAgeDays int `yaml:"max_age_days"`
	// KeepRuns keeps only the newest runs per report (0 disables)
	KeepRuns int `yaml:"keep_runs"`
}

// AuthConfig protects the write API (run upload and deletion)
type AuthConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt hash
	JWTSecret    string `yaml:"jwt_secret"`
	ExpiryHours  int    `yaml:"expiry_hours"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: defaultPort,
		},
		Database: DatabaseConfig{
			Path: defaultDatabasePath,
		},
		Viewer: ViewerConfig{
			Title: consts.ProjectName,
			Cache: CacheConfig{
				ReportTTL:  defaultReportCacheTTL,
				ReportSize: defaultReportCacheSize,
				InfoTTL:    defaultInfoCacheTTL,
				InfoSize:   defaultInfoCacheSize,
				ListTTL:    defaultListCacheTTL,
			},
		},
		Retention: RetentionConfig{
			Enabled:  false,
			Schedule: defaultRetentionCron,
		},
		Auth: AuthConfig{
			Enabled:     false,
			Username:    "admin",
			ExpiryHours: defaultTokenExpiry,
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 5,
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Endpoint: defaultOTLPEndpoint,
				Insecure: true,
			},
			Prometheus: telemetry.PrometheusConfig{
				Enabled: true,
			},
		},
	}
}

// Load loads configuration from a YAML file with environment variable expansion
// and applies GLANCE_* overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Resolve returns the config file to load: the explicit path if given,
// otherwise config/glance.yaml, otherwise $XDG_CONFIG_HOME/glance/config.yaml.
// An empty result means no file exists and defaults apply.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if Exists(DefaultConfigPath) {
		return DefaultConfigPath
	}
	if p, err := xdg.SearchConfigFile(filepath.Join(consts.ServiceName, "config.yaml")); err == nil {
		return p
	}
	return ""
}

// UserConfigPath returns the per-user config location, creating its directory
func UserConfigPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(consts.ServiceName, "config.yaml"))
}

// LoadOrDefault loads the resolved config file, or returns defaults with
// environment overrides when none exists.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path := Resolve(explicit)
	if path == "" {
		cfg := Default()
		applyEnvOverrides(cfg)
		return cfg, "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Exists checks if a configuration file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Write writes the configuration to path with a header comment
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(configHeader+string(data)), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

const configHeader = `# Glance Configuration
#
# Environment Variable Support:
#   - Use ${VAR_NAME} or ${VAR_NAME:-default} in values
#   - Or use GLANCE_* environment variables to override:
#     GLANCE_SERVER_HOST, GLANCE_SERVER_PORT, GLANCE_SERVER_DEBUG
#     GLANCE_DATABASE_PATH
#     GLANCE_AUTH_USERNAME, GLANCE_AUTH_PASSWORD_HASH, GLANCE_AUTH_JWT_SECRET
#     GLANCE_LOG_LEVEL, GLANCE_LOG_FORMAT, GLANCE_LOG_FILE
#

`

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// Bare $VAR is left alone so bcrypt hashes survive.
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name, def, hasDefault := strings.Cut(match[2:len(match)-1], ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasDefault {
			return def
		}
		return ""
	})
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// TokenExpiry returns the JWT lifetime
func (c *AuthConfig) TokenExpiry() time.Duration {
	if c.ExpiryHours <= 0 {
		return defaultTokenExpiry * time.Hour
	}
	return time.Duration(c.ExpiryHours) * time.Hour
}

// Endpoint returns the base URL for a block link endpoint id
func (c *ViewerConfig) Endpoint(id string) (string, bool) {
	base, ok := c.LinkEndpoints[id]
	return base, ok
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// ReportTTLDuration returns the parsed-document cache lifetime
func (c *CacheConfig) ReportTTLDuration() time.Duration { return seconds(c.ReportTTL) }

// InfoTTLDuration returns the report info cache lifetime
func (c *CacheConfig) InfoTTLDuration() time.Duration { return seconds(c.InfoTTL) }

// ListTTLDuration returns the report list cache lifetime
func (c *CacheConfig) ListTTLDuration() time.Duration { return seconds(c.ListTTL) }
