package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glance.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestDefault tests the default configuration values
func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Address() != "0.0.0.0:8091" {
		t.Errorf("Server.Address() = %v, want 0.0.0.0:8091", cfg.Server.Address())
	}
	if cfg.Database.Path != "./data/glance.db" {
		t.Errorf("Database.Path = %v, want ./data/glance.db", cfg.Database.Path)
	}
	if cfg.Viewer.Title != "Glance" {
		t.Errorf("Viewer.Title = %v, want Glance", cfg.Viewer.Title)
	}
	if cfg.Viewer.Cache.ReportTTLDuration() != 5*time.Minute {
		t.Errorf("ReportTTLDuration() = %v, want 5m", cfg.Viewer.Cache.ReportTTLDuration())
	}
	if cfg.Viewer.Cache.InfoSize != 5000 || cfg.Viewer.Cache.ReportSize != 200 {
		t.Errorf("cache sizes = %d/%d, want 5000/200", cfg.Viewer.Cache.InfoSize, cfg.Viewer.Cache.ReportSize)
	}
	if cfg.Retention.Enabled {
		t.Error("Retention.Enabled should be false by default")
	}
	if cfg.Auth.TokenExpiry() != 24*time.Hour {
		t.Errorf("Auth.TokenExpiry() = %v, want 24h", cfg.Auth.TokenExpiry())
	}
	if cfg.Telemetry.Prometheus.Port != 0 {
		t.Errorf("Prometheus.Port = %d, want 0 (main router)", cfg.Telemetry.Prometheus.Port)
	}
}

// TestLoad tests loading a config file over the defaults
func TestLoad(t *testing.T) {
	path := writeFile(t, `
server:
  host: "127.0.0.1"
  port: 9000
  base_path: /glance
viewer:
  title: Nightly
  sidebar_status: true
  link_endpoints:
    wiki: https://wiki.example.com
retention:
  enabled: true
  keep_runs: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Address() != "127.0.0.1:9000" {
		t.Errorf("Server.Address() = %v", cfg.Server.Address())
	}
	if cfg.Server.BasePath != "/glance" {
		t.Errorf("Server.BasePath = %v", cfg.Server.BasePath)
	}
	if !cfg.Viewer.SidebarStatus || cfg.Viewer.Title != "Nightly" {
		t.Errorf("Viewer = %+v", cfg.Viewer)
	}
	if base, ok := cfg.Viewer.Endpoint("wiki"); !ok || base != "https://wiki.example.com" {
		t.Errorf("Endpoint(wiki) = %v, %v", base, ok)
	}
	if _, ok := cfg.Viewer.Endpoint("missing"); ok {
		t.Error("Endpoint(missing) should not be found")
	}
	// untouched sections keep their defaults
	if cfg.Retention.Schedule != "0 3 * * *" {
		t.Errorf("Retention.Schedule = %v, want default", cfg.Retention.Schedule)
	}
	if cfg.Database.Path != "./data/glance.db" {
		t.Errorf("Database.Path = %v, want default", cfg.Database.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

// TestLoadErrors tests missing and malformed files
func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file should fail")
	}
	if _, err := Load(writeFile(t, "server: [unclosed")); err == nil {
		t.Error("Load() of malformed YAML should fail")
	}
}

// TestExpandEnvVars tests ${VAR} and ${VAR:-default} expansion
func TestExpandEnvVars(t *testing.T) {
	t.Setenv("GLANCE_TEST_SECRET", "from-env")

	tests := []struct {
		in   string
		want string
	}{
		{"secret: ${GLANCE_TEST_SECRET}", "secret: from-env"},
		{"secret: ${GLANCE_TEST_UNSET:-fallback}", "secret: fallback"},
		{"secret: ${GLANCE_TEST_SECRET:-fallback}", "secret: from-env"},
		{"secret: ${GLANCE_TEST_UNSET}", "secret: "},
		{"hash: $2a$10$abc", "hash: $2a$10$abc"},
	}
	for _, tt := range tests {
		if got := expandEnvVars(tt.in); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestEnvOverrides tests GLANCE_* overrides applied after the file
func TestEnvOverrides(t *testing.T) {
	t.Setenv("GLANCE_SERVER_PORT", "7000")
	t.Setenv("GLANCE_SERVER_DEBUG", "yes")
	t.Setenv("GLANCE_DATABASE_PATH", "/tmp/x.db")
	t.Setenv("GLANCE_AUTH_ENABLED", "1")
	t.Setenv("GLANCE_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("GLANCE_RETENTION_KEEP_RUNS", "3")
	t.Setenv("GLANCE_LOG_LEVEL", "debug")
	t.Setenv("GLANCE_PROMETHEUS_PORT", "not-a-number")

	cfg, err := Load(writeFile(t, "server:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7000 || !cfg.Server.Debug {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Database.Path != "/tmp/x.db" {
		t.Errorf("Database.Path = %v", cfg.Database.Path)
	}
	if !cfg.Auth.Enabled || cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Retention.KeepRuns != 3 {
		t.Errorf("Retention.KeepRuns = %d", cfg.Retention.KeepRuns)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v", cfg.Logging.Level)
	}
	if cfg.Telemetry.Prometheus.Port != 0 {
		t.Errorf("invalid port override applied: %d", cfg.Telemetry.Prometheus.Port)
	}
}

// TestParseBool tests boolean parsing of override values
func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "TRUE", " 1 ", "yes", "on"} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false", v)
		}
	}
	for _, v := range []string{"false", "0", "no", "off", ""} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true", v)
		}
	}
}

// TestWriteAndResolve tests that a written config loads back and is resolved explicitly
func TestWriteAndResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "glance.yaml")
	cfg := Default()
	cfg.Viewer.Title = "Written"
	cfg.Retention.KeepRuns = 5

	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# Glance Configuration") {
		t.Error("written config misses the header")
	}

	if got := Resolve(path); got != path {
		t.Errorf("Resolve() = %v, want %v", got, path)
	}
	loaded, used, err := LoadOrDefault(path)
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if used != path || loaded.Viewer.Title != "Written" || loaded.Retention.KeepRuns != 5 {
		t.Errorf("LoadOrDefault() = %+v from %v", loaded.Viewer, used)
	}
}

// TestUpdateAuthSecrets tests that only auth secrets change
func TestUpdateAuthSecrets(t *testing.T) {
	path := writeFile(t, "server:\n  port: 9100\nauth:\n  enabled: true\n  username: ops\n")

	if err := UpdateAuthSecrets(path, "12345678901234567890123456789012", testHash); err != nil {
		t.Fatalf("UpdateAuthSecrets() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9100 || cfg.Auth.Username != "ops" || !cfg.Auth.Enabled {
		t.Errorf("unrelated fields changed: %+v %+v", cfg.Server, cfg.Auth)
	}
	if cfg.Auth.JWTSecret != "12345678901234567890123456789012" || cfg.Auth.PasswordHash != testHash {
		t.Errorf("secrets not written: %+v", cfg.Auth)
	}
	if _, err := os.Stat(path + ".backup"); err != nil {
		t.Errorf("backup not created: %v", err)
	}
}
