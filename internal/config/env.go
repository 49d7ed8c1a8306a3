package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "GLANCE_"

// applyEnvOverrides applies GLANCE_* environment variables to cfg
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if v := getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := getenv("SERVER_DEBUG"); v != "" {
		cfg.Server.Debug = parseBool(v)
	}
	if v := getenv("SERVER_BASE_PATH"); v != "" {
		cfg.Server.BasePath = v
	}

	if v := getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := getenv("VIEWER_LOCALE"); v != "" {
		cfg.Viewer.Locale = v
	}
	if v := getenv("VIEWER_TITLE"); v != "" {
		cfg.Viewer.Title = v
	}

	// Auth overrides
	if v := getenv("AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = parseBool(v)
	}
	if v := getenv("AUTH_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := getenv("AUTH_PASSWORD_HASH"); v != "" {
		cfg.Auth.PasswordHash = v
	}
	if v := getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}

	// Retention overrides
	if v := getenv("RETENTION_ENABLED"); v != "" {
		cfg.Retention.Enabled = parseBool(v)
	}
	if v := getenv("RETENTION_MAX_AGE_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Retention.MaxAgeDays = days
		}
	}
	if v := getenv("RETENTION_KEEP_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retention.KeepRuns = n
		}
	}

	// Logging overrides
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	// Telemetry overrides
	if v := getenv("TELEMETRY_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = parseBool(v)
	}
	if v := getenv("OTLP_ENABLED"); v != "" {
		cfg.Telemetry.OTLP.Enabled = parseBool(v)
	}
	if v := getenv("OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLP.Endpoint = v
	}
	if v := getenv("PROMETHEUS_ENABLED"); v != "" {
		cfg.Telemetry.Prometheus.Enabled = parseBool(v)
	}
	if v := getenv("PROMETHEUS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Telemetry.Prometheus.Port = port
		}
	}
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// parseBool parses a boolean string value
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// UpdateAuthSecrets rewrites only auth.jwt_secret and auth.password_hash
// (when non-empty) in an existing config file, preserving every other field.
func UpdateAuthSecrets(path, jwtSecret, passwordHash string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := os.WriteFile(path+".backup", content, 0600); err != nil {
		// backup is best effort
		fmt.Fprintf(os.Stderr, "[WARNING] Failed to create backup: %v\n", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw == nil {
		raw = make(map[string]interface{})
	}

	auth, ok := raw["auth"].(map[string]interface{})
	if !ok {
		auth = make(map[string]interface{})
		raw["auth"] = auth
	}
	if jwtSecret != "" {
		auth["jwt_secret"] = jwtSecret
	}
	if passwordHash != "" {
		auth["password_hash"] = passwordHash
	}

	out, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, []byte(configHeader+string(out)), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
