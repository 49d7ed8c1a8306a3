package check

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/verustcode/glance/internal/config"
)

// chromeExecutables are the browser names tried for PDF export
var chromeExecutables = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
}

// ValidationResult represents the result of a config validation
type ValidationResult struct {
	Path     string
	Valid    bool
	Detail   string
	Error    error
	Warnings []string
}

// validateConfigs validates the config file and the paths it names.
// A missing file validates the defaults.
func (c *Checker) validateConfigs() (*config.Config, error) {
	cfg := config.Default()
	if fileExists(c.configPath) {
		result, loaded := c.validateConfigFile()
		c.report.AddValidationResult(result)
		printValidationResult(result)
		if !result.Valid {
			return nil, fmt.Errorf("%s validation failed: %w", c.configPath, result.Error)
		}
		cfg = loaded
	}

	for _, result := range []ValidationResult{
		validateDatabasePath(cfg.Database.Path),
		validateStaticDir(cfg.Viewer.StaticDir),
	} {
		c.report.AddValidationResult(result)
		printValidationResult(result)
		if !result.Valid {
			return nil, result.Error
		}
	}
	return cfg, nil
}

// validateConfigFile checks YAML syntax, loads the file and validates it
func (c *Checker) validateConfigFile() (ValidationResult, *config.Config) {
	result := ValidationResult{Path: c.configPath}

	if err := validateYamlSyntax(c.configPath); err != nil {
		result.Error = err
		return result, nil
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		result.Error = fmt.Errorf("format error: %v", err)
		return result, nil
	}

	// jwt_secret is generated on startup, don't fail on a missing one here
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		result.Warnings = append(result.Warnings, "auth.jwt_secret is empty and will be generated on startup")
		validated := *cfg
		validated.Auth.JWTSecret = strings.Repeat("x", config.MinJWTSecretLength)
		if appErr := validated.Validate(); appErr != nil {
			result.Error = appErr
			return result, nil
		}
	} else if appErr := cfg.Validate(); appErr != nil {
		result.Error = appErr
		return result, nil
	}

	result.Valid = true
	if cfg.Auth.Enabled {
		result.Detail = "auth enabled"
	}
	return result, cfg
}

// validateDatabasePath checks that the database directory exists or can be created
func validateDatabasePath(path string) ValidationResult {
	result := ValidationResult{Path: path}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Error = fmt.Errorf("cannot create database directory %s: %w", dir, err)
		return result
	}

	probe, err := os.CreateTemp(dir, ".glance-check-*")
	if err != nil {
		result.Error = fmt.Errorf("database directory %s is not writable: %w", dir, err)
		return result
	}
	probe.Close()
	os.Remove(probe.Name())

	result.Valid = true
	if fileExists(path) {
		result.Detail = "existing database"
	} else {
		result.Detail = "will be created"
	}
	return result
}

// validateStaticDir checks the optional viewer asset override
func validateStaticDir(dir string) ValidationResult {
	if dir == "" {
		return ValidationResult{Path: "embedded:viewer-assets", Valid: true}
	}
	result := ValidationResult{Path: dir}
	info, err := os.Stat(dir)
	if err != nil {
		result.Error = fmt.Errorf("cannot read static_dir: %w", err)
		return result
	}
	if !info.IsDir() {
		result.Error = fmt.Errorf("static_dir is not a directory")
		return result
	}
	result.Valid = true
	return result
}

// checkTools reports optional executables, missing ones only disable features
func (c *Checker) checkTools() {
	result := c.findChrome()
	c.report.AddValidationResult(result)
	printValidationResult(result)
}

// findChrome locates a browser for PDF export, CHROME_PATH first
func (c *Checker) findChrome() ValidationResult {
	result := ValidationResult{Path: "chrome (pdf export)", Valid: true}

	if p := os.Getenv("CHROME_PATH"); p != "" {
		if fileExists(p) {
			result.Detail = p
			return result
		}
		result.Warnings = append(result.Warnings, fmt.Sprintf("CHROME_PATH %s does not exist", p))
	}

	for _, name := range chromeExecutables {
		if p, err := c.lookPath(name); err == nil {
			result.Detail = p
			return result
		}
	}

	result.Valid = false
	result.Warnings = append(result.Warnings,
		"No Chrome or Chromium found, PDF export will fail (set CHROME_PATH)")
	return result
}

// validateYamlSyntax validates YAML syntax
func validateYamlSyntax(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read file: %w", err)
	}

	var content any
	if err := yaml.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("YAML syntax error: %w", err)
	}

	return nil
}

// printValidationResult prints the validation result
func printValidationResult(result ValidationResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if result.Valid {
		if result.Detail != "" {
			green.Printf("  ✓ %s (%s)\n", result.Path, result.Detail)
		} else {
			green.Printf("  ✓ %s\n", result.Path)
		}
	} else if result.Error != nil {
		red.Printf("  ✗ %s: %v\n", result.Path, result.Error)
	} else {
		yellow.Printf("  ⚠ %s\n", result.Path)
	}

	for _, warning := range result.Warnings {
		yellow.Printf("    └─ %s\n", warning)
	}
}
