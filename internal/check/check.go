// Package check verifies the environment before the server starts and
// creates a configuration file interactively.
package check

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/verustcode/glance/internal/config"
)

// CheckResult is the outcome of RunNonInteractive
type CheckResult struct {
	// Success is false when an error blocks startup
	Success bool
	// Errors block startup
	Errors []string
	// Warnings are printed but do not block startup
	Warnings []string
	// Suggestions tell the user how to fix the above
	Suggestions []string
}

func (r *CheckResult) fail(format string, args ...any) {
	r.Success = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *CheckResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *CheckResult) suggest(format string, args ...any) {
	r.Suggestions = append(r.Suggestions, fmt.Sprintf(format, args...))
}

// Checker checks one configuration file and the paths it names
type Checker struct {
	configPath string
	report     *Report
	theme      *huh.Theme
	// lookPath resolves executables, replaced in tests
	lookPath func(file string) (string, error)
}

// NewChecker creates a checker for configPath.
// An empty path uses config/glance.yaml.
func NewChecker(configPath string) *Checker {
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}
	return &Checker{
		configPath: configPath,
		report:     NewReport(),
		theme:      huh.ThemeCharm(),
		lookPath:   exec.LookPath,
	}
}

// ConfigPath returns the checked config file
func (c *Checker) ConfigPath() string {
	return c.configPath
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1)
	stepStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).MarginTop(1)
)

// Run checks the environment interactively, offering to create a missing
// config file, and prints a summary table
func (c *Checker) Run() error {
	fmt.Println(headerStyle.Render("🔍 Glance Environment Check"))

	steps := []struct {
		title string
		run   func() error
	}{
		{"Configuration file", c.checkConfigFile},
		{"Configuration values", func() error {
			_, err := c.validateConfigs()
			return err
		}},
		{"Optional tools", func() error {
			c.checkTools()
			return nil
		}},
	}
	for _, step := range steps {
		fmt.Println(stepStyle.Render(step.title + "..."))
		if err := step.run(); err != nil {
			return fmt.Errorf("%s: %w", step.title, err)
		}
	}

	fmt.Println()
	c.report.Print()
	return nil
}

// confirmCreate asks whether a missing file should be created
func confirmCreate(path string) (bool, error) {
	create := true
	err := huh.NewConfirm().
		Title(fmt.Sprintf("%s does not exist. Create it now?", path)).
		Value(&create).
		Run()
	return create, err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ensureDir creates the parent directory of path
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// RunNonInteractive checks the environment without prompting or writing
// config files. A missing config file is a warning: the server then runs
// on defaults.
func (c *Checker) RunNonInteractive() *CheckResult {
	result := &CheckResult{Success: true}

	cfg := config.Default()
	if fileExists(c.configPath) {
		vr, loaded := c.validateConfigFile()
		if !vr.Valid {
			result.fail("Invalid %s: %v", c.configPath, vr.Error)
			result.suggest("Run 'glance serve --check' to check the configuration interactively")
			return result
		}
		cfg = loaded
	} else {
		result.warn("Configuration not found: %s, using defaults", c.configPath)
		result.suggest("Run 'glance init --config %s' to create a configuration file", c.configPath)
	}

	if vr := validateDatabasePath(cfg.Database.Path); !vr.Valid {
		result.fail("Database: %v", vr.Error)
	}
	if vr := validateStaticDir(cfg.Viewer.StaticDir); !vr.Valid {
		result.fail("Viewer static_dir: %v", vr.Error)
	}

	switch {
	case !cfg.Auth.Enabled:
		result.warn("Auth is disabled, anyone can upload and delete runs")
	case cfg.Auth.PasswordHash == "":
		// an empty jwt_secret is generated on startup
		result.warn("auth.password_hash not set, tokens can only be issued with 'glance token'")
	}
	return result
}

// PrintCheckResult prints errors, warnings and suggestions of result
func PrintCheckResult(result *CheckResult) {
	sections := []struct {
		title string
		mark  string
		color *color.Color
		lines []string
	}{
		{"[ERROR] Environment check failed", "✗", color.New(color.FgRed), result.Errors},
		{"[WARNING] Configuration warnings:", "⚠", color.New(color.FgYellow), result.Warnings},
		{"To fix these issues:", "→", color.New(color.FgCyan), result.Suggestions},
	}
	for _, s := range sections {
		if len(s.lines) == 0 {
			continue
		}
		fmt.Println()
		s.color.Println(s.title)
		for _, line := range s.lines {
			s.color.Printf("  %s %s\n", s.mark, line)
		}
	}
	fmt.Println()
}
