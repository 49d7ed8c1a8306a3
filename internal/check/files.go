package check

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"

	"github.com/verustcode/glance/internal/auth"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/pkg/idgen"
)

// FileCheckResult represents the result of a file check
type FileCheckResult struct {
	Path        string
	Exists      bool
	Created     bool
	Description string
	Error       error
}

// InitOptions are the answers collected by the init form
type InitOptions struct {
	Title        string
	Host         string
	Port         int
	DatabasePath string
	AuthEnabled  bool
	Username     string
	Password     string
	KeepRuns     int
}

// DefaultInitOptions returns the form defaults taken from config.Default
func DefaultInitOptions() InitOptions {
	cfg := config.Default()
	return InitOptions{
		Title:        cfg.Viewer.Title,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		DatabasePath: cfg.Database.Path,
		Username:     cfg.Auth.Username,
	}
}

// BuildConfig turns init answers into a configuration. The password is
// stored as a bcrypt hash and a JWT secret is generated when auth is on.
func BuildConfig(opts InitOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.Title != "" {
		cfg.Viewer.Title = opts.Title
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	if opts.DatabasePath != "" {
		cfg.Database.Path = opts.DatabasePath
	}
	if opts.KeepRuns > 0 {
		cfg.Retention.Enabled = true
		cfg.Retention.KeepRuns = opts.KeepRuns
	}

	if opts.AuthEnabled {
		if err := config.ValidatePassword(opts.Password, config.DefaultPasswordRequirements()); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(opts.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		cfg.Auth.Enabled = true
		cfg.Auth.Username = opts.Username
		cfg.Auth.PasswordHash = hash
		cfg.Auth.JWTSecret = idgen.NewSecureSecret(config.MinJWTSecretLength)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init asks for the main settings and writes a new config file
func (c *Checker) Init() error {
	opts := DefaultInitOptions()
	port := strconv.Itoa(opts.Port)
	keep := "0"

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Site title").Value(&opts.Title),
			huh.NewInput().Title("Listen host").Value(&opts.Host),
			huh.NewInput().Title("Listen port").Value(&port).Validate(validatePort),
			huh.NewInput().Title("Database path").Value(&opts.DatabasePath),
			huh.NewInput().
				Title("Runs kept per report").
				Description("0 keeps every run").
				Value(&keep).
				Validate(validateCount),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Protect uploads with a password?").
				Affirmative("Yes").
				Negative("No").
				Value(&opts.AuthEnabled),
		),
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&opts.Username),
			huh.NewInput().
				Title("Password").
				Description(config.FormatPasswordRequirements()).
				EchoMode(huh.EchoModePassword).
				Value(&opts.Password).
				Validate(func(s string) error {
					return config.ValidatePassword(s, config.DefaultPasswordRequirements())
				}),
		).WithHideFunc(func() bool { return !opts.AuthEnabled }),
	).WithTheme(c.theme)

	if err := form.Run(); err != nil {
		return fmt.Errorf("failed to read answers: %w", err)
	}
	opts.Port, _ = strconv.Atoi(port)
	opts.KeepRuns, _ = strconv.Atoi(keep)

	cfg, err := BuildConfig(opts)
	if err != nil {
		return err
	}
	if err := config.Write(c.configPath, cfg); err != nil {
		return err
	}
	printFileCreated(c.configPath)
	return nil
}

func validatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func validateCount(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative number")
	}
	return nil
}

// checkConfigFile checks the config file and offers to create it when missing
func (c *Checker) checkConfigFile() error {
	result := FileCheckResult{
		Path:        c.configPath,
		Description: "Glance configuration (server, viewer, auth, logging)",
	}
	defer func() { c.report.AddFileResult(result) }()

	if fileExists(c.configPath) {
		result.Exists = true
		printFileStatus(c.configPath, true, false)
		return nil
	}

	printFileStatus(c.configPath, false, false)

	confirm, err := confirmCreate(c.configPath)
	if err != nil {
		result.Error = fmt.Errorf("failed to get user confirmation: %w", err)
		return result.Error
	}
	if !confirm {
		return nil
	}

	if err := ensureDir(c.configPath); err != nil {
		result.Error = err
		return err
	}
	if err := c.Init(); err != nil {
		result.Error = err
		return err
	}

	result.Exists = true
	result.Created = true
	return nil
}

// printFileStatus prints the status of a file check
func printFileStatus(path string, exists bool, created bool) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	if exists {
		green.Printf("  ✓ %s\n", path)
	} else if created {
		green.Printf("  ✓ %s (created)\n", path)
	} else {
		yellow.Printf("  ⚠ %s does not exist\n", path)
	}
}

// printFileCreated prints a message when a file is created
func printFileCreated(path string) {
	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created %s\n", path)
}
