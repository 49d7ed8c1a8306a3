package config

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/robfig/cron/v3"

	"github.com/verustcode/glance/pkg/errors"
)

// MinJWTSecretLength is the shortest accepted JWT secret: HS256 needs 256 bits
const MinJWTSecretLength = 32

// PasswordRequirements defines the password complexity requirements
type PasswordRequirements struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSpecial   bool
	SpecialChars     string
}

// DefaultPasswordRequirements returns the default password complexity requirements
func DefaultPasswordRequirements() PasswordRequirements {
	return PasswordRequirements{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigit:     true,
		RequireSpecial:   true,
		SpecialChars:     "!@#$%^&*()_+-=[]{}|;:,.<>?",
	}
}

type passwordCheck struct {
	desc string
	ok   func(password string) bool
}

// checks lists the enabled requirements in display order
func (r PasswordRequirements) checks() []passwordCheck {
	checks := []passwordCheck{{
		desc: fmt.Sprintf("at least %d characters", r.MinLength),
		ok:   func(p string) bool { return utf8.RuneCountInString(p) >= r.MinLength },
	}}
	add := func(on bool, desc string, ok func(string) bool) {
		if on {
			checks = append(checks, passwordCheck{desc, ok})
		}
	}
	add(r.RequireUppercase, "an uppercase letter (A-Z)", func(p string) bool { return strings.ContainsFunc(p, unicode.IsUpper) })
	add(r.RequireLowercase, "a lowercase letter (a-z)", func(p string) bool { return strings.ContainsFunc(p, unicode.IsLower) })
	add(r.RequireDigit, "a digit (0-9)", func(p string) bool { return strings.ContainsFunc(p, unicode.IsDigit) })
	add(r.RequireSpecial, fmt.Sprintf("a special character (%s)", r.SpecialChars),
		func(p string) bool { return strings.ContainsAny(p, r.SpecialChars) })
	return checks
}

// ValidatePassword reports every requirement password misses
func ValidatePassword(password string, req PasswordRequirements) error {
	var missing []string
	for _, c := range req.checks() {
		if !c.ok(password) {
			missing = append(missing, c.desc)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("password needs %s", strings.Join(missing, ", "))
	}
	return nil
}

// FormatPasswordRequirements lists the default requirements, one per line
func FormatPasswordRequirements() string {
	var lines []string
	for _, c := range DefaultPasswordRequirements().checks() {
		lines = append(lines, "- "+c.desc)
	}
	return strings.Join(lines, "\n")
}

// Validate checks the whole configuration and returns the first problem found
func (c *Config) Validate() *errors.AppError {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if bp := c.Server.BasePath; bp != "" && (!strings.HasPrefix(bp, "/") || strings.HasSuffix(bp, "/")) {
		return errors.New(errors.ErrCodeConfigInvalid,
			"server.base_path must start with '/' and must not end with '/'")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "database.path cannot be empty")
	}
	if err := ValidateRetention(&c.Retention); err != nil {
		return err
	}
	if err := ValidateAuth(&c.Auth); err != nil {
		return err
	}
	return nil
}

// ValidateRetention checks the cron schedule and the pruning rules
func ValidateRetention(cfg *RetentionConfig) *errors.AppError {
	if !cfg.Enabled {
		return nil
	}
	if cfg.MaxAgeDays < 0 || cfg.KeepRuns < 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"retention.max_age_days and retention.keep_runs cannot be negative")
	}
	if cfg.MaxAgeDays == 0 && cfg.KeepRuns == 0 {
		return errors.New(errors.ErrCodeConfigInvalid,
			"retention is enabled but neither max_age_days nor keep_runs is set")
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("retention.schedule %q is not a valid cron expression", cfg.Schedule), err)
	}
	return nil
}

// ValidateAuth validates the auth configuration.
// An empty password_hash is allowed; `glance token` then refuses to issue tokens.
func ValidateAuth(cfg *AuthConfig) *errors.AppError {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if strings.TrimSpace(cfg.Username) == "" {
		return errors.New(errors.ErrCodeAuthCredentialsEmpty,
			"auth.username cannot be empty when auth is enabled")
	}
	if cfg.PasswordHash != "" && !IsValidBcryptHash(cfg.PasswordHash) {
		return errors.New(errors.ErrCodeConfigInvalid,
			"auth.password_hash is not a bcrypt hash")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New(errors.ErrCodeJWTSecretInvalid,
			"auth.jwt_secret cannot be empty when auth is enabled")
	}
	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return errors.New(errors.ErrCodeJWTSecretInvalid,
			fmt.Sprintf("auth.jwt_secret must be at least %d characters long (HS256 requires 256 bits)", MinJWTSecretLength))
	}
	return nil
}

// IsValidBcryptHash reports whether hash has the shape of a bcrypt hash
func IsValidBcryptHash(hash string) bool {
	if len(hash) < 60 || !strings.HasPrefix(hash, "$2") {
		return false
	}
	switch hash[2] {
	case 'a', 'b', 'y':
		return hash[3] == '$'
	}
	return false
}
