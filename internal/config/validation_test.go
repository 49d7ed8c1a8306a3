package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/glance/pkg/errors"
)

func TestValidatePassword(t *testing.T) {
	req := DefaultPasswordRequirements()

	for _, ok := range []string{"MyP@ssw0rd!", "Ab1!abcd", "Ünïcødé1!"} {
		assert.NoError(t, ValidatePassword(ok, req), ok)
	}

	tests := map[string]string{
		"Ab1!abc":     "at least 8 characters",
		"myp@ssw0rd!": "uppercase",
		"MYP@SSW0RD!": "lowercase",
		"MyP@ssword!": "digit",
		"MyPassw0rd1": "special character",
	}
	for password, missing := range tests {
		err := ValidatePassword(password, req)
		if assert.Error(t, err, password) {
			assert.Contains(t, err.Error(), missing, password)
		}
	}

	// every missing requirement is reported at once
	err := ValidatePassword("", req)
	require.Error(t, err)
	for _, part := range []string{"characters", "uppercase", "lowercase", "digit", "special"} {
		assert.Contains(t, err.Error(), part)
	}

	// disabled requirements are not checked
	assert.NoError(t, ValidatePassword("abc", PasswordRequirements{MinLength: 3}))
}

func TestFormatPasswordRequirements(t *testing.T) {
	lines := FormatPasswordRequirements()
	assert.Equal(t, "- at least 8 characters\n"+
		"- an uppercase letter (A-Z)\n"+
		"- a lowercase letter (a-z)\n"+
		"- a digit (0-9)\n"+
		"- a special character (!@#$%^&*()_+-=[]{}|;:,.<>?)", lines)
}

const (
	testHash   = "$2a$10$YtJ6lCmNwS7g9IpuaR7nPOE/M/3.G6VdMBm7eJdLpSfnLdG/CvxMq"
	testSecret = "12345678901234567890123456789012"
)

func TestValidateAuth(t *testing.T) {
	assert.Nil(t, ValidateAuth(nil))
	assert.Nil(t, ValidateAuth(&AuthConfig{Enabled: false, Username: ""}))
	assert.Nil(t, ValidateAuth(&AuthConfig{Enabled: true, Username: "ci", PasswordHash: testHash, JWTSecret: testSecret}))
	// tokens can still be issued with the CLI
	assert.Nil(t, ValidateAuth(&AuthConfig{Enabled: true, Username: "ci", JWTSecret: testSecret}))

	tests := []struct {
		name string
		cfg  AuthConfig
		want errors.ErrorCode
	}{
		{"no username", AuthConfig{PasswordHash: testHash, JWTSecret: testSecret}, errors.ErrCodeAuthCredentialsEmpty},
		{"blank username", AuthConfig{Username: "   ", JWTSecret: testSecret}, errors.ErrCodeAuthCredentialsEmpty},
		{"plain password", AuthConfig{Username: "ci", PasswordHash: "hunter2", JWTSecret: testSecret}, errors.ErrCodeConfigInvalid},
		{"no secret", AuthConfig{Username: "ci", PasswordHash: testHash}, errors.ErrCodeJWTSecretInvalid},
		{"short secret", AuthConfig{Username: "ci", JWTSecret: "short-secret"}, errors.ErrCodeJWTSecretInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Enabled = true
			err := ValidateAuth(&tt.cfg)
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Code)
		})
	}
}

func TestValidateRetention(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RetentionConfig
		wantErr bool
	}{
		{"disabled", RetentionConfig{Enabled: false, Schedule: "bogus"}, false},
		{"max age", RetentionConfig{Enabled: true, Schedule: "0 3 * * *", MaxAgeDays: 30}, false},
		{"keep runs", RetentionConfig{Enabled: true, Schedule: "@daily", KeepRuns: 10}, false},
		{"no rule", RetentionConfig{Enabled: true, Schedule: "0 3 * * *"}, true},
		{"negative", RetentionConfig{Enabled: true, Schedule: "0 3 * * *", KeepRuns: -1}, true},
		{"bad schedule", RetentionConfig{Enabled: true, Schedule: "every day", MaxAgeDays: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRetention(&tt.cfg)
			assert.Equal(t, tt.wantErr, err != nil, "ValidateRetention() = %v", err)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	require.Nil(t, Default().Validate())

	broken := map[string]func(*Config){
		"port zero":                func(c *Config) { c.Server.Port = 0 },
		"port too large":           func(c *Config) { c.Server.Port = 70000 },
		"base path without slash":  func(c *Config) { c.Server.BasePath = "glance" },
		"base path trailing slash": func(c *Config) { c.Server.BasePath = "/glance/" },
		"empty database path":      func(c *Config) { c.Database.Path = " " },
		"auth without secret":      func(c *Config) { c.Auth.Enabled = true },
	}
	for name, modify := range broken {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			modify(cfg)
			assert.NotNil(t, cfg.Validate())
		})
	}
}

func TestIsValidBcryptHash(t *testing.T) {
	assert.True(t, IsValidBcryptHash(testHash))
	assert.True(t, IsValidBcryptHash("$2y$"+testHash[4:]))
	assert.False(t, IsValidBcryptHash("$2a$10$short"))
	assert.False(t, IsValidBcryptHash("$1$"+testHash[3:]))
	assert.False(t, IsValidBcryptHash("$2x$"+testHash[4:]))
}
