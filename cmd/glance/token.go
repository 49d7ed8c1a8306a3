package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verustcode/glance/internal/auth"
	"github.com/verustcode/glance/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an upload token, or set the upload password",
	Long: `Sign a JWT for the upload API with the secret from the config file.
CI jobs pass it as "Authorization: Bearer <token>" when posting runs.

With --set-password the upload password is asked for and its bcrypt hash
is written to auth.password_hash instead.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default: auth.expiry_hours)")
	tokenCmd.Flags().String("user", "", "token subject (default: auth.username)")
	tokenCmd.Flags().Bool("set-password", false, "set the upload password")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Auth.Enabled {
		return fmt.Errorf("auth is disabled, enable auth.enabled in the config file first")
	}

	if setPassword, _ := cmd.Flags().GetBool("set-password"); setPassword {
		return setUploadPassword(path)
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = cfg.Auth.TokenExpiry()
	}
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = cfg.Auth.Username
	}

	token, err := auth.New(&cfg.Auth).Issue(user, ttl)
	if err != nil {
		return err
	}

	fmt.Println(token.Token)
	color.New(color.FgHiBlack).Fprintf(cmd.ErrOrStderr(), "expires %s\n", token.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

// setUploadPassword asks for a new password and stores its hash
func setUploadPassword(path string) error {
	if path == "" {
		return fmt.Errorf("no config file found, run 'glance init' first")
	}

	var password, confirm string
	requirements := config.DefaultPasswordRequirements()
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("New upload password").
			Description(config.FormatPasswordRequirements()).
			EchoMode(huh.EchoModePassword).
			Value(&password).
			Validate(func(s string) error { return config.ValidatePassword(s, requirements) }),
		huh.NewInput().
			Title("Repeat password").
			EchoMode(huh.EchoModePassword).
			Value(&confirm),
	))
	if err := form.Run(); err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := config.UpdateAuthSecrets(path, "", hash); err != nil {
		return err
	}
	color.New(color.FgGreen).Printf("✓ Password saved to %s\n", path)
	return nil
}
