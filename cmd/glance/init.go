package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verustcode/glance/internal/check"
	"github.com/verustcode/glance/internal/config"
	"github.com/verustcode/glance/internal/configfiles"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	Long: `Ask for the main settings and write a configuration file to --config,
config/glance.yaml, or with --user to $XDG_CONFIG_HOME/glance/config.yaml.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("user", false, "write the per-user config file")
	initCmd.Flags().Bool("force", false, "overwrite an existing file without asking")
	initCmd.Flags().Bool("example", false, "write the annotated example config instead of asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configFlag
	if user, _ := cmd.Flags().GetBool("user"); user && path == "" {
		p, err := config.UserConfigPath()
		if err != nil {
			return fmt.Errorf("failed to resolve user config path: %w", err)
		}
		path = p
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1)
	fmt.Println(title.Render("Glance Setup"))

	checker := check.NewChecker(path)
	force, _ := cmd.Flags().GetBool("force")
	if config.Exists(checker.ConfigPath()) && !force {
		var overwrite bool
		err := huh.NewConfirm().
			Title(fmt.Sprintf("%s exists. Overwrite it?", checker.ConfigPath())).
			Affirmative("Yes").
			Negative("No").
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			return nil
		}
	}

	if example, _ := cmd.Flags().GetBool("example"); example {
		return writeConfigExample(checker.ConfigPath())
	}
	return checker.Init()
}

// writeConfigExample writes the embedded example configuration to path
func writeConfigExample(path string) error {
	content, err := configfiles.GetConfigExample()
	if err != nil {
		return fmt.Errorf("failed to read example config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	color.New(color.FgGreen).Printf("✓ Example config written to %s\n", path)
	return nil
}
