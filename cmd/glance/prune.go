package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verustcode/glance/internal/database"
	"github.com/verustcode/glance/internal/server"
	"github.com/verustcode/glance/internal/store"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs once",
	Long: `Apply the retention rules once. The rules come from the retention
section of the config file unless overridden by flags.`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().Int("max-age-days", -1, "delete runs older than this many days (0 disables)")
	pruneCmd.Flags().Int("keep-runs", -1, "keep only the newest runs per report (0 disables)")
	pruneCmd.Flags().Bool("vacuum", false, "reclaim database space afterwards")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	retention := cfg.Retention
	if days, _ := cmd.Flags().GetInt("max-age-days"); days >= 0 {
		retention.MaxAgeDays = days
	}
	if keep, _ := cmd.Flags().GetInt("keep-runs"); keep >= 0 {
		retention.KeepRuns = keep
	}
	if retention.MaxAgeDays == 0 && retention.KeepRuns == 0 {
		return fmt.Errorf("no retention rule set, use --max-age-days or --keep-runs")
	}

	s, closeDB, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	svc := store.NewRetentionService(s.Run(), server.RetentionPolicy(&retention), nil)
	result, err := svc.Prune(cmd.Context())
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("✓ Deleted %d run(s): %d by age, %d by count\n", result.Total(), result.ByAge, result.ByCount)

	if vacuum, _ := cmd.Flags().GetBool("vacuum"); vacuum && result.Total() > 0 {
		if err := database.Vacuum(); err != nil {
			return fmt.Errorf("failed to vacuum database: %w", err)
		}
		green.Println("✓ Database vacuumed")
	}
	return nil
}
