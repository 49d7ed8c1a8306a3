package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verustcode/glance/internal/configfiles"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import [file]...",
	Short: "Store report files as runs",
	Long: `Read report files (JSON or YAML) and store each one as a run.

Image results reference their data by filename. The files are read from
--resources, or from the directory of the report file when not set.
A run with the same report and run id is replaced.

With --demo the embedded demo reports are imported instead.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("resources", "", "directory holding image files")
	importCmd.Flags().String("run-id", "", "run id (overrides the file, single file only)")
	importCmd.Flags().Bool("demo", false, "import the embedded demo reports")
}

func runImport(cmd *cobra.Command, args []string) error {
	resDir, _ := cmd.Flags().GetString("resources")
	runID, _ := cmd.Flags().GetString("run-id")
	demo, _ := cmd.Flags().GetBool("demo")
	if !demo && len(args) == 0 {
		return fmt.Errorf("no report files given")
	}
	if runID != "" && len(args) > 1 {
		return fmt.Errorf("--run-id can only be used with a single file")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeDB, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	if demo {
		return importDemoReports(cmd.Context(), s)
	}

	for _, path := range args {
		doc, err := report.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if runID != "" {
			doc.RunID = runID
		}
		doc.Normalize(time.Now())

		dir := resDir
		if dir == "" {
			dir = filepath.Dir(path)
		}
		resources, missing := readResources(doc, dir)
		for _, name := range missing {
			yellow.Printf("  ⚠ %s: image %s not found in %s\n", path, name, dir)
		}

		replaced, err := s.Run().Save(cmd.Context(), doc, resources)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		action := "stored"
		if replaced {
			action = "replaced"
		}
		green.Printf("  ✓ %s → %s/%s (%s, %d blocks)\n", path, doc.ID, doc.RunID, action, doc.BlockCount())
	}
	return nil
}

// importDemoReports stores the embedded demo reports, stamped with the current time
func importDemoReports(ctx context.Context, s store.Store) error {
	now := time.Now()
	for _, name := range configfiles.ListDemoReports() {
		data, err := configfiles.GetDemoReport(name)
		if err != nil {
			return err
		}
		doc, _, err := report.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		doc.Timestamp = report.Timestamp{Time: now}
		doc.RunID = ""
		doc.RunTitle = ""
		doc.Normalize(now)

		if _, err := s.Run().Save(ctx, doc, nil); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		color.New(color.FgGreen).Printf("  ✓ demo %s → %s/%s\n", name, doc.ID, doc.RunID)
	}
	return nil
}

// readResources loads the image files referenced by doc from dir
func readResources(doc *report.Document, dir string) ([]store.ResourceData, []string) {
	var resources []store.ResourceData
	var missing []string
	seen := make(map[string]bool)
	for _, img := range doc.Images() {
		if seen[img.Key] {
			continue
		}
		seen[img.Key] = true

		name := img.Filename
		if name == "" {
			name = img.Key
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.Base(name)))
		if err != nil {
			missing = append(missing, name)
			continue
		}
		resources = append(resources, store.ResourceData{Key: img.Key, Filename: filepath.Base(name), Data: data})
	}
	return resources, missing
}
