package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/export"
	"github.com/verustcode/glance/internal/web"
)

var exportCmd = &cobra.Command{
	Use:   "export <report> [run]",
	Short: "Export a run as markdown, json, html or pdf",
	Long: `Write one run to a file. The run defaults to the latest one.
PDF export needs Chrome or Chromium (set CHROME_PATH if it is not found).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("format", "f", consts.ExportFormatMarkdown, "output format")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: <report>-<run>.<ext>)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	runID := consts.LatestRun
	if len(args) == 2 {
		runID = args[1]
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

	renderer, err := web.New(&cfg.Viewer, cfg.Server.BasePath)
	if err != nil {
		return err
	}
	manager := export.NewDefaultManager(renderer, export.DefaultPDFOptions())
	exporter, err := manager.Get(strings.ToLower(format))
	if err != nil {
		return fmt.Errorf("%w (supported: %s)", err, strings.Join(manager.SupportedFormats(), ", "))
	}

	cat := catalog.New(s.Run(), catalog.OptionsFromConfig(&cfg.Viewer))
	doc, err := cat.Run(cmd.Context(), args[0], runID)
	if err != nil {
		return err
	}
	resources, err := export.LoadResources(cmd.Context(), s.Run(), doc)
	if err != nil {
		return err
	}

	if output == "" {
		output = export.Filename(doc, exporter.FileExtension())
	}
	run := &export.Run{Doc: doc, Resources: resources}
	if err := manager.ExportToFile(cmd.Context(), strings.ToLower(format), run, output); err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("✓ Exported %s/%s to %s (%s)\n", doc.ID, doc.RunID, output, exporter.Name())
	return nil
}
