package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/verustcode/glance/internal/catalog"
	"github.com/verustcode/glance/internal/report"
	"github.com/verustcode/glance/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list [report]",
	Short: "List stored reports, or the runs of one report",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusColors = map[report.Status]lipgloss.Color{
		report.StatusNeutral: lipgloss.Color("245"),
		report.StatusGood:    lipgloss.Color("2"),
		report.StatusWarning: lipgloss.Color("3"),
		report.StatusBad:     lipgloss.Color("1"),
	}
)

const timeLayout = "2006-01-02 15:04"

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeDB, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	cat := catalog.New(s.Run(), catalog.OptionsFromConfig(&cfg.Viewer))

	if len(args) == 1 {
		info, err := cat.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(runsTable(info))
		return nil
	}

	infos, err := cat.Index(cmd.Context())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No reports stored yet")
		return nil
	}
	fmt.Println(reportsTable(infos))

	if st, err := s.Stats(cmd.Context()); err == nil {
		fmt.Println(footerStyle.Render(statsLine(st)))
	}
	return nil
}

// statsLine summarizes the database totals below the report table
func statsLine(st store.Stats) string {
	return fmt.Sprintf("%d reports, %d runs, %d resources (%.1f MiB)",
		st.Reports, st.Runs, st.Resources, float64(st.ResourceBytes)/(1<<20))
}

// reportsTable renders one row per report with its latest run
func reportsTable(infos []*catalog.ReportInfo) string {
	statuses := make([]report.Status, 0, len(infos))
	t := newTable("REPORT", "GROUP", "TITLE", "LATEST", "TIME", "RUNS", "STATUS")
	for _, info := range infos {
		latest := info.LatestRun()
		statuses = append(statuses, latest.Status)
		t.Row(
			info.ID,
			info.Group,
			info.ShortTitle,
			latest.RunID,
			latest.Timestamp.Local().Format(timeLayout),
			strconv.Itoa(len(info.Runs)),
			latest.Status.String(),
		)
	}
	return t.StyleFunc(statusStyle(statuses, 6)).String()
}

// runsTable renders the runs of one report, newest first
func runsTable(info *catalog.ReportInfo) string {
	statuses := make([]report.Status, 0, len(info.Runs))
	t := newTable("RUN", "TITLE", "TIME", "BLOCKS", "STATUS")
	for _, run := range info.Runs {
		statuses = append(statuses, run.Status)
		t.Row(
			run.RunID,
			run.RunTitle,
			run.Timestamp.Local().Format(timeLayout),
			strconv.Itoa(run.BlockCount),
			run.Status.String(),
		)
	}
	return t.StyleFunc(statusStyle(statuses, 4)).String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...)
}

// statusStyle colors the status column of every row
func statusStyle(statuses []report.Status, statusCol int) table.StyleFunc {
	return func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == statusCol && row >= 0 && row < len(statuses) {
			return cellStyle.Foreground(statusColors[statuses[row]])
		}
		return cellStyle
	}
}
