package export

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/verustcode/glance/internal/report"
)

// MarkdownExporter exports runs to GitHub flavored Markdown
type MarkdownExporter struct{}

// NewMarkdownExporter creates a new Markdown exporter
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Name returns the human-readable name of this exporter
func (e *MarkdownExporter) Name() string { return "Markdown" }

// FileExtension returns the file extension for Markdown files
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// ContentType returns the MIME type of Markdown
func (e *MarkdownExporter) ContentType() string { return "text/markdown; charset=utf-8" }

// Export renders the run as Markdown
func (e *MarkdownExporter) Export(_ context.Context, run *Run) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)
	doc := run.Doc

	md.H1(doc.Title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", doc.RunTitle},
			{"Run ID", "`" + doc.RunID + "`"},
			{"Timestamp", doc.Timestamp.Format(report.TimestampLayoutShort)},
			{"Status", statusLabel(doc.WorstStatus())},
			{"Blocks", strconv.Itoa(doc.BlockCount())},
		},
	})
	md.PlainText("")

	writeSummary(md, doc)

	for _, sec := range doc.Sections {
		md.H2(sec.Title)
		md.PlainText("")
		if sec.Description != "" {
			md.PlainText(sec.Description)
			md.PlainText("")
		}
		for _, blk := range sec.Blocks {
			writeBlock(md, blk, run.Resources)
		}
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Exported from %s*", doc.ID+"/"+doc.RunID)

	if err := md.Build(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummary(md *markdown.Markdown, doc *report.Document) {
	stats := doc.StatusStats()

	md.H2("Summary")
	md.PlainText("")
	rows := make([][]string, 0, len(stats))
	chart := piechart.NewPieChart(io.Discard,
		piechart.WithTitle("Blocks by status"),
		piechart.WithShowData(true),
	)
	for _, s := range report.AllStatuses() {
		rows = append(rows, []string{statusLabel(s), strconv.Itoa(stats[s])})
		if stats[s] > 0 {
			chart.LabelAndIntValue(s.String(), uint64(stats[s]))
		}
	}
	md.Table(markdown.TableSet{Header: []string{"Status", "Blocks"}, Rows: rows})
	md.PlainText("")

	if doc.BlockCount() > 0 {
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch doc.WorstStatus() {
	case report.StatusBad:
		md.Cautionf("%d block(s) report a bad status.", stats[report.StatusBad])
	case report.StatusWarning:
		md.Warningf("%d block(s) report warnings.", stats[report.StatusWarning])
	case report.StatusGood:
		md.Tip("All checks passed.")
	default:
		md.Note("No block reports a status.")
	}
	md.PlainText("")
}

func writeBlock(md *markdown.Markdown, blk *report.Block, resources map[string]Resource) {
	md.H3(statusIcon(blk.BlockStatus()) + " " + blk.Title)
	md.PlainText("")
	if len(blk.Tags) > 0 {
		tags := make([]string, len(blk.Tags))
		for i, t := range blk.Tags {
			tags[i] = "`" + t + "`"
		}
		md.PlainText("Tags: " + strings.Join(tags, " "))
		md.PlainText("")
	}
	if blk.Description != "" {
		md.PlainText(blk.Description)
		md.PlainText("")
	}

	for _, res := range blk.Results {
		if res.Title != "" {
			md.PlainText("**" + res.Title + "** " + statusIcon(res.Status))
			md.PlainText("")
		}
		switch res.Kind {
		case report.KindText:
			md.PlainText(res.Message)
		case report.KindStatic:
			// markdown renderers pass inline HTML through
			md.PlainText(res.Content)
		case report.KindTable:
			md.Table(tableSet(res))
		case report.KindImage:
			filename := res.Filename
			if r, ok := resources[res.Key]; ok && r.Filename != "" {
				filename = r.Filename
			}
			md.PlainTextf("![%s](%s)", res.Title, filename)
		}
		md.PlainText("")
	}
}

func tableSet(res *report.Result) markdown.TableSet {
	rows := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		cells := make([]string, len(res.Columns))
		for j := range cells {
			if j < len(row) {
				cells[j] = escapeCell(res.FormatCell(row[j]))
			}
		}
		rows = append(rows, cells)
	}
	return markdown.TableSet{Header: res.Columns, Rows: rows}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func statusIcon(s report.Status) string {
	switch s {
	case report.StatusGood:
		return "✅"
	case report.StatusWarning:
		return "⚠️"
	case report.StatusBad:
		return "❌"
	}
	return "⚪"
}

func statusLabel(s report.Status) string {
	return statusIcon(s) + " " + s.String()
}
