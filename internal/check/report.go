package check

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
)

// Report collects the outcome of every check step
type Report struct {
	FileResults       []FileCheckResult
	ValidationResults []ValidationResult
}

// NewReport creates an empty report
func NewReport() *Report {
	return &Report{}
}

// AddFileResult records a file check
func (r *Report) AddFileResult(result FileCheckResult) {
	r.FileResults = append(r.FileResults, result)
}

// AddValidationResult records a validation
func (r *Report) AddValidationResult(result ValidationResult) {
	r.ValidationResults = append(r.ValidationResults, result)
}

// Outcome is the overall state of a check run
type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeWarnings
	OutcomeFailed
)

// Summary counts the recorded results
type Summary struct {
	Created  int
	Missing  int
	Failed   int
	Warnings int
}

// Outcome reports the worst state found
func (s Summary) Outcome() Outcome {
	switch {
	case s.Failed > 0:
		return OutcomeFailed
	case s.Warnings > 0 || s.Missing > 0:
		return OutcomeWarnings
	default:
		return OutcomePassed
	}
}

// String describes the counts, or "all checks passed"
func (s Summary) String() string {
	var parts []string
	if s.Created > 0 {
		parts = append(parts, fmt.Sprintf("%d file(s) created", s.Created))
	}
	if s.Missing > 0 {
		parts = append(parts, fmt.Sprintf("%d file(s) missing", s.Missing))
	}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", s.Warnings))
	}
	if len(parts) == 0 {
		return "all checks passed"
	}
	return strings.Join(parts, ", ")
}

// Summary tallies the recorded results.
// An invalid result without an error is an optional tool that is missing.
func (r *Report) Summary() Summary {
	var s Summary
	for _, f := range r.FileResults {
		switch {
		case f.Error != nil:
			s.Failed++
		case f.Created:
			s.Created++
		case !f.Exists:
			s.Missing++
		}
	}
	for _, v := range r.ValidationResults {
		switch {
		case v.Error != nil:
			s.Failed++
		case !v.Valid:
			s.Warnings++
		}
		s.Warnings += len(v.Warnings)
	}
	return s
}

// Rows returns one table row per result: item, state and detail
func (r *Report) Rows() [][]string {
	rows := make([][]string, 0, len(r.FileResults)+len(r.ValidationResults))
	for _, f := range r.FileResults {
		state, detail := "ok", f.Description
		switch {
		case f.Error != nil:
			state, detail = "failed", f.Error.Error()
		case f.Created:
			state = "created"
		case !f.Exists:
			state = "missing"
		}
		rows = append(rows, []string{f.Path, state, detail})
	}
	for _, v := range r.ValidationResults {
		state, detail := "ok", v.Detail
		switch {
		case v.Error != nil:
			state, detail = "failed", v.Error.Error()
		case !v.Valid:
			state = "warning"
		}
		if len(v.Warnings) > 0 {
			if state == "ok" {
				state = "warning"
			}
			detail = strings.TrimPrefix(detail+"; "+strings.Join(v.Warnings, "; "), "; ")
		}
		rows = append(rows, []string{v.Path, state, detail})
	}
	return rows
}

var stateColors = map[string]lipgloss.Color{
	"ok":      lipgloss.Color("10"),
	"created": lipgloss.Color("10"),
	"warning": lipgloss.Color("11"),
	"missing": lipgloss.Color("11"),
	"failed":  lipgloss.Color("9"),
}

// Table renders the results as a table
func (r *Report) Table() string {
	rows := r.Rows()
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("CHECK", "STATE", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col == 1 && row >= 0 && row < len(rows) {
				s = s.Foreground(stateColors[rows[row][1]])
			}
			return s
		})
	return t.String()
}

// Print writes the result table and a one-line summary
func (r *Report) Print() {
	if len(r.FileResults)+len(r.ValidationResults) > 0 {
		fmt.Println(r.Table())
	}

	s := r.Summary()
	switch s.Outcome() {
	case OutcomeFailed:
		color.New(color.FgRed, color.Bold).Print("✗ Check completed")
	case OutcomeWarnings:
		color.New(color.FgYellow, color.Bold).Print("⚠ Check completed")
	default:
		color.New(color.FgGreen, color.Bold).Print("✓ Check completed")
	}
	fmt.Printf(" (%s)\n", s)
}
