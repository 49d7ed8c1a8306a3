package check

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Summary(t *testing.T) {
	r := NewReport()
	r.AddFileResult(FileCheckResult{Path: "config/glance.yaml", Exists: true})
	r.AddFileResult(FileCheckResult{Path: "data/glance.db", Exists: false})
	r.AddFileResult(FileCheckResult{Path: "new.yaml", Exists: true, Created: true})
	r.AddValidationResult(ValidationResult{Path: "config/glance.yaml", Valid: true})
	r.AddValidationResult(ValidationResult{Path: "bad.yaml", Error: errors.New("bad")})
	r.AddValidationResult(ValidationResult{Path: "chrome"})

	s := r.Summary()
	assert.Equal(t, Summary{Created: 1, Missing: 1, Failed: 1, Warnings: 1}, s)
	assert.Equal(t, OutcomeFailed, s.Outcome())
	assert.Equal(t, "1 file(s) created, 1 file(s) missing, 1 failed, 1 warning(s)", s.String())
}

func TestSummary_Outcome(t *testing.T) {
	assert.Equal(t, OutcomePassed, Summary{}.Outcome())
	assert.Equal(t, OutcomePassed, Summary{Created: 2}.Outcome())
	assert.Equal(t, OutcomeWarnings, Summary{Missing: 1}.Outcome())
	assert.Equal(t, OutcomeWarnings, Summary{Warnings: 1}.Outcome())
	assert.Equal(t, OutcomeFailed, Summary{Failed: 1, Warnings: 3}.Outcome())
	assert.Equal(t, "all checks passed", Summary{}.String())
}

func TestReport_Rows(t *testing.T) {
	r := NewReport()
	r.AddFileResult(FileCheckResult{Path: "a.yaml", Exists: true, Description: "config"})
	r.AddFileResult(FileCheckResult{Path: "b.yaml", Error: errors.New("permission denied")})
	r.AddValidationResult(ValidationResult{Path: "auth", Valid: true, Detail: "enabled", Warnings: []string{"no password"}})
	r.AddValidationResult(ValidationResult{Path: "chrome", Warnings: []string{"not found"}})

	rows := r.Rows()
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"a.yaml", "ok", "config"}, rows[0])
	assert.Equal(t, []string{"b.yaml", "failed", "permission denied"}, rows[1])
	assert.Equal(t, []string{"auth", "warning", "enabled; no password"}, rows[2])
	assert.Equal(t, []string{"chrome", "warning", "not found"}, rows[3])
}

func TestReport_TableAndPrint(t *testing.T) {
	r := NewReport()
	r.AddFileResult(FileCheckResult{Path: "config/glance.yaml", Exists: true})
	r.AddValidationResult(ValidationResult{Path: "database", Valid: true, Detail: "writable"})

	out := r.Table()
	assert.Contains(t, out, "CHECK")
	assert.Contains(t, out, "config/glance.yaml")
	assert.Contains(t, out, "writable")

	r.Print()
	NewReport().Print()
}
