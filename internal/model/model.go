// Package model defines the GORM models of the run store.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringArray is a list of strings stored as a JSON array
type StringArray []string

// Value implements driver.Valuer
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return jsonValue(s)
}

// Scan implements sql.Scanner
func (s *StringArray) Scan(value any) error {
	*s = StringArray{}
	return scanJSON(value, s)
}

// StatusCounts maps a numeric block status to the number of blocks with it.
// It is stored as a JSON object.
type StatusCounts map[int]int

// Value implements driver.Valuer
func (c StatusCounts) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	return jsonValue(c)
}

// Scan implements sql.Scanner
func (c *StatusCounts) Scan(value any) error {
	*c = StatusCounts{}
	return scanJSON(value, c)
}

func jsonValue(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// scanJSON decodes a TEXT or BLOB column into dst; NULL leaves dst as is
func scanJSON(value any, dst any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dst)
	}
}

// Run is one stored run of a report. The serialized document is kept as is,
// the remaining columns form the per-report index.
type Run struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Identity: (ReportID, RunID) is unique
	ReportID string `gorm:"size:255;not null;uniqueIndex:idx_report_run,priority:1" json:"report_id"`
	RunID    string `gorm:"size:255;not null;uniqueIndex:idx_report_run,priority:2" json:"run_id"`

	// Index data
	Title       string       `gorm:"size:512" json:"title"`
	RunTitle    string       `gorm:"size:512" json:"run_title"`
	Timestamp   time.Time    `gorm:"not null;index" json:"timestamp"`
	Status      int          `gorm:"default:0" json:"status"` // worst block status
	StatusStats StatusCounts `gorm:"type:json" json:"status_stats"`
	Tags        StringArray  `gorm:"type:json" json:"tags"`
	BlockCount  int          `gorm:"default:0" json:"block_count"`

	// Serialized document (file format with header)
	FormatVersion int    `gorm:"default:0" json:"format_version"`
	Document      []byte `gorm:"type:blob" json:"-"`

	Resources []Resource `gorm:"foreignKey:RunRowID;constraint:OnDelete:CASCADE" json:"resources,omitempty"`
}

// Resource is a binary attachment of a run (image result data and the like)
type Resource struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	RunRowID uint   `gorm:"not null;uniqueIndex:idx_run_resource,priority:1" json:"-"`
	Key      string `gorm:"size:255;not null;uniqueIndex:idx_run_resource,priority:2" json:"key"`
	Filename string `gorm:"size:512" json:"filename"`
	MimeType string `gorm:"size:255" json:"mime_type"`
	Size     int64  `json:"size"`
	Data     []byte `gorm:"type:blob" json:"-"`
}

// AllModels returns the models migrated on startup
func AllModels() []any {
	return []any{
		&Run{},
		&Resource{},
	}
}
