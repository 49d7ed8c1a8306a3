package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/verustcode/glance/pkg/logger"
)

// ResultKind is the serialization tag of a result
type ResultKind string

const (
	KindText   ResultKind = "TextResult"
	KindTable  ResultKind = "TableResult"
	KindImage  ResultKind = "ImageResult"
	KindStatic ResultKind = "StaticResult"
)

// Table feature sets
const (
	FeaturesAll  = "all"
	FeaturesNone = "none"
)

// ParseKind accepts the tag ("TableResult") or the short name ("table")
func ParseKind(v string) (ResultKind, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "textresult", "text":
		return KindText, true
	case "tableresult", "table":
		return KindTable, true
	case "imageresult", "image":
		return KindImage, true
	case "staticresult", "static":
		return KindStatic, true
	}
	return "", false
}

// Short returns the lowercase name used in templates and exports
func (k ResultKind) Short() string {
	return strings.ToLower(strings.TrimSuffix(string(k), "Result"))
}

// Result is one item displayed inside a block. Which fields are meaningful
// depends on Kind.
type Result struct {
	Kind ResultKind `json:"-" yaml:"-"`
	// ID is assigned by Document.AssignIDs ("s-b-r")
	ID string `json:"-" yaml:"-"`

	Title  string `json:"title" yaml:"title"`
	Status Status `json:"status" yaml:"status"`

	// text
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// static, trusted HTML
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	// table
	Columns         []string   `json:"columns,omitempty" yaml:"columns,omitempty"`
	Rows            [][]any    `json:"data,omitempty" yaml:"data,omitempty"`
	StatusTable     [][]Status `json:"statustable,omitempty" yaml:"statustable,omitempty"`
	Format          string     `json:"format,omitempty" yaml:"format,omitempty"`
	AllowDataExport bool       `json:"allow_data_export,omitempty" yaml:"allow_data_export,omitempty"`
	Features        string     `json:"features,omitempty" yaml:"features,omitempty"`

	// image, data lives in the run's resources under Key
	Key      string `json:"key,omitempty" yaml:"key,omitempty"`
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// resultFields has the fields of Result without its marshalling methods
type resultFields Result

// NewText creates a text result
func NewText(title, message string, status Status) *Result {
	return &Result{Kind: KindText, Title: title, Message: message, Status: status}
}

// NewStatic creates a result rendering trusted HTML as is
func NewStatic(title, content string, status Status) *Result {
	return &Result{Kind: KindStatic, Title: title, Content: content, Status: status}
}

// NewTable creates a table result. Its status is the worst cell status.
func NewTable(title string, columns []string, rows [][]any, statusTable [][]Status) *Result {
	r := &Result{
		Kind:        KindTable,
		Title:       title,
		Columns:     columns,
		Rows:        rows,
		StatusTable: statusTable,
		Features:    FeaturesAll,
	}
	r.normalize()
	return r
}

// NewImage creates an image result referencing a run resource
func NewImage(title, key, filename string) *Result {
	return &Result{Kind: KindImage, Title: title, Key: key, Filename: SlugFilename(filename)}
}

// errorResult replaces a result that could not be read
func errorResult(kind string, err error) *Result {
	logger.Warn("Failed to read result", zap.String("kind", kind), zap.Error(err))
	return NewText("Error reading "+kind, err.Error(), StatusBad)
}

func unknownResult(kind string) *Result {
	logger.Warn("Unknown result type", zap.String("kind", kind))
	return NewText("Unknown result type", fmt.Sprintf("Result type %q is not supported", kind), StatusNeutral)
}

// normalize derives the fields that follow from others
func (r *Result) normalize() {
	switch r.Kind {
	case KindTable:
		if r.Features == "" {
			r.Features = FeaturesAll
		}
		if len(r.StatusTable) > 0 {
			worst := StatusNeutral
			for _, row := range r.StatusTable {
				worst = MaxStatus(worst, MaxStatus(row...))
			}
			r.Status = worst
		}
	case KindImage:
		if r.Filename == "" {
			r.Filename = SlugFilename(r.Title)
		}
	}
}

// CellStatus returns the status of a table cell, neutral outside the status table
func (r *Result) CellStatus(row, col int) Status {
	if row < 0 || row >= len(r.StatusTable) || col < 0 || col >= len(r.StatusTable[row]) {
		return StatusNeutral
	}
	return r.StatusTable[row][col]
}

// FormatCell renders a table cell, applying Format to numbers
func (r *Result) FormatCell(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if r.Format != "" {
			return fmt.Sprintf(r.Format, n)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int, int64:
		if r.Format != "" {
			return fmt.Sprintf(r.Format, n)
		}
		return fmt.Sprint(n)
	case string:
		return n
	}
	return fmt.Sprint(v)
}

// Exportable reports whether the table data may be downloaded
func (r *Result) Exportable() bool {
	return r.Kind == KindTable && r.AllowDataExport
}

// CSV returns the table data as CSV with a header row and without index
func (r *Result) CSV() ([]byte, error) {
	if r.Kind != KindTable {
		return nil, fmt.Errorf("result %q is not a table", r.Title)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(r.Columns); err != nil {
		return nil, err
	}
	for _, row := range r.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = r.FormatCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Records returns the table rows as column name to value maps
func (r *Result) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = nil
			}
		}
		records = append(records, rec)
	}
	return records
}

// MarshalJSON writes the tagged form ["TableResult", {...}]
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Kind, resultFields(r)})
}

// UnmarshalJSON reads the tagged form or an object with a "type" key.
// Unreadable results become error text results instead of failing the document.
func (r *Result) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var kind string
	var body json.RawMessage

	if len(data) > 0 && data[0] == '[' {
		var tagged []json.RawMessage
		if err := json.Unmarshal(data, &tagged); err != nil || len(tagged) != 2 {
			*r = *errorResult("result", fmt.Errorf("expected [type, data] pair"))
			return nil
		}
		if err := json.Unmarshal(tagged[0], &kind); err != nil {
			*r = *errorResult("result", err)
			return nil
		}
		body = tagged[1]
	} else {
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			*r = *errorResult("result", err)
			return nil
		}
		kind, body = probe.Type, data
	}

	k, ok := ParseKind(kind)
	if !ok {
		*r = *unknownResult(kind)
		return nil
	}
	var f resultFields
	if err := json.Unmarshal(body, &f); err != nil {
		*r = *errorResult(string(k), err)
		return nil
	}
	*r = Result(f)
	r.Kind = k
	r.normalize()
	return nil
}

// MarshalYAML writes the tagged form
func (r Result) MarshalYAML() (any, error) {
	return []any{string(r.Kind), resultFields(r)}, nil
}

// UnmarshalYAML reads the tagged form or a mapping with a "type" key
func (r *Result) UnmarshalYAML(node *yaml.Node) error {
	var kind string
	body := node

	switch node.Kind {
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			*r = *errorResult("result", fmt.Errorf("line %d: expected [type, data] pair", node.Line))
			return nil
		}
		if err := node.Content[0].Decode(&kind); err != nil {
			*r = *errorResult("result", err)
			return nil
		}
		body = node.Content[1]
	case yaml.MappingNode:
		var probe struct {
			Type string `yaml:"type"`
		}
		if err := node.Decode(&probe); err != nil {
			*r = *errorResult("result", err)
			return nil
		}
		kind = probe.Type
	default:
		*r = *errorResult("result", fmt.Errorf("line %d: unexpected yaml node", node.Line))
		return nil
	}

	k, ok := ParseKind(kind)
	if !ok {
		*r = *unknownResult(kind)
		return nil
	}
	var f resultFields
	if err := body.Decode(&f); err != nil {
		*r = *errorResult(string(k), err)
		return nil
	}
	*r = Result(f)
	r.Kind = k
	r.normalize()
	return nil
}

// SlugFilename slugifies the name of a file but keeps its extension
func SlugFilename(name string) string {
	ext := strings.ToLower(path.Ext(name))
	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}
	if s := slug.Make(ext); s != "" {
		return base + "." + s
	}
	return base
}
