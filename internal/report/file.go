package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/verustcode/glance/consts"
	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
)

// Timestamp layouts of report files
const (
	TimestampLayout      = "2006-01-02 15:04:05.000000"
	TimestampLayoutShort = "2006-01-02 15:04:05"
	RunTitleLayout       = TimestampLayoutShort
)

const (
	minSupportedVersion = 3
	legacyFormatVersion = 0
	maxSupportedVersion = consts.FileFormatVersion
	yamlIndent          = 2
	jsonIndent          = "    "
)

// Format is the encoding of a report file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension, JSON by default
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Timestamp is a wall clock time serialized with microseconds
type Timestamp struct {
	time.Time
}

// ParseTimestamp accepts the file layouts and RFC 3339
func ParseTimestamp(v string) (Timestamp, error) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{TimestampLayout, TimestampLayoutShort, time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", v)
}

// String formats the timestamp in the file layout
func (t Timestamp) String() string {
	return t.Format(TimestampLayout)
}

// MarshalJSON writes the file layout
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads any accepted layout
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

// MarshalYAML writes the file layout
func (t Timestamp) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML reads any accepted layout
func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		return nil
	}
	ts, err := ParseTimestamp(node.Value)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}

type fileHeader struct {
	Version int `json:"version" yaml:"version"`
}

// Encode serializes a document as [header, document]
func Encode(d *Document, format Format) ([]byte, error) {
	header := fileHeader{Version: consts.FileFormatVersion}
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(yamlIndent)
		if err := enc.Encode([]any{header, d}); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		return json.MarshalIndent([]any{header, d}, "", jsonIndent)
	}
	return nil, fmt.Errorf("unsupported file format %q", format)
}

// Decode reads a report file in either format and returns the document with
// the file format version. Files without a header are version 0.
func Decode(data []byte) (*Document, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, 0, errors.ErrDocumentInvalid("report file is empty", nil)
	}

	var (
		doc     Document
		version int
		err     error
	)
	if trimmed[0] == '[' || trimmed[0] == '{' {
		version, err = decodeJSON(trimmed, &doc)
	} else {
		version, err = decodeYAML(trimmed, &doc)
	}
	if err != nil {
		return nil, 0, errors.ErrDocumentInvalid("failed to parse report file", err)
	}

	switch {
	case version > maxSupportedVersion:
		return nil, version, errors.ErrDocumentInvalid(
			fmt.Sprintf("file format version %d is newer than supported version %d", version, maxSupportedVersion), nil)
	case version == legacyFormatVersion:
		logger.Warn("Report file has no format header, reading as legacy format")
	case version < minSupportedVersion:
		logger.Warn("Report file format is deprecated", zap.Int("version", version))
	}
	return &doc, version, nil
}

func decodeJSON(data []byte, doc *Document) (int, error) {
	if data[0] == '{' {
		return legacyFormatVersion, json.Unmarshal(data, doc)
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return 0, err
	}
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected [header, report], got %d elements", len(parts))
	}
	var header fileHeader
	if err := json.Unmarshal(parts[0], &header); err != nil {
		return 0, fmt.Errorf("invalid header: %w", err)
	}
	return header.Version, json.Unmarshal(parts[1], doc)
}

func decodeYAML(data []byte, doc *Document) (int, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, err
	}
	if len(root.Content) == 0 {
		return 0, fmt.Errorf("empty yaml document")
	}
	node := root.Content[0]
	if node.Kind == yaml.MappingNode {
		return legacyFormatVersion, node.Decode(doc)
	}
	if node.Kind != yaml.SequenceNode || len(node.Content) != 2 {
		return 0, fmt.Errorf("line %d: expected [header, report]", node.Line)
	}
	var header fileHeader
	if err := node.Content[0].Decode(&header); err != nil {
		return 0, fmt.Errorf("invalid header: %w", err)
	}
	return header.Version, node.Content[1].Decode(doc)
}

// ReadFile decodes a report file from disk
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, version, err := Decode(data)
	if err != nil {
		return nil, err
	}
	logger.Debug("Read report file",
		zap.String("path", path),
		zap.Int("version", version),
		zap.String("title", doc.Title))
	return doc, nil
}

// WriteFile encodes a document into path, picking the format from the extension
func WriteFile(path string, d *Document) error {
	data, err := Encode(d, FormatFromPath(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
