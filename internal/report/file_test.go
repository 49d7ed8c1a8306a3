package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verustcode/glance/pkg/errors"
	"github.com/verustcode/glance/pkg/logger"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-03-01 10:20:30.123456")
	require.NoError(t, err)
	assert.Equal(t, 123456000, ts.Nanosecond())
	assert.Equal(t, "2024-03-01 10:20:30.123456", ts.String())

	ts, err = ParseTimestamp("2024-03-01 10:20:30")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01 10:20:30.000000", ts.String())

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestEncodeDecodeJSON(t *testing.T) {
	d := sampleDocument()

	data, err := Encode(d, FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 4`)
	assert.Contains(t, string(data), `"timestamp": "2024-03-01 10:20:30.000000"`)

	got, version, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 4, version)
	got.Normalize(time.Now())

	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.RunID, got.RunID)
	assert.Equal(t, d.StatusStats(), got.StatusStats())
	require.NotNil(t, got.Sections[1].Blocks[0].Status)
	assert.Equal(t, StatusGood, *got.Sections[1].Blocks[0].Status)
	assert.Equal(t, KindStatic, got.Sections[1].Blocks[1].Results[0].Kind)
}

func TestEncodeDecodeYAML(t *testing.T) {
	d := sampleDocument()

	data, err := Encode(d, FormatYAML)
	require.NoError(t, err)

	got, version, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 4, version)
	got.Normalize(time.Now())
	assert.Equal(t, d.WorstStatus(), got.WorstStatus())
	assert.Equal(t, "customers", got.Sections[0].Blocks[0].Results[1].Title)
}

func TestDecodeLegacyWithoutHeader(t *testing.T) {
	logs := observeLogs(t)

	doc, version, err := Decode([]byte(`{"title": "Old", "timestamp": "2020-01-02 03:04:05", "sections": []}`))
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.Equal(t, "Old", doc.Title)
	assert.Equal(t, 1, logs.FilterMessage("Report file has no format header, reading as legacy format").Len())
}

func TestDecodeDeprecatedVersion(t *testing.T) {
	logs := observeLogs(t)

	_, version, err := Decode([]byte("- version: 2\n- title: Old\n  sections: []\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.Equal(t, 1, logs.FilterMessage("Report file format is deprecated").Len())
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"empty":     "  ",
		"bad json":  `[{"version": 4}, {"title": `,
		"too many":  `[{"version": 4}, {}, {}]`,
		"newer":     `[{"version": 99}, {"title": "x"}]`,
		"bad yaml":  "- a\n- b\n- c\n",
		"bad stamp": `[{"version": 4}, {"title": "x", "timestamp": "soon"}]`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentInvalid))
		})
	}
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	d := sampleDocument()

	for _, name := range []string{"run.json", "run.yml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, d))

		got, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, d.Title, got.Title, name)
	}

	_, err := ReadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.YAML"))
	assert.Equal(t, FormatJSON, FormatFromPath("a/b.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("a/b"))

	_, err := Encode(&Document{}, Format("xml"))
	assert.Error(t, err)
}
