package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("summary_{template}_{uuid}.{ext}", map[string]string{
		"uuid":     "run-1",
		"template": "furniture",
		"ext":      "xlsx",
	})
	assert.Equal(t, "summary_furniture_run-1.xlsx", name)

	name = GenerateOutputFileName("summary_{timestamp}", map[string]string{"ext": "html"})
	assert.Regexp(t, regexp.MustCompile(`^summary_\d{8}_\d{6}\.html$`), name)

	name = GenerateOutputFileName("out_{uuid}", nil)
	assert.Regexp(t, regexp.MustCompile(`^out_[0-9a-f-]{36}$`), name)
}

func TestGenerateOutputFileNameStaysInDirectory(t *testing.T) {
	name := GenerateOutputFileName("{template}.{ext}", map[string]string{
		"template": "../../etc/passwd",
		"ext":      "json",
	})
	assert.NotContains(t, name, "/")
	assert.True(t, strings.HasSuffix(name, ".json"))
}

func TestWriteGapLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteGapLog(nil, dir, "run-1")
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteGapLog([]GapLogEntry{
		{Kind: "extraction_gap", Document: "primary", FileName: "proforma.xlsx", RowNumber: 3, FieldName: "quantity", Message: "required field not found"},
		{Kind: "unjoinable_record", Document: "secondary", Message: `no primary record matches "Table Oak"`},
	}, dir, "run-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gap_log_run-1.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "Total Gaps: 2")
	assert.Contains(t, text, "Row Number: 3")
	assert.Contains(t, text, "Field:      quantity")
	assert.Contains(t, text, "Table Oak")
	assert.True(t, FileExists(path))
}

func TestFormatRunSummary(t *testing.T) {
	out := FormatRunSummary(RunSummary{
		RunID:    "run-1",
		Template: "default",
		Rows:     2,
		Totals:   map[string]string{"weight": "57.20"},
		Duration: time.Second,
	})
	assert.Contains(t, out, "Run ID:      run-1")
	assert.Contains(t, out, "Total weight:  57.20")
	assert.NotContains(t, out, "Output:")
}
