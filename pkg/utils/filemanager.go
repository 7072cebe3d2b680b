// =============================================================================
// Trade Document Reconciler - File Manager Utility
// =============================================================================
//
// This module provides file utilities for the reconciler, including:
//   - Output file naming
//   - Gap log generation (rows that could not be extracted or joined)
//   - Run summary generation
//   - Directory management
//
// All files are created in the output directory. Nothing is ever written
// next to the input documents.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// DIRECTORIES
// =============================================================================

// EnsureDir creates a directory (and its parents) if it does not exist.
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// =============================================================================
// FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name based on a format string.
//
// PARAMETERS:
//   - format: The format string with placeholders.
//   - params: Additional parameters to substitute.
//
// PLACEHOLDERS:
//   - {uuid}: params["uuid"] (the run ID) or a new UUID
//   - {timestamp}: Current timestamp (YYYYMMDD_HHMMSS)
//   - {date}: Current date (YYYYMMDD)
//   - {time}: Current time (HHMMSS)
//   - {template}, {ext} and any other key of params
//
// When params has an "ext" entry the name is guaranteed to end with it.
// Path separators in substituted values are replaced so the result is
// always a single file name.
//
// RETURNS:
//   - The generated file name.
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	// Build replacements.
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}

	// Add custom params.
	for key, value := range params {
		replacements["{"+key+"}"] = sanitizeName(value)
	}

	// Apply replacements.
	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	result = filepath.Base(filepath.Clean(result))

	// Ensure the extension.
	if ext := params["ext"]; ext != "" && !strings.HasSuffix(strings.ToLower(result), "."+strings.ToLower(ext)) {
		result += "." + ext
	}

	return result
}

func sanitizeName(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, value)
}

// =============================================================================
// GAP LOG
// =============================================================================

// GapLogEntry represents one row that did not make it into the table.
type GapLogEntry struct {
	// Kind is the error kind (extraction_gap, unjoinable_record, ...).
	Kind string

	// Document is the document role.
	Document string

	// FileName is the input file name.
	FileName string

	// RowNumber is the 1-based row number, or 0.
	RowNumber int

	// FieldName is the missing field, if any.
	FieldName string

	// Message is a human-readable description.
	Message string
}

// WriteGapLog writes gap log entries to a file.
//
// PARAMETERS:
//   - entries: The gap log entries to write.
//   - outputDir: The directory to write the gap log to.
//   - runID: The run the entries belong to.
//
// RETURNS:
//   - The path to the created gap log file, or "" when there is nothing to
//     write.
//   - An error if the file could not be written.
func WriteGapLog(entries []GapLogEntry, outputDir, runID string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	if err := EnsureDir(outputDir); err != nil {
		return "", err
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("gap_log_%s.txt", sanitizeName(runID)))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create gap log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Trade Document Reconciler - Gap Log\n"+
		"Run:        %s\n"+
		"Generated:  %s\n"+
		"Total Gaps: %d\n"+
		"================================================================================\n\n",
		runID,
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Gap #%d\n"+
			"  Kind:       %s\n"+
			"  Document:   %s\n",
			i+1, entry.Kind, entry.Document)
		if entry.FileName != "" {
			fmt.Fprintf(writer, "  File:       %s\n", entry.FileName)
		}
		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number: %d\n", entry.RowNumber)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:      %s\n", entry.FieldName)
		}
		fmt.Fprintf(writer, "  Message:    %s\n\n", entry.Message)
	}

	writer.WriteString("================================================================================\n" +
		"End of Gap Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush gap log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary describes one finished CLI run.
type RunSummary struct {
	RunID         string
	Template      string
	PrimaryFile   string
	SecondaryFile string
	OutputFile    string
	GapLogFile    string
	Rows          int
	Gaps          int
	Unmatched     int
	Totals        map[string]string
	Duration      time.Duration
}

// FormatRunSummary formats a run summary for the console.
func FormatRunSummary(s RunSummary) string {
	var b strings.Builder
	b.WriteString("================================================================================\n")
	b.WriteString("Reconciliation Summary\n")
	b.WriteString("================================================================================\n")
	fmt.Fprintf(&b, "  Run ID:      %s\n", s.RunID)
	fmt.Fprintf(&b, "  Template:    %s\n", s.Template)
	fmt.Fprintf(&b, "  Primary:     %s\n", s.PrimaryFile)
	fmt.Fprintf(&b, "  Secondary:   %s\n", s.SecondaryFile)
	fmt.Fprintf(&b, "  Rows:        %d\n", s.Rows)
	fmt.Fprintf(&b, "  Gaps:        %d\n", s.Gaps)
	fmt.Fprintf(&b, "  Unmatched:   %d\n", s.Unmatched)
	for _, key := range []string{"quantity", "cost", "weight"} {
		if v, ok := s.Totals[key]; ok {
			fmt.Fprintf(&b, "  Total %-9s%s\n", key+":", v)
		}
	}
	if s.OutputFile != "" {
		fmt.Fprintf(&b, "  Output:      %s\n", s.OutputFile)
	}
	if s.GapLogFile != "" {
		fmt.Fprintf(&b, "  Gap log:     %s\n", s.GapLogFile)
	}
	fmt.Fprintf(&b, "  Duration:    %s\n", s.Duration)
	b.WriteString("================================================================================\n")
	return b.String()
}
