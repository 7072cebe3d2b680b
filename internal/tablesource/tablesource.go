// =============================================================================
// Trade Document Reconciler - Table Sources
// =============================================================================
//
// This module turns uploaded files into types.Document values (rows of
// typed cells). It knows nothing about items, codes or weights.
//
// SUPPORTED FORMATS:
//   | Format | Extensions        | Reader                               |
//   |--------|-------------------|--------------------------------------|
//   | XLSX   | .xlsx .xlsm       | excelize, numeric cells stay numbers |
//   | CSV    | .csv .txt         | encoding/csv + charmap decoding      |
//   | HTML   | .html .htm        | goquery, one <table> per document    |
//
// PDF and legacy .xls files are rejected with ErrUnsupportedFormat.
//
// =============================================================================

package tablesource

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/docerrors"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// ErrUnsupportedFormat is returned for file types that cannot be read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format is a table file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Options control how a table is read.
type Options struct {
	// Role names the document in errors ("primary", "secondary").
	Role string

	// Name is stored in the resulting Document.
	Name string

	// Sheet selects the XLSX worksheet. Empty means the first sheet.
	Sheet string

	// TableIndex selects the HTML table.
	TableIndex int

	// Encoding is the CSV character encoding (utf-8, windows-1251, koi8-r).
	Encoding string

	// Delimiter is the CSV field separator. Empty means ",".
	Delimiter string

	// SkipRows drops leading rows.
	SkipRows int
}

// OptionsFrom builds Options from a template's document settings.
func OptionsFrom(role, name string, doc config.DocumentSettings) Options {
	return Options{
		Role:       role,
		Name:       name,
		Sheet:      doc.Sheet,
		TableIndex: doc.TableIndex,
		Encoding:   doc.Encoding,
		Delimiter:  doc.Delimiter,
		SkipRows:   doc.SkipRows,
	}
}

// FormatFromFilename detects the format from the file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Read parses a table in the given format.
//
// RETURNS:
//   - The Document, or ErrUnsupportedFormat, or a MalformedDocument error
//     when the content cannot be parsed.
func Read(format Format, r io.Reader, opts Options) (*types.Document, error) {
	var (
		rows []types.RawRow
		err  error
	)

	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r, opts)
	case FormatCSV:
		rows, err = readCSV(r, opts)
	case FormatHTML:
		rows, err = readHTML(r, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, docerrors.Malformed(opts.Role, "cannot read %s table: %v", format, err)
	}

	if opts.SkipRows > 0 {
		if opts.SkipRows >= len(rows) {
			rows = nil
		} else {
			rows = rows[opts.SkipRows:]
		}
	}

	return &types.Document{Name: opts.Name, Rows: rows}, nil
}

// Open reads a table file from disk, detecting the format from its name.
func Open(path string, opts Options) (*types.Document, error) {
	format, err := FormatFromFilename(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if opts.Name == "" {
		opts.Name = filepath.Base(path)
	}
	return Read(format, file, opts)
}
