package tablesource

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCSV reads delimited text. Every non-empty field becomes a Text cell.
func readCSV(r io.Reader, opts Options) ([]types.RawRow, error) {
	decoded, err := decodingReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	reader := bufio.NewReader(decoded)
	// Skip the UTF-8 byte order mark written by spreadsheet exports.
	if head, err := reader.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		if _, err := reader.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, opts.Delimiter)

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	rows := make([]types.RawRow, len(records))
	for i, record := range records {
		rows[i] = types.TextRow(record...)
	}
	return rows, nil
}

// configureReader sets the delimiter and makes the reader tolerant of
// ragged rows and stray quotes.
func configureReader(reader *csv.Reader, delimiter string) {
	switch delimiter {
	case `\t`, "tab":
		reader.Comma = '\t'
	case "":
		reader.Comma = ','
	default:
		r, _ := utf8.DecodeRuneInString(delimiter)
		reader.Comma = r
	}

	// Allow a variable number of fields per row.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// decodingReader converts single-byte Cyrillic encodings to UTF-8.
func decodingReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1251", "cp1251":
		return transform.NewReader(r, charmap.Windows1251.NewDecoder()), nil
	case "koi8-r":
		return transform.NewReader(r, charmap.KOI8R.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}
