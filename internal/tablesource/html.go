package tablesource

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// maxColspan caps colspan attributes so a hostile document cannot inflate a
// row.
const maxColspan = 64

// readHTML reads the rows of the selected <table>. Cells spanning several
// columns are repeated as empty cells so later columns keep their position.
func readHTML(r io.Reader, opts Options) ([]types.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	tables := doc.Find("table")
	if opts.TableIndex >= tables.Length() {
		return nil, fmt.Errorf("table %d not found (document has %d)", opts.TableIndex, tables.Length())
	}
	table := tables.Eq(opts.TableIndex)

	var rows []types.RawRow
	// Rows of nested tables belong to those tables.
	table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(table)
	}).Each(func(_ int, tr *goquery.Selection) {
		var row types.RawRow
		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, htmlCell(cell))
			for i := 1; i < colspan(cell); i++ {
				row = append(row, types.Empty())
			}
		})
		rows = append(rows, row)
	})

	return rows, nil
}

func htmlCell(cell *goquery.Selection) types.Cell {
	text := strings.TrimSpace(cell.Text())
	if text == "" {
		return types.Empty()
	}
	return types.Text(text)
}

func colspan(cell *goquery.Selection) int {
	attr, ok := cell.Attr("colspan")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(attr))
	if err != nil || n < 1 {
		return 1
	}
	if n > maxColspan {
		return maxColspan
	}
	return n
}
