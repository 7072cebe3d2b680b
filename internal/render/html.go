package render

import (
	"html/template"
	"io"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

var pageTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 4px 8px; }
td.num { text-align: right; }
tr.totals { font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<table>
<thead><tr>{{range .View.Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .View.Rows}}<tr>{{template "cells" .Cells}}</tr>
{{end}}<tr class="totals">{{template "cells" .View.Totals.Cells}}</tr>
</tbody>
</table>
</body>
</html>
{{define "cells"}}{{range $i, $c := .}}{{if ge $i 3}}<td class="num">{{$c}}</td>{{else}}<td>{{$c}}</td>{{end}}{{end}}{{end}}`))

// WriteHTML writes the table as a standalone HTML page. All text is escaped.
func WriteHTML(w io.Writer, table *types.SummaryTable, opts Options) error {
	return pageTemplate.Execute(w, struct {
		Title string
		View  *View
	}{
		Title: opts.Title,
		View:  NewView(table, opts),
	})
}
