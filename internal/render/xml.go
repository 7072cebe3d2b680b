package render

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/types"
)

// XMLOptions configure the XML writer.
type XMLOptions struct {
	// Indent is the indentation string. Default: two spaces
	Indent string

	// IncludeXMLDeclaration controls the <?xml ...?> header.
	IncludeXMLDeclaration bool

	// RootElement names the document element. Default: "summary"
	RootElement string

	// RowIndexAttribute names the row number attribute. Default: "n"
	RowIndexAttribute string
}

// DefaultXMLOptions returns the default XML options.
func DefaultXMLOptions() XMLOptions {
	return XMLOptions{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "summary",
		RowIndexAttribute:     "n",
	}
}

// xmlElement is a generic element so element and attribute names can come
// from options.
type xmlElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr    `xml:",attr"`
	Value      string        `xml:",chardata"`
	Children   []*xmlElement `xml:",any"`
}

func element(name, value string) *xmlElement {
	return &xmlElement{XMLName: xml.Name{Local: name}, Value: value}
}

// WriteXML writes the table with default XML options.
func WriteXML(w io.Writer, table *types.SummaryTable, opts Options) error {
	return WriteXMLWithOptions(w, table, opts, DefaultXMLOptions())
}

// WriteXMLWithOptions writes the table as XML:
//
//	<summary>
//	  <row n="1"><code/><name/><weight/><quantity/><cost/></row>
//	  ...
//	  <totals><label/><weight/><quantity/><cost/></totals>
//	</summary>
//
// Absent values are omitted.
func WriteXMLWithOptions(w io.Writer, table *types.SummaryTable, opts Options, xmlOpts XMLOptions) error {
	if xmlOpts.RootElement == "" {
		xmlOpts.RootElement = "summary"
	}
	if xmlOpts.RowIndexAttribute == "" {
		xmlOpts.RowIndexAttribute = "n"
	}

	view := NewView(table, opts)
	root := &xmlElement{XMLName: xml.Name{Local: xmlOpts.RootElement}}

	for _, row := range view.Rows {
		el := &xmlElement{
			XMLName: xml.Name{Local: "row"},
			Attributes: []xml.Attr{{
				Name:  xml.Name{Local: xmlOpts.RowIndexAttribute},
				Value: fmt.Sprint(row.Number),
			}},
		}
		if row.Code != "" {
			el.Children = append(el.Children, element("code", row.Code))
		}
		el.Children = append(el.Children, element("name", row.Name))
		el.Children = appendValues(el.Children, row)
		root.Children = append(root.Children, el)
	}

	totals := &xmlElement{XMLName: xml.Name{Local: "totals"}}
	totals.Children = append(totals.Children, element("label", view.Totals.Name))
	totals.Children = appendValues(totals.Children, view.Totals)
	root.Children = append(root.Children, totals)

	if xmlOpts.IncludeXMLDeclaration {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", xmlOpts.Indent)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to marshal XML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func appendValues(children []*xmlElement, row RowView) []*xmlElement {
	for _, v := range []struct {
		name  string
		value *string
	}{
		{"weight", row.Weight},
		{"quantity", row.Quantity},
		{"cost", row.Cost},
	} {
		if v.value != nil {
			children = append(children, element(v.name, *v.value))
		}
	}
	return children
}
