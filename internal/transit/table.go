package transit

import (
	"encoding/xml"
	"strings"
)

// table is a serialized DataTable: a DocumentElement wrapping one element per
// row, each row wrapping one element per column.
type table struct {
	Rows []row `xml:",any"`
}

type row struct {
	XMLName xml.Name
	Fields  []xmlNode `xml:",any"`
}

type xmlNode struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (n xmlNode) text() string {
	if t := strings.TrimSpace(n.Value); t != "" {
		return t
	}
	return "service reported an error"
}

func (r row) field(name string) string {
	for _, f := range r.Fields {
		if f.XMLName.Local == name {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// values collects the named column across all rows, skipping blanks
func (t table) values(name string) []string {
	var out []string
	for _, r := range t.Rows {
		if v := r.field(name); v != "" {
			out = append(out, v)
		}
	}
	return out
}
