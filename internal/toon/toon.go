// Package toon encodes documents in TOON (Token-Oriented Object Notation): a
// few scalar fields followed by tabular arrays with a declared column header.
package toon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Field is a top-level `key: value` line. Value follows the same rules as
// a table cell.
type Field struct {
	Key   string
	Value any
}

// Table is a tabular array. Every row must have one cell per column.
//
// Cells are typed: bools and numbers are written as literals, strings are
// quoted whenever they could be misread as one (including "true" or "42").
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Append adds a row built from cells.
func (t *Table) Append(cells ...any) {
	t.Rows = append(t.Rows, cells)
}

// Document is an ordered set of fields followed by tables.
type Document struct {
	Fields []Field
	Tables []*Table
}

// Field appends a scalar field.
func (d *Document) Field(key string, value any) {
	d.Fields = append(d.Fields, Field{Key: key, Value: value})
}

// Table appends and returns an empty table with the given columns.
func (d *Document) Table(name string, columns ...string) *Table {
	t := &Table{Name: name, Columns: columns}
	d.Tables = append(d.Tables, t)
	return t
}

// Encode renders the document. Empty tables are kept so readers always see
// the declared columns.
func Encode(doc *Document) string {
	parts := make([]string, 0, len(doc.Fields)+len(doc.Tables))
	for _, f := range doc.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Key, encodeCell(f.Value)))
	}
	for _, t := range doc.Tables {
		parts = append(parts, formatTabular(t))
	}
	return strings.Join(parts, "\n")
}

func formatTabular(t *Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", t.Name, len(t.Rows), strings.Join(t.Columns, ","))
	for _, row := range t.Rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeCell(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeCell(v any) string {
	switch v := v.(type) {
	case string:
		return encodeValue(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return encodeValue(fmt.Sprint(v))
	}
}

func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case value != strings.TrimSpace(value), strings.ContainsAny(value, "\n\r\t"):
		return quote(value)
	}
	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}
	if looksNumeric.MatchString(value) {
		return quote(value)
	}
	if needsQuoting.MatchString(value) || strings.HasPrefix(value, "-") {
		return quote(value)
	}
	return value
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(value string) string {
	return `"` + escaper.Replace(value) + `"`
}
