// Package table loads flat tabular files into immutable in-memory tables and
// exposes typed column accessors over them.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table holds a header and rows of text cells. Cells are parsed on demand by
// the typed accessors. A Table returned by a Loader is shared through the
// cache and must not be modified; use Rename or New to derive new tables.
type Table struct {
	Name   string
	header []string
	index  map[string]int
	rows   [][]string
}

// New creates an empty table. Column names must be unique and non-empty.
func New(name string, header ...string) (*Table, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := index[h]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		index[h] = i
	}
	return &Table{
		Name:   name,
		header: append([]string(nil), header...),
		index:  index,
	}, nil
}

// MustNew is like New but panics on an invalid header. It is meant for
// tables whose columns are fixed in code.
func MustNew(name string, header ...string) *Table {
	t, err := New(name, header...)
	if err != nil {
		panic(err)
	}
	return t
}

// Append adds a row. The number of cells must match the header.
func (t *Table) Append(cells ...string) error {
	if len(cells) != len(t.header) {
		return fmt.Errorf("row has %d cells, header has %d", len(cells), len(t.header))
	}
	t.rows = append(t.rows, append([]string(nil), cells...))
	return nil
}

// Header returns a copy of the column names.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether the table has the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Rows returns a copy of all rows.
func (t *Table) Rows() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Rename returns a table whose columns named in aliases are renamed. Rows are
// shared with the receiver. Renaming onto an existing column is an error.
func (t *Table) Rename(aliases map[string]string) (*Table, error) {
	header := t.Header()
	for i, h := range header {
		if to, ok := aliases[h]; ok {
			header[i] = to
		}
	}
	out, err := New(t.Name, header...)
	if err != nil {
		return nil, &SchemaError{Table: t.Name, Column: "*", Msg: err.Error()}
	}
	out.rows = t.rows
	return out, nil
}

func (t *Table) column(col string) (int, error) {
	i, ok := t.index[col]
	if !ok {
		return 0, &SchemaError{Table: t.Name, Column: col, Msg: "column not found"}
	}
	return i, nil
}

// Strings returns the whitespace-trimmed cells of a column.
func (t *Table) Strings(col string) ([]string, error) {
	ci, err := t.column(col)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = strings.TrimSpace(r[ci])
	}
	return out, nil
}

// Floats parses every cell of a column as a number. Any cell that is not a
// finite number is a SchemaError.
func (t *Table) Floats(col string) ([]float64, error) {
	ci, err := t.column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		v, ok := parseNumber(r[ci])
		if !ok {
			return nil, &SchemaError{Table: t.Name, Column: col, Line: i + 2, Msg: fmt.Sprintf("not a number: %q", r[ci])}
		}
		out[i] = v
	}
	return out, nil
}

// FloatsOrNaN parses a column leniently: cells that are not numbers become
// NaN. Only a missing column is an error.
func (t *Table) FloatsOrNaN(col string) ([]float64, error) {
	ci, err := t.column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		v, ok := parseNumber(r[ci])
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// Ints parses every cell of a column as an integer. Values written as whole
// floats ("7.0") are accepted.
func (t *Table) Ints(col string) ([]int, error) {
	vals, err := t.Floats(col)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		if v != math.Trunc(v) {
			return nil, &SchemaError{Table: t.Name, Column: col, Line: i + 2, Msg: fmt.Sprintf("not an integer: %v", v)}
		}
		out[i] = int(v)
	}
	return out, nil
}

// parseNumber accepts plain decimal numbers with optional thousands commas.
// A trailing percent sign reads the number as a fraction, so "30%" is 0.3.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	scale := 1.0
	if p, ok := strings.CutSuffix(s, "%"); ok {
		s, scale = strings.TrimSpace(p), 100
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v / scale, true
}
