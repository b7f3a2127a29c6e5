package model

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type ColumnKind int

const (
	KindString ColumnKind = iota
	KindNumber
)

func (k ColumnKind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "string"
}

type Column struct {
	Name string
	Kind ColumnKind
}

// Table is a downloaded result set. Rows keep the order the server returned.
// NoResults marks the server's "no matching data" answer, which is not an error.
type Table struct {
	Columns   []Column
	Rows      [][]string
	NoResults bool
}

// NewTable builds a table and infers each column's kind from its cells:
// a column is numeric when every non-empty cell parses as a float.
func NewTable(header []string, rows [][]string) *Table {
	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: strings.TrimSpace(name), Kind: inferKind(rows, i)}
	}
	return &Table{Columns: cols, Rows: rows}
}

func inferKind(rows [][]string, col int) ColumnKind {
	seen := false
	for _, r := range rows {
		if col >= len(r) {
			continue
		}
		v := strings.TrimSpace(r[col])
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return KindString
		}
		seen = true
	}
	if !seen {
		return KindString
	}
	return KindNumber
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Empty() bool { return t.Len() == 0 }

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) Header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func (t *Table) Value(row int, col string) (string, bool) {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= t.Len() || i >= len(t.Rows[row]) {
		return "", false
	}
	return t.Rows[row][i], true
}

func (t *Table) Float(row int, col string) (float64, bool) {
	v, ok := t.Value(row, col)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// AddColumn appends a column; values must have one entry per row.
func (t *Table) AddColumn(name string, kind ColumnKind, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	if t.Index(name) >= 0 {
		return fmt.Errorf("column %q already exists", name)
	}
	t.Columns = append(t.Columns, Column{Name: name, Kind: kind})
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// WriteCSV writes the header line followed by every row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
