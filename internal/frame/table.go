package frame

import (
	"fmt"
	"math"
	"time"
)

// Table is a time-indexed panel: one row per timestamp, one float64 column per
// instrument (or statistic). Missing values are NaN.
// ⭐ SSOT: every persisted factor/statistic table goes through this type
type Table struct {
	index   []time.Time
	columns []string
	colPos  map[string]int
	values  [][]float64 // row-major
}

// New creates an empty table with the given column order
func New(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)

	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c] = i
	}

	return &Table{
		columns: cols,
		colPos:  pos,
	}
}

// NewSeries creates an empty single-column table
func NewSeries(name string) *Table {
	return New([]string{name})
}

// AppendRow appends a row; row must have one value per column
func (t *Table) AppendRow(ts time.Time, row []float64) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.columns))
	}

	r := make([]float64, len(row))
	copy(r, row)
	t.index = append(t.index, ts)
	t.values = append(t.values, r)
	return nil
}

// AppendMap appends a row from a column→value map; absent columns are NaN
func (t *Table) AppendMap(ts time.Time, row map[string]float64) {
	r := make([]float64, len(t.columns))
	for i, c := range t.columns {
		v, ok := row[c]
		if !ok {
			v = math.NaN()
		}
		r[i] = v
	}
	t.index = append(t.index, ts)
	t.values = append(t.values, r)
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Empty reports whether the table has no rows
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// Columns returns a copy of the column names
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Index returns a copy of the time index
func (t *Table) Index() []time.Time {
	idx := make([]time.Time, len(t.index))
	copy(idx, t.index)
	return idx
}

// Time returns the timestamp of row i
func (t *Table) Time(i int) time.Time {
	return t.index[i]
}

// Row returns row i (shared, do not modify)
func (t *Table) Row(i int) []float64 {
	return t.values[i]
}

// Value returns the value at row i for column col
func (t *Table) Value(i int, col string) (float64, bool) {
	p, ok := t.colPos[col]
	if !ok {
		return math.NaN(), false
	}
	return t.values[i][p], true
}

// Column returns a copy of one column
func (t *Table) Column(name string) ([]float64, bool) {
	p, ok := t.colPos[name]
	if !ok {
		return nil, false
	}

	out := make([]float64, len(t.values))
	for i, row := range t.values {
		out[i] = row[p]
	}
	return out, true
}

// HasColumn reports whether name is a column of the table
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colPos[name]
	return ok
}

// First returns the first timestamp (zero time when empty)
func (t *Table) First() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	return t.index[0]
}

// Last returns the last timestamp (zero time when empty)
func (t *Table) Last() time.Time {
	if t.Empty() {
		return time.Time{}
	}
	return t.index[len(t.index)-1]
}

// After returns the rows strictly after ts
func (t *Table) After(ts time.Time) *Table {
	out := New(t.columns)
	for i, idx := range t.index {
		if idx.After(ts) {
			out.index = append(out.index, idx)
			out.values = append(out.values, t.values[i])
		}
	}
	return out
}

// Since returns the rows at or after ts
func (t *Table) Since(ts time.Time) *Table {
	out := New(t.columns)
	for i, idx := range t.index {
		if !idx.Before(ts) {
			out.index = append(out.index, idx)
			out.values = append(out.values, t.values[i])
		}
	}
	return out
}

// Until returns the rows at or before ts
func (t *Table) Until(ts time.Time) *Table {
	out := New(t.columns)
	for i, idx := range t.index {
		if !idx.After(ts) {
			out.index = append(out.index, idx)
			out.values = append(out.values, t.values[i])
		}
	}
	return out
}

// DropDuplicateIndex keeps the first row of every timestamp
func (t *Table) DropDuplicateIndex() *Table {
	out := New(t.columns)
	seen := make(map[int64]struct{}, len(t.index))
	for i, idx := range t.index {
		key := idx.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.index = append(out.index, idx)
		out.values = append(out.values, t.values[i])
	}
	return out
}

// IsStrictlyIncreasing reports whether the index is sorted without duplicates
func (t *Table) IsStrictlyIncreasing() bool {
	for i := 1; i < len(t.index); i++ {
		if !t.index[i].After(t.index[i-1]) {
			return false
		}
	}
	return true
}

// Concat stacks b under a. Columns are the union (a's order first, then new
// columns of b); cells a row does not have are NaN.
func Concat(a, b *Table) *Table {
	cols := a.Columns()
	for _, c := range b.columns {
		if !a.HasColumn(c) {
			cols = append(cols, c)
		}
	}

	out := New(cols)
	for _, src := range []*Table{a, b} {
		for i, ts := range src.index {
			row := make([]float64, len(cols))
			for j, c := range cols {
				if p, ok := src.colPos[c]; ok {
					row[j] = src.values[i][p]
				} else {
					row[j] = math.NaN()
				}
			}
			out.index = append(out.index, ts)
			out.values = append(out.values, row)
		}
	}
	return out
}

// Equal compares index, columns and values (NaN equals NaN)
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() || len(t.columns) != len(o.columns) {
		return false
	}
	for i, c := range t.columns {
		if o.columns[i] != c {
			return false
		}
	}
	for i := range t.index {
		if !t.index[i].Equal(o.index[i]) {
			return false
		}
		for j, v := range t.values[i] {
			w := o.values[i][j]
			if math.IsNaN(v) && math.IsNaN(w) {
				continue
			}
			if v != w {
				return false
			}
		}
	}
	return true
}
