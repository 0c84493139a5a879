package frame

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

// daily builds a table over days [from, to] where each cell is base+day
func daily(t *testing.T, cols []string, from, to int, base float64) *Table {
	t.Helper()
	tbl := New(cols)
	for d := from; d <= to; d++ {
		row := make([]float64, len(cols))
		for i := range row {
			row[i] = base + float64(d)
		}
		require.NoError(t, tbl.AppendRow(day(d), row))
	}
	return tbl
}

func TestTable_AppendRow(t *testing.T) {
	tbl := New([]string{"A", "B"})

	require.NoError(t, tbl.AppendRow(day(1), []float64{1, 2}))
	assert.Error(t, tbl.AppendRow(day(2), []float64{1}))

	assert.Equal(t, 1, tbl.Len())
	v, ok := tbl.Value(0, "B")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = tbl.Value(0, "C")
	assert.False(t, ok)
}

func TestTable_AppendMap(t *testing.T) {
	tbl := New([]string{"A", "B"})
	tbl.AppendMap(day(1), map[string]float64{"A": 3})

	a, _ := tbl.Value(0, "A")
	b, _ := tbl.Value(0, "B")
	assert.Equal(t, 3.0, a)
	assert.True(t, math.IsNaN(b))
}

func TestTable_Range(t *testing.T) {
	tbl := daily(t, []string{"A"}, 3, 7, 0)

	assert.Equal(t, day(3), tbl.First())
	assert.Equal(t, day(7), tbl.Last())

	empty := New([]string{"A"})
	assert.True(t, empty.First().IsZero())
	assert.True(t, empty.Empty())
}

func TestTable_AfterAndSince(t *testing.T) {
	tbl := daily(t, []string{"A"}, 1, 10, 0)

	after := tbl.After(day(7))
	assert.Equal(t, 3, after.Len())
	assert.Equal(t, day(8), after.First())

	since := tbl.Since(day(7))
	assert.Equal(t, 4, since.Len())
	assert.Equal(t, day(7), since.First())

	until := tbl.Until(day(7))
	assert.Equal(t, 7, until.Len())
	assert.Equal(t, day(7), until.Last())
}

func TestTable_DropDuplicateIndex(t *testing.T) {
	tbl := New([]string{"A"})
	require.NoError(t, tbl.AppendRow(day(1), []float64{1}))
	require.NoError(t, tbl.AppendRow(day(2), []float64{2}))
	require.NoError(t, tbl.AppendRow(day(2), []float64{99}))
	require.NoError(t, tbl.AppendRow(day(3), []float64{3}))

	assert.False(t, tbl.IsStrictlyIncreasing())

	dedup := tbl.DropDuplicateIndex()
	assert.Equal(t, 3, dedup.Len())
	assert.True(t, dedup.IsStrictlyIncreasing())

	v, _ := dedup.Value(1, "A")
	assert.Equal(t, 2.0, v, "first occurrence wins")
}

func TestConcat_UnionColumns(t *testing.T) {
	a := daily(t, []string{"A", "B"}, 1, 2, 0)
	b := daily(t, []string{"B", "C"}, 3, 3, 100)

	out := Concat(a, b)
	assert.Equal(t, []string{"A", "B", "C"}, out.Columns())
	assert.Equal(t, 3, out.Len())

	c0, _ := out.Value(0, "C")
	a2, _ := out.Value(2, "A")
	b2, _ := out.Value(2, "B")
	assert.True(t, math.IsNaN(c0))
	assert.True(t, math.IsNaN(a2))
	assert.Equal(t, 103.0, b2)
}

func TestTable_Equal(t *testing.T) {
	a := New([]string{"A"})
	b := New([]string{"A"})
	require.NoError(t, a.AppendRow(day(1), []float64{math.NaN()}))
	require.NoError(t, b.AppendRow(day(1), []float64{math.NaN()}))
	assert.True(t, a.Equal(b))

	require.NoError(t, b.AppendRow(day(2), []float64{1}))
	assert.False(t, a.Equal(b))
}
