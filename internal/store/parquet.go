package store

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/wonny/factorpool/internal/frame"
)

// IndexColumn is the name of the timestamp column of every table file
const IndexColumn = "timestamp"

var indexType = &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}

// WriteTable writes a table to path as parquet: a millisecond UTC timestamp
// column followed by one float64 column per table column. The file is written
// to a temporary name and renamed into place.
func WriteTable(path string, tbl *frame.Table) error {
	mem := memory.NewGoAllocator()
	cols := tbl.Columns()

	fields := make([]arrow.Field, 0, len(cols)+1)
	fields = append(fields, arrow.Field{Name: IndexColumn, Type: indexType})
	for _, c := range cols {
		fields = append(fields, arrow.Field{Name: c, Type: arrow.PrimitiveTypes.Float64, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	tsb := b.Field(0).(*array.TimestampBuilder)
	for i := 0; i < tbl.Len(); i++ {
		tsb.Append(arrow.Timestamp(tbl.Time(i).UnixMilli()))
		row := tbl.Row(i)
		for j := range cols {
			b.Field(j + 1).(*array.Float64Builder).Append(row[j])
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	table := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer table.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	var buf bytes.Buffer
	if err := pqarrow.WriteTable(table, &buf, 64*1024, props, pqarrow.DefaultWriterProps()); err != nil {
		return fmt.Errorf("encode parquet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadTable reads a parquet file written by WriteTable. Null cells become NaN.
func ReadTable(ctx context.Context, path string) (*frame.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(memory.DefaultAllocator),
		pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("decode parquet %s: %w", path, err)
	}
	defer table.Release()

	schema := table.Schema()
	idxPos := schema.FieldIndices(IndexColumn)
	if len(idxPos) != 1 {
		return nil, fmt.Errorf("%s: missing %q column", path, IndexColumn)
	}

	index, err := readIndex(table.Column(idxPos[0]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var names []string
	var columns [][]float64
	for i, field := range schema.Fields() {
		if i == idxPos[0] {
			continue
		}
		vals, err := readFloats(table.Column(i))
		if err != nil {
			return nil, fmt.Errorf("%s column %s: %w", path, field.Name, err)
		}
		names = append(names, field.Name)
		columns = append(columns, vals)
	}

	out := frame.New(names)
	row := make([]float64, len(names))
	for r, ts := range index {
		for c := range columns {
			row[c] = columns[c][r]
		}
		if err := out.AppendRow(ts, row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readIndex(col *arrow.Column) ([]time.Time, error) {
	tt, ok := col.DataType().(*arrow.TimestampType)
	if !ok {
		return nil, fmt.Errorf("index column has type %s", col.DataType())
	}

	out := make([]time.Time, 0, col.Len())
	for _, chunk := range col.Data().Chunks() {
		arr := chunk.(*array.Timestamp)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				return nil, fmt.Errorf("null timestamp at row %d", len(out))
			}
			out = append(out, arr.Value(i).ToTime(tt.Unit))
		}
	}
	return out, nil
}

func readFloats(col *arrow.Column) ([]float64, error) {
	out := make([]float64, 0, col.Len())
	for _, chunk := range col.Data().Chunks() {
		arr, ok := chunk.(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("unexpected type %s", chunk.DataType())
		}
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				out = append(out, math.NaN())
				continue
			}
			out = append(out, arr.Value(i))
		}
	}
	return out, nil
}
