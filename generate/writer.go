package generate

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/shardstat/reader"
	"github.com/vegasq/shardstat/table"
)

// WriteFile writes t to path in the given format.
func WriteFile(path string, format reader.Format, t *table.Table) error {
	switch format {
	case reader.CSV:
		return WriteCSV(path, t)
	case reader.Parquet:
		return WriteParquet(path, t)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// WriteCSV writes t with a header row. Nulls are empty cells and floats
// use the shortest representation that reads back exactly.
func WriteCSV(path string, t *table.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriterSize(f, 1<<16)
	w := csv.NewWriter(bw)
	if err := w.Write(t.Schema().Names()); err != nil {
		return err
	}

	cells := make([]func(int) string, t.NumCols())
	for j, c := range t.Columns() {
		cells[j] = cellFormatter(c)
	}
	record := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j := range cells {
			record[j] = cells[j](i)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return bw.Flush()
}

func cellFormatter(c *table.Column) func(int) string {
	switch c.Kind() {
	case table.Float64:
		vals := c.Float64s()
		return func(i int) string {
			if c.IsNull(i) {
				return ""
			}
			return strconv.FormatFloat(vals[i], 'g', -1, 64)
		}
	case table.Int64:
		vals := c.Int64s()
		return func(i int) string {
			if c.IsNull(i) {
				return ""
			}
			return strconv.FormatInt(vals[i], 10)
		}
	default:
		vals := c.Strings()
		return func(i int) string {
			if c.IsNull(i) {
				return ""
			}
			return vals[i]
		}
	}
}

// parquetSchema derives a schema that keeps t's column order. Columns with
// nulls become optional.
func parquetSchema(t *table.Table) *parquet.Schema {
	fields := make([]reflect.StructField, t.NumCols())
	for j, c := range t.Columns() {
		var typ reflect.Type
		switch c.Kind() {
		case table.Float64:
			typ = reflect.TypeOf(float64(0))
		case table.Int64:
			typ = reflect.TypeOf(int64(0))
		default:
			typ = reflect.TypeOf("")
		}
		tag := c.Name()
		if c.NullCount() > 0 {
			typ = reflect.PointerTo(typ)
			tag += ",optional"
		}
		fields[j] = reflect.StructField{
			Name: "Col" + strconv.Itoa(j),
			Type: typ,
			Tag:  reflect.StructTag(`parquet:"` + tag + `"`),
		}
	}
	return parquet.SchemaOf(reflect.New(reflect.StructOf(fields)).Interface())
}

// WriteParquet writes t as a single parquet file.
func WriteParquet(path string, t *table.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	writer := parquet.NewWriter(f, parquetSchema(t))

	values := make([]func(int) parquet.Value, t.NumCols())
	for j, c := range t.Columns() {
		values[j] = valueFormatter(c, j)
	}

	const batch = 4096
	rows := make([]parquet.Row, 0, batch)
	for i := 0; i < t.NumRows(); i++ {
		row := make(parquet.Row, len(values))
		for j := range values {
			row[j] = values[j](i)
		}
		rows = append(rows, row)
		if len(rows) == batch {
			if _, err := writer.WriteRows(rows); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			rows = rows[:0]
		}
	}
	if len(rows) > 0 {
		if _, err := writer.WriteRows(rows); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %s: %w", path, err)
	}
	return nil
}

// valueFormatter returns leveled parquet values for column j.
func valueFormatter(c *table.Column, j int) func(int) parquet.Value {
	def := 0
	if c.NullCount() > 0 {
		def = 1
	}
	null := parquet.NullValue().Level(0, 0, j)

	switch c.Kind() {
	case table.Float64:
		vals := c.Float64s()
		return func(i int) parquet.Value {
			if c.IsNull(i) {
				return null
			}
			return parquet.DoubleValue(vals[i]).Level(0, def, j)
		}
	case table.Int64:
		vals := c.Int64s()
		return func(i int) parquet.Value {
			if c.IsNull(i) {
				return null
			}
			return parquet.Int64Value(vals[i]).Level(0, def, j)
		}
	default:
		vals := c.Strings()
		return func(i int) parquet.Value {
			if c.IsNull(i) {
				return null
			}
			return parquet.ByteArrayValue([]byte(vals[i])).Level(0, def, j)
		}
	}
}
