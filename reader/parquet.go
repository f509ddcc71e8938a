// Package reader decodes shard files into tables.
//
// It uses the parquet-go library to read parquet files column chunk by
// column chunk, so only the requested columns are ever decoded.
package reader

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/table"
)

// pageBufferSize is the number of values read from a page per call.
const pageBufferSize = 1024

// Reader reads parquet files into tables.
//
// It maintains both an OS file handle and a parquet file handle to enable
// proper resource cleanup.
type Reader struct {
	path   string
	file   *os.File
	pqFile *parquet.File
}

// NewReader creates a new parquet reader for the specified file path.
//
// The file is opened and validated as a parquet file. Returns an error if
// the file doesn't exist or is not a valid parquet file.
//
// Example:
//
//	reader, err := NewReader("table_0.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reader.Close()
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, errors.Newf(errors.ErrDecode, "failed to open parquet file %s: %v", path, err)
	}

	return &Reader{
		path:   path,
		file:   file,
		pqFile: pqFile,
	}, nil
}

// NumRows returns the row count recorded in the file footer.
func (r *Reader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// ReadTable decodes the named columns, in the given order, into a Table.
// A nil columns slice decodes every top-level column.
//
// Only the column chunks of requested columns are read; the remaining
// columns are never decompressed or materialized.
func (r *Reader) ReadTable(columns []string) (*table.Table, error) {
	schema := r.pqFile.Schema()
	if columns == nil {
		for _, field := range schema.Fields() {
			columns = append(columns, field.Name())
		}
	}

	cols := make([]*table.Column, 0, len(columns))
	for _, name := range columns {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return nil, errors.Newf(errors.ErrSchema, "column %q not found in %s", name, r.path)
		}
		if leaf.MaxRepetitionLevel > 0 {
			return nil, errors.Newf(errors.ErrSchema, "column %q in %s is repeated", name, r.path)
		}
		kind, err := kindOf(leaf.Node.Type())
		if err != nil {
			return nil, errors.Newf(errors.ErrSchema, "column %q in %s: %v", name, r.path, err)
		}
		col, err := r.readColumn(name, leaf.ColumnIndex, kind, leaf.Node.Type().Kind())
		if err != nil {
			return nil, errors.Newf(errors.ErrDecode, "failed to read column %q from %s: %v", name, r.path, err)
		}
		cols = append(cols, col)
	}

	t, err := table.NewTable(cols...)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", r.path)
	}
	return t.WithSource(r.path), nil
}

// readColumn walks every row group's chunk for one column.
func (r *Reader) readColumn(name string, columnIndex int, kind table.Kind, physical parquet.Kind) (*table.Column, error) {
	b := table.NewBuilder(name, kind, int(r.pqFile.NumRows()))
	appendValue := valueAppender(physical)
	buf := make([]parquet.Value, pageBufferSize)

	for _, rowGroup := range r.pqFile.RowGroups() {
		chunks := rowGroup.ColumnChunks()
		if columnIndex >= len(chunks) {
			return nil, fmt.Errorf("column index %d out of range", columnIndex)
		}
		pages := chunks[columnIndex].Pages()
		err := readPages(pages, buf, b, appendValue)
		closeErr := pages.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}
	}
	return b.Build(), nil
}

func readPages(pages parquet.Pages, buf []parquet.Value, b *table.Builder, appendValue func(*table.Builder, parquet.Value)) error {
	for {
		page, err := pages.ReadPage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		values := page.Values()
		for {
			n, err := values.ReadValues(buf)
			for _, v := range buf[:n] {
				if v.IsNull() {
					b.AppendNull()
					continue
				}
				appendValue(b, v)
			}
			if err == io.EOF || (err == nil && n == 0) {
				break
			}
			if err != nil {
				parquet.Release(page)
				return err
			}
		}
		parquet.Release(page)
	}
}

// valueAppender picks the conversion for a physical type once per column.
func valueAppender(kind parquet.Kind) func(*table.Builder, parquet.Value) {
	switch kind {
	case parquet.Boolean:
		return func(b *table.Builder, v parquet.Value) {
			if v.Boolean() {
				b.AppendInt64(1)
			} else {
				b.AppendInt64(0)
			}
		}
	case parquet.Int32:
		return func(b *table.Builder, v parquet.Value) { b.AppendInt64(int64(v.Int32())) }
	case parquet.Int64:
		return func(b *table.Builder, v parquet.Value) { b.AppendInt64(v.Int64()) }
	case parquet.Float:
		return func(b *table.Builder, v parquet.Value) { b.AppendFloat64(float64(v.Float())) }
	case parquet.Double:
		return func(b *table.Builder, v parquet.Value) { b.AppendFloat64(v.Double()) }
	default:
		return func(b *table.Builder, v parquet.Value) { b.AppendString(string(v.ByteArray())) }
	}
}

// Schema returns the parquet file schema.
func (r *Reader) Schema() *parquet.Schema {
	return r.pqFile.Schema()
}

// Close closes the parquet reader and releases associated resources.
//
// Should be called when done reading to avoid resource leaks. It is safe
// to call Close multiple times.
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// ParquetDecoder decodes columnar binary shards with projection pushdown.
type ParquetDecoder struct{}

// Decode implements Decoder.
func (ParquetDecoder) Decode(path string, columns []string) (*table.Table, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	t, readErr := r.ReadTable(columns)
	closeErr := r.Close()

	// Preserve the first error encountered
	if readErr != nil {
		return nil, readErr
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	return t, nil
}
