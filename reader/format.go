package reader

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/table"
)

// Format names a shard storage format.
type Format string

const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
)

// Formats lists every supported format in a stable order.
var Formats = []Format{CSV, Parquet}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case CSV:
		return CSV, nil
	case Parquet:
		return Parquet, nil
	}
	return "", errors.Newf(errors.ErrInvalidConfig, "unknown format %q (want csv or parquet)", s)
}

// Ext returns the file extension, dot included.
func (f Format) Ext() string { return "." + string(f) }

// Decoder turns one shard file into a Table holding the requested columns
// in the requested order. A nil columns slice means every column.
type Decoder interface {
	Decode(path string, columns []string) (*table.Table, error)
}

// DecoderFor returns the decoder for a format.
func DecoderFor(f Format) (Decoder, error) {
	switch f {
	case CSV:
		return CSVDecoder{}, nil
	case Parquet:
		return ParquetDecoder{}, nil
	}
	return nil, errors.Newf(errors.ErrInvalidConfig, "no decoder for format %q", f)
}

// Lister yields the paths matching a shell pattern.
type Lister interface {
	List(pattern string) ([]string, error)
}

// DirLister lists files in a single directory.
type DirLister struct {
	Dir string
}

// List returns the matching paths in lexicographic order.
func (d DirLister) List(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.Dir, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid glob pattern %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// Glob lists files in dir matching pattern with the format's extension
// appended, sorted by path.
//
// Example:
//
//	paths, err := reader.Glob("data", "table_*", reader.Parquet)
//	// data/table_0.parquet, data/table_1.parquet, ...
func Glob(dir, pattern string, format Format) ([]string, error) {
	return DirLister{Dir: dir}.List(pattern + format.Ext())
}
