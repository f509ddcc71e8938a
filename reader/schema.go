package reader

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/shardstat/table"
)

// ColumnInfo describes one column of a shard as reported by the schema
// command.
type ColumnInfo struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	PhysicalType string `json:"physical_type,omitempty"`
	LogicalType  string `json:"logical_type,omitempty"`
	Nullable     bool   `json:"nullable"`
}

// Inspect reports the columns of a shard file without decoding values
// where the format allows it.
//
// Parquet schemas come from the footer. CSV has no declared schema, so the
// file is decoded in full and each column's inferred kind is reported.
func Inspect(path string, format Format) ([]ColumnInfo, error) {
	switch format {
	case Parquet:
		return inspectParquet(path)
	case CSV:
		t, err := CSVDecoder{}.Decode(path, nil)
		if err != nil {
			return nil, err
		}
		infos := make([]ColumnInfo, 0, t.NumCols())
		for _, c := range t.Columns() {
			infos = append(infos, ColumnInfo{
				Name:     c.Name(),
				Kind:     c.Kind().String(),
				Nullable: c.NullCount() > 0,
			})
		}
		return infos, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func inspectParquet(path string) ([]ColumnInfo, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	var infos []ColumnInfo
	for _, field := range r.Schema().Fields() {
		infos = append(infos, fieldInfo(field, "")...)
	}
	return infos, nil
}

// fieldInfo flattens groups into dot-separated leaf names.
func fieldInfo(field parquet.Field, prefix string) []ColumnInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}

	if children := field.Fields(); len(children) > 0 {
		var infos []ColumnInfo
		for _, child := range children {
			infos = append(infos, fieldInfo(child, name)...)
		}
		return infos
	}

	info := ColumnInfo{
		Name:         name,
		PhysicalType: physicalTypeName(field.Type().Kind()),
		Nullable:     field.Optional(),
	}
	if lt := field.Type().LogicalType(); lt != nil {
		info.LogicalType = lt.String()
	}
	if kind, err := kindOf(field.Type()); err == nil && !field.Repeated() {
		info.Kind = kind.String()
	} else {
		info.Kind = "unsupported"
	}
	return []ColumnInfo{info}
}

// kindOf maps a parquet leaf type onto a table kind.
func kindOf(t parquet.Type) (table.Kind, error) {
	switch t.Kind() {
	case parquet.Boolean, parquet.Int32, parquet.Int64:
		return table.Int64, nil
	case parquet.Float, parquet.Double:
		return table.Float64, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return table.String, nil
	default:
		return 0, fmt.Errorf("unsupported physical type %s", physicalTypeName(t.Kind()))
	}
}

func physicalTypeName(kind parquet.Kind) string {
	switch kind {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}
