package reader

import (
	"reflect"
	"strings"
	"testing"

	"github.com/vegasq/shardstat/errors"
	"github.com/vegasq/shardstat/table"
)

func TestCSVDecoder_InfersKinds(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "table_0.csv", "A,I,P,E,Q\nx,10,1.5,,a\ny,5,2,,3\n")

	got, err := CSVDecoder{}.Decode(path, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := table.Schema{
		{Name: "A", Kind: table.String},
		{Name: "I", Kind: table.Int64},
		{Name: "P", Kind: table.Float64},
		{Name: "E", Kind: table.Float64},
		{Name: "Q", Kind: table.String},
	}
	if !got.Schema().Equal(want) {
		t.Errorf("schema = %v, want %v", got.Schema(), want)
	}
	e, _ := got.Column("E")
	if e.NullCount() != 2 {
		t.Errorf("E null count = %d, want 2", e.NullCount())
	}
	p, _ := got.Column("P")
	if !reflect.DeepEqual(p.Float64s(), []float64{1.5, 2}) {
		t.Errorf("P = %v", p.Float64s())
	}
}

func TestCSVDecoder_ProjectionOrderAndNulls(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "table_0.csv", "A,I,P\nx,2,\ny,,4\n")

	got, err := CSVDecoder{}.Decode(path, []string{"I", "A"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if names := got.Schema().Names(); !reflect.DeepEqual(names, []string{"I", "A"}) {
		t.Errorf("columns = %v, want [I A]", names)
	}
	i, _ := got.Column("I")
	if i.Kind() != table.Int64 || i.Value(0) != int64(2) || i.Value(1) != nil {
		t.Errorf("I = %v [%v %v]", i.Kind(), i.Value(0), i.Value(1))
	}
}

func TestCSVDecoder_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		columns []string
		code    errors.Code
	}{
		{name: "missing column", content: "A,I\nx,1\n", columns: []string{"P"}, code: errors.ErrSchema},
		{name: "empty file", content: "", code: errors.ErrDecode},
		{name: "ragged row", content: "A,I\nx,1,9\n", code: errors.ErrDecode},
		{name: "duplicate header", content: "A,A\nx,y\n", code: errors.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "table_9.csv", tt.content)
			_, err := CSVDecoder{}.Decode(path, tt.columns)
			if !errors.Is(err, tt.code) {
				t.Fatalf("Decode() error = %v, want %s", err, tt.code)
			}
			if !strings.Contains(err.Error(), "table_9.csv") {
				t.Errorf("error %q should name the file", err)
			}
		})
	}
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		cells []string
		want  table.Kind
	}{
		{[]string{"1", "-2", ""}, table.Int64},
		{[]string{"1", "0.5"}, table.Float64},
		{[]string{"1", "x"}, table.String},
		{[]string{"", ""}, table.Float64},
		{nil, table.Float64},
	}
	for _, tt := range tests {
		if got := inferKind(tt.cells); got != tt.want {
			t.Errorf("inferKind(%q) = %v, want %v", tt.cells, got, tt.want)
		}
	}
}
