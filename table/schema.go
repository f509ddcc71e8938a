package table

import (
	"strings"
)

// Kind is the closed set of column kinds a Table can hold.
type Kind int

const (
	Float64 Kind = iota
	Int64
	String
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Numeric reports whether columns of this kind take part in means.
func (k Kind) Numeric() bool {
	return k == Float64 || k == Int64
}

// Compatible reports whether values of kinds a and b can share a column.
// Integers and floats mix; strings only mix with strings.
func Compatible(a, b Kind) bool {
	return a == b || (a.Numeric() && b.Numeric())
}

// Promote returns the kind a column holding both a and b values must have.
// It assumes Compatible(a, b).
func Promote(a, b Kind) Kind {
	if a == b {
		return a
	}
	return Float64
}

// Field describes one column of a Schema.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered list of fields of a Table.
type Schema []Field

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Index returns the position of the named field, or -1.
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Equal reports whether both schemas have the same names and kinds in the
// same order.
func (s Schema) Equal(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Compatible reports whether both schemas have the same names in the same
// order with pairwise compatible kinds.
func (s Schema) Compatible(o Schema) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i].Name != o[i].Name || !Compatible(s[i].Kind, o[i].Kind) {
			return false
		}
	}
	return true
}

func (s Schema) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Kind.String())
	}
	b.WriteByte(']')
	return b.String()
}
