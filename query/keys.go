package query

import (
	"math"

	"github.com/vegasq/shardstat/table"
)

// numKey is a hashable numeric key. Integral values key on their int64
// value, so int64 keys above 2^53 stay distinct and 3 equals 3.0. Other
// floats key on the float; NaN equals nothing, itself included.
type numKey struct {
	i    int64
	f    float64
	frac bool
}

func floatKey(v float64) numKey {
	if v == math.Trunc(v) && v >= -(1<<63) && v < 1<<63 {
		return numKey{i: int64(v)}
	}
	return numKey{f: v, frac: true}
}

// value returns the key as a float.
func (k numKey) value() float64 {
	if k.frac {
		return k.f
	}
	return float64(k.i)
}

// numKeys returns a reader of the key at row r of a numeric view, false
// for null rows.
func (v view) numKeys() func(r int) (numKey, bool) {
	c := v.col
	if c.Kind() == table.Int64 {
		ints := c.Int64s()
		return func(r int) (numKey, bool) {
			i := v.source(r)
			if i < 0 || c.IsNull(i) {
				return numKey{}, false
			}
			return numKey{i: ints[i]}, true
		}
	}
	floats := c.Float64s()
	return func(r int) (numKey, bool) {
		i := v.source(r)
		if i < 0 || c.IsNull(i) {
			return numKey{}, false
		}
		return floatKey(floats[i]), true
	}
}
