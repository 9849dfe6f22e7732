package rowers

import (
	"github.com/go-sif/liquid"
	"github.com/go-sif/liquid/dataframe"
)

// Sum sums an Int or Float column. Null cells are counted but not summed.
type Sum struct {
	Col   int
	Sum   float64
	Nulls int64
}

// Adder returns a new Sum Rower over the given column
func Adder(col int) *Sum {
	return &Sum{Col: col}
}

// Visit adds a row's value to the sum
func (r *Sum) Visit(row *dataframe.Row) bool {
	d, err := row.Get(r.Col)
	if err != nil {
		return false
	}
	if d.IsNull() {
		r.Nulls++
		return true
	}
	switch d.Type() {
	case liquid.Int:
		v, _ := d.AsInt()
		r.Sum += float64(v)
	case liquid.Float:
		v, _ := d.AsFloat()
		r.Sum += v
	}
	return true
}

// Join adds another Sum to this one
func (r *Sum) Join(other *Sum) *Sum {
	r.Sum += other.Sum
	r.Nulls += other.Nulls
	return r
}

// Clone returns an empty Sum over the same column
func (r *Sum) Clone() *Sum {
	return &Sum{Col: r.Col}
}
