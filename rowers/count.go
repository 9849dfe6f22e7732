package rowers

import "github.com/go-sif/liquid/dataframe"

// Count counts rows
type Count struct {
	Count int64
}

// Counter returns a new Count Rower
func Counter() *Count {
	return &Count{}
}

// Visit counts a row
func (r *Count) Visit(row *dataframe.Row) bool {
	r.Count++
	return true
}

// Join adds another Count to this one
func (r *Count) Join(other *Count) *Count {
	r.Count += other.Count
	return r
}

// Clone returns an empty Count
func (r *Count) Clone() *Count {
	return &Count{}
}

// TrueCount counts the rows in which a Bool column is true. Null and non-Bool cells are not counted.
type TrueCount struct {
	Col   int
	Count int64
}

// TrueCounter returns a new TrueCount Rower over the given column
func TrueCounter(col int) *TrueCount {
	return &TrueCount{Col: col}
}

// Visit counts a row if it is true in the configured column
func (r *TrueCount) Visit(row *dataframe.Row) bool {
	if v, err := row.GetBool(r.Col); err == nil && v {
		r.Count++
	}
	return true
}

// Join adds another TrueCount to this one
func (r *TrueCount) Join(other *TrueCount) *TrueCount {
	r.Count += other.Count
	return r
}

// Clone returns an empty TrueCount over the same column
func (r *TrueCount) Clone() *TrueCount {
	return &TrueCount{Col: r.Col}
}
