package rowers

import (
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/schema"
)

// Collect copies the rows accepted by a predicate into a DataFrame. Joined
// Collects hold their rows in node order, since each node joins the rows of
// the nodes after it onto its own.
type Collect struct {
	Frame *dataframe.DataFrame
	keep  func(row *dataframe.Row) bool
}

// Collector returns a new Collect Rower for rows of the given Schema. A nil
// keep accepts every row.
func Collector(s *schema.Schema, keep func(row *dataframe.Row) bool) *Collect {
	return &Collect{Frame: dataframe.New(s), keep: keep}
}

// Visit copies row into the collected DataFrame, if it is accepted
func (r *Collect) Visit(row *dataframe.Row) bool {
	if r.keep != nil && !r.keep(row) {
		return true
	}
	if err := r.Frame.AddRow(row); err != nil {
		panic(err)
	}
	return true
}

// Join appends the rows collected by other
func (r *Collect) Join(other *Collect) *Collect {
	if err := r.Frame.Combine(other.Frame); err != nil {
		panic(err)
	}
	return r
}

// Clone returns an empty Collect with the same Schema and predicate
func (r *Collect) Clone() *Collect {
	return Collector(r.Frame.Schema(), r.keep)
}

// Split divides rows into those whose value in a Float column is below a
// threshold (Left) and the rest (Right). Rows with a null value go Right.
type Split struct {
	Col       int
	Threshold float64
	Left      *dataframe.DataFrame
	Right     *dataframe.DataFrame
}

// Splitter returns a new Split Rower for rows of the given Schema
func Splitter(s *schema.Schema, col int, threshold float64) *Split {
	return &Split{Col: col, Threshold: threshold, Left: dataframe.New(s), Right: dataframe.New(s)}
}

// Visit copies row into Left or Right
func (r *Split) Visit(row *dataframe.Row) bool {
	side := r.Right
	if v, err := row.GetFloat(r.Col); err == nil && v < r.Threshold {
		side = r.Left
	}
	if err := side.AddRow(row); err != nil {
		panic(err)
	}
	return true
}

// Join appends the rows split by other
func (r *Split) Join(other *Split) *Split {
	if err := r.Left.Combine(other.Left); err != nil {
		panic(err)
	}
	if err := r.Right.Combine(other.Right); err != nil {
		panic(err)
	}
	return r
}

// Clone returns an empty Split with the same configuration
func (r *Split) Clone() *Split {
	return Splitter(r.Left.Schema(), r.Col, r.Threshold)
}
