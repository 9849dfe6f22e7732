package dataframe

import (
	"fmt"
	"strings"

	"github.com/go-sif/liquid"
	errors "github.com/go-sif/liquid/errors"
	"github.com/go-sif/liquid/schema"
)

// Row is a fixed-width, Schema-typed scratch buffer for the cells of a single
// row of a DataFrame, along with the (optional) index of the row it was
// filled from. Rows are reused: a scan allocates one and refills it for every
// row it visits.
type Row struct {
	types  []liquid.DataType
	cells  []liquid.Data
	idx    int
	hasIdx bool
}

// NewRow creates an all-null Row for the given Schema
func NewRow(s *schema.Schema) *Row {
	types := s.Types()
	return &Row{
		types: types,
		cells: make([]liquid.Data, len(types)),
	}
}

// Width returns the number of cells in this Row
func (r *Row) Width() int {
	return len(r.cells)
}

// Types returns a copy of the column types of this Row
func (r *Row) Types() []liquid.DataType {
	types := make([]liquid.DataType, len(r.types))
	copy(types, r.types)
	return types
}

// ColType returns the declared DataType of the given column
func (r *Row) ColType(col int) (liquid.DataType, error) {
	if col < 0 || col >= len(r.types) {
		return 0, errors.ColIndexOutOfBoundsError{Index: col, Width: len(r.types)}
	}
	return r.types[col], nil
}

// Get returns the cell in the given column
func (r *Row) Get(col int) (liquid.Data, error) {
	if col < 0 || col >= len(r.cells) {
		return liquid.Null(), errors.ColIndexOutOfBoundsError{Index: col, Width: len(r.cells)}
	}
	return r.cells[col], nil
}

// GetInt returns the Int cell in the given column, which must be non-null
func (r *Row) GetInt(col int) (int64, error) {
	d, err := r.typedCell(col, liquid.Int)
	if err != nil {
		return 0, err
	}
	v, _ := d.AsInt()
	return v, nil
}

// GetFloat returns the Float cell in the given column, which must be non-null
func (r *Row) GetFloat(col int) (float64, error) {
	d, err := r.typedCell(col, liquid.Float)
	if err != nil {
		return 0, err
	}
	v, _ := d.AsFloat()
	return v, nil
}

// GetBool returns the Bool cell in the given column, which must be non-null
func (r *Row) GetBool(col int) (bool, error) {
	d, err := r.typedCell(col, liquid.Bool)
	if err != nil {
		return false, err
	}
	v, _ := d.AsBool()
	return v, nil
}

// GetString returns the String cell in the given column, which must be non-null
func (r *Row) GetString(col int) (string, error) {
	d, err := r.typedCell(col, liquid.String)
	if err != nil {
		return "", err
	}
	v, _ := d.AsString()
	return v, nil
}

func (r *Row) typedCell(col int, t liquid.DataType) (liquid.Data, error) {
	d, err := r.Get(col)
	if err != nil {
		return d, err
	}
	if r.types[col] != t {
		return d, errors.TypeMismatchError{Expected: r.types[col].String(), Actual: t.String()}
	}
	if d.IsNull() {
		return d, errors.NotSetError{What: fmt.Sprintf("Column %d", col)}
	}
	return d, nil
}

// IsNull returns true iff the given column holds no value. Out-of-bounds
// columns are reported as null.
func (r *Row) IsNull(col int) bool {
	d, err := r.Get(col)
	return err != nil || d.IsNull()
}

// SetInt stores an int64 in the given column
func (r *Row) SetInt(col int, v int64) error {
	return r.Set(col, liquid.IntData(v))
}

// SetFloat stores a float64 in the given column
func (r *Row) SetFloat(col int, v float64) error {
	return r.Set(col, liquid.FloatData(v))
}

// SetBool stores a bool in the given column
func (r *Row) SetBool(col int, v bool) error {
	return r.Set(col, liquid.BoolData(v))
}

// SetString stores a string in the given column
func (r *Row) SetString(col int, v string) error {
	return r.Set(col, liquid.StringData(v))
}

// SetNull clears the given column
func (r *Row) SetNull(col int) error {
	return r.Set(col, liquid.Null())
}

// Set stores any Data in the given column. Non-null Data must match the
// column's declared type; values are never coerced.
func (r *Row) Set(col int, d liquid.Data) error {
	if col < 0 || col >= len(r.cells) {
		return errors.ColIndexOutOfBoundsError{Index: col, Width: len(r.cells)}
	}
	if !d.IsNull() && d.Type() != r.types[col] {
		return errors.TypeMismatchError{Expected: r.types[col].String(), Actual: d.Type().String()}
	}
	r.cells[col] = d
	return nil
}

// SetIndex records the index of the DataFrame row this Row holds
func (r *Row) SetIndex(idx int) {
	r.idx = idx
	r.hasIdx = true
}

// Index returns the index of the DataFrame row this Row holds
func (r *Row) Index() (int, error) {
	if !r.hasIdx {
		return 0, errors.NotSetError{What: "Row index"}
	}
	return r.idx, nil
}

// Accept visits every cell of this Row, in column order, with f
func (r *Row) Accept(f Fielder) {
	idx, _ := r.Index()
	f.Start(idx)
	for _, d := range r.cells {
		if d.IsNull() {
			f.VisitNull()
			continue
		}
		switch d.Type() {
		case liquid.Int:
			v, _ := d.AsInt()
			f.VisitInt(v)
		case liquid.Float:
			v, _ := d.AsFloat()
			f.VisitFloat(v)
		case liquid.Bool:
			v, _ := d.AsBool()
			f.VisitBool(v)
		case liquid.String:
			v, _ := d.AsString()
			f.VisitString(v)
		}
	}
	f.Done()
}

// String returns a string representation of this Row
func (r *Row) String() string {
	var res strings.Builder
	fmt.Fprint(&res, "{")
	for i, d := range r.cells {
		if i > 0 {
			fmt.Fprint(&res, ", ")
		}
		fmt.Fprint(&res, d.String())
	}
	fmt.Fprint(&res, "}")
	return res.String()
}
