package dataframe

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-sif/liquid"
	errors "github.com/go-sif/liquid/errors"
)

// Column is a homogeneously-typed, nullable vector of cells
type Column interface {
	Type() liquid.DataType            // Type returns the DataType of every non-null cell
	Len() int                         // Len returns the number of cells, null or otherwise
	Get(idx int) (liquid.Data, error) // Get returns the cell at idx
	Append(d liquid.Data) error       // Append adds a cell, which must be Null or of this Column's Type
	at(idx int) liquid.Data           // unchecked Get, for scans
	set(idx int, d liquid.Data) error // overwrite an existing cell
	appendColumn(other Column) error  // append every cell of another Column of the same Type
	toWire() columnWire               // gob-friendly representation
}

// typedColumn stores values of one Go type alongside a validity bitmap.
// A cell is null iff its bit is unset; null cells hold the zero value.
type typedColumn[T any] struct {
	kind   liquid.DataType
	values []T
	valid  *bitset.BitSet
	wrap   func(T) liquid.Data
	unwrap func(liquid.Data) (T, bool)
}

// NewColumn creates an empty Column of the given DataType
func NewColumn(t liquid.DataType) Column {
	switch t {
	case liquid.Bool:
		return &typedColumn[bool]{kind: t, valid: bitset.New(0), wrap: liquid.BoolData, unwrap: liquid.Data.AsBool}
	case liquid.Int:
		return &typedColumn[int64]{kind: t, valid: bitset.New(0), wrap: liquid.IntData, unwrap: liquid.Data.AsInt}
	case liquid.Float:
		return &typedColumn[float64]{kind: t, valid: bitset.New(0), wrap: liquid.FloatData, unwrap: liquid.Data.AsFloat}
	default:
		return &typedColumn[string]{kind: liquid.String, valid: bitset.New(0), wrap: liquid.StringData, unwrap: liquid.Data.AsString}
	}
}

// ColumnOf creates a Column of the given DataType holding cells, in order
func ColumnOf(t liquid.DataType, cells ...liquid.Data) (Column, error) {
	col := NewColumn(t)
	for _, d := range cells {
		if err := col.Append(d); err != nil {
			return nil, err
		}
	}
	return col, nil
}

func (c *typedColumn[T]) Type() liquid.DataType {
	return c.kind
}

func (c *typedColumn[T]) Len() int {
	return len(c.values)
}

func (c *typedColumn[T]) Get(idx int) (liquid.Data, error) {
	if idx < 0 || idx >= len(c.values) {
		return liquid.Null(), errors.RowIndexOutOfBoundsError{Index: idx, Length: len(c.values)}
	}
	return c.at(idx), nil
}

func (c *typedColumn[T]) at(idx int) liquid.Data {
	if !c.valid.Test(uint(idx)) {
		return liquid.Null()
	}
	return c.wrap(c.values[idx])
}

func (c *typedColumn[T]) Append(d liquid.Data) error {
	if d.IsNull() {
		var zero T
		c.values = append(c.values, zero)
		return nil
	}
	v, ok := c.unwrap(d)
	if !ok {
		return errors.TypeMismatchError{Expected: c.kind.String(), Actual: d.Type().String()}
	}
	c.values = append(c.values, v)
	c.valid.Set(uint(len(c.values) - 1))
	return nil
}

func (c *typedColumn[T]) set(idx int, d liquid.Data) error {
	if d.IsNull() {
		var zero T
		c.values[idx] = zero
		c.valid.Clear(uint(idx))
		return nil
	}
	v, ok := c.unwrap(d)
	if !ok {
		return errors.TypeMismatchError{Expected: c.kind.String(), Actual: d.Type().String()}
	}
	c.values[idx] = v
	c.valid.Set(uint(idx))
	return nil
}

func (c *typedColumn[T]) appendColumn(other Column) error {
	o, ok := other.(*typedColumn[T])
	if !ok || o.kind != c.kind {
		return errors.TypeMismatchError{Expected: c.kind.String(), Actual: other.Type().String()}
	}
	// o may be c itself, so only its first n bits are copied
	offset, n := uint(len(c.values)), uint(len(o.values))
	c.values = append(c.values, o.values...)
	for i, ok := o.valid.NextSet(0); ok && i < n; i, ok = o.valid.NextSet(i + 1) {
		c.valid.Set(offset + i)
	}
	return nil
}

// columnWire is the gob-encoded form of a Column
type columnWire struct {
	Type    liquid.DataType
	Len     int
	Valid   []uint64
	Bools   []bool
	Ints    []int64
	Floats  []float64
	Strings []string
}

func (c *typedColumn[T]) toWire() columnWire {
	w := columnWire{Type: c.kind, Len: len(c.values), Valid: c.valid.Bytes()}
	switch v := any(c.values).(type) {
	case []bool:
		w.Bools = v
	case []int64:
		w.Ints = v
	case []float64:
		w.Floats = v
	case []string:
		w.Strings = v
	}
	return w
}

func columnFromWire(w columnWire) (Column, error) {
	col := NewColumn(w.Type)
	var n int
	switch c := col.(type) {
	case *typedColumn[bool]:
		c.values, n = w.Bools, len(w.Bools)
		c.valid = bitset.From(w.Valid)
	case *typedColumn[int64]:
		c.values, n = w.Ints, len(w.Ints)
		c.valid = bitset.From(w.Valid)
	case *typedColumn[float64]:
		c.values, n = w.Floats, len(w.Floats)
		c.valid = bitset.From(w.Valid)
	case *typedColumn[string]:
		c.values, n = w.Strings, len(w.Strings)
		c.valid = bitset.From(w.Valid)
	}
	if n != w.Len {
		return nil, fmt.Errorf("%s column declares %d cells but holds %d", w.Type, w.Len, n)
	}
	return col, nil
}
