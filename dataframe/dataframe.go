package dataframe

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/go-sif/liquid"
	errors "github.com/go-sif/liquid/errors"
	"github.com/go-sif/liquid/schema"
)

// Accessible is the read-only view of a DataFrame. Scans, and anything else
// that may run concurrently, only ever see an Accessible.
type Accessible interface {
	Schema() *schema.Schema                    // Schema returns a copy of the Schema of this DataFrame
	NRows() int                                // NRows returns the number of rows
	NCols() int                                // NCols returns the number of columns
	Get(col int, row int) (liquid.Data, error) // Get returns a single cell
	FillRow(idx int, row *Row) error           // FillRow copies the cells of row idx into row
	NewRow() *Row                              // NewRow returns a scratch Row shaped like this DataFrame
}

// Decoder turns a byte range of a source file into typed columns
type Decoder interface {
	// InferSchema determines the Schema of the file at path
	InferSchema(path string) (*schema.Schema, error)
	// DecodeRange decodes every record which starts within
	// [offset, offset+length) into one Column per Schema entry
	DecodeRange(path string, s *schema.Schema, offset int64, length int64) ([]Column, error)
}

// DataFrame is a columnar store: one typed, nullable Column per Schema entry,
// all of the same length. DataFrames are built single-threaded and are
// read-only once handed to a map.
type DataFrame struct {
	schema  *schema.Schema
	columns []Column
	nrows   int
}

// New creates an empty DataFrame with the columns of the given Schema
func New(s *schema.Schema) *DataFrame {
	s = s.CloneColumns()
	columns := make([]Column, s.Width())
	for i, t := range s.Types() {
		columns[i] = NewColumn(t)
	}
	return &DataFrame{schema: s, columns: columns}
}

// FromColumns creates a DataFrame from a Schema and a matching list of
// Columns of equal length
func FromColumns(s *schema.Schema, columns []Column) (*DataFrame, error) {
	if len(columns) != s.Width() {
		return nil, fmt.Errorf("Schema has %d columns but %d were supplied", s.Width(), len(columns))
	}
	nrows := 0
	for i, col := range columns {
		t, _ := s.ColType(i)
		if col.Type() != t {
			return nil, errors.TypeMismatchError{Expected: t.String(), Actual: col.Type().String()}
		}
		if i == 0 {
			nrows = col.Len()
		} else if col.Len() != nrows {
			return nil, fmt.Errorf("Column %d has length %d, expected %d", i, col.Len(), nrows)
		}
	}
	return &DataFrame{schema: s.Clone(), columns: columns, nrows: nrows}, nil
}

// FromDecoder creates a DataFrame from the records which start within
// [offset, offset+length) of the file at path
func FromDecoder(d Decoder, path string, offset int64, length int64) (*DataFrame, error) {
	s, err := d.InferSchema(path)
	if err != nil {
		return nil, err
	}
	columns, err := d.DecodeRange(path, s, offset, length)
	if err != nil {
		return nil, err
	}
	return FromColumns(s, columns)
}

// Schema returns a copy of the Schema of this DataFrame
func (df *DataFrame) Schema() *schema.Schema {
	return df.schema.Clone()
}

// NRows returns the number of rows in this DataFrame
func (df *DataFrame) NRows() int {
	return df.nrows
}

// NCols returns the number of columns in this DataFrame
func (df *DataFrame) NCols() int {
	return len(df.columns)
}

// NewRow returns a scratch Row shaped like this DataFrame
func (df *DataFrame) NewRow() *Row {
	return NewRow(df.schema)
}

// Get returns the cell at the given column and row
func (df *DataFrame) Get(col int, row int) (liquid.Data, error) {
	if col < 0 || col >= len(df.columns) {
		return liquid.Null(), errors.ColIndexOutOfBoundsError{Index: col, Width: len(df.columns)}
	}
	if row < 0 || row >= df.nrows {
		return liquid.Null(), errors.RowIndexOutOfBoundsError{Index: row, Length: df.nrows}
	}
	return df.columns[col].at(row), nil
}

// SetInt stores an int64 at the given column and row
func (df *DataFrame) SetInt(col int, row int, v int64) error {
	return df.set(col, row, liquid.IntData(v), liquid.Int)
}

// SetFloat stores a float64 at the given column and row
func (df *DataFrame) SetFloat(col int, row int, v float64) error {
	return df.set(col, row, liquid.FloatData(v), liquid.Float)
}

// SetBool stores a bool at the given column and row
func (df *DataFrame) SetBool(col int, row int, v bool) error {
	return df.set(col, row, liquid.BoolData(v), liquid.Bool)
}

// SetString stores a string at the given column and row
func (df *DataFrame) SetString(col int, row int, v string) error {
	return df.set(col, row, liquid.StringData(v), liquid.String)
}

// SetNull clears the cell at the given column and row
func (df *DataFrame) SetNull(col int, row int) error {
	if col < 0 || col >= len(df.columns) {
		return errors.ColIndexOutOfBoundsError{Index: col, Width: len(df.columns)}
	}
	if row < 0 || row >= df.nrows {
		return errors.RowIndexOutOfBoundsError{Index: row, Length: df.nrows}
	}
	return df.columns[col].set(row, liquid.Null())
}

func (df *DataFrame) set(col int, row int, d liquid.Data, t liquid.DataType) error {
	if col < 0 || col >= len(df.columns) {
		return errors.ColIndexOutOfBoundsError{Index: col, Width: len(df.columns)}
	}
	if ct := df.columns[col].Type(); ct != t {
		return errors.TypeMismatchError{Expected: ct.String(), Actual: t.String()}
	}
	if row < 0 || row >= df.nrows {
		return errors.RowIndexOutOfBoundsError{Index: row, Length: df.nrows}
	}
	return df.columns[col].set(row, d)
}

// AddRow appends the cells of row to this DataFrame. The Row's types must be
// exactly this DataFrame's column types.
func (df *DataFrame) AddRow(row *Row) error {
	if !df.schema.HasTypes(row.types) {
		return errors.IncompatibleRowError{}
	}
	for i, col := range df.columns {
		if err := col.Append(row.cells[i]); err != nil {
			return err
		}
	}
	df.nrows++
	return nil
}

// FillRow overwrites the cells of row with those of row idx of this DataFrame,
// and sets row's index to idx
func (df *DataFrame) FillRow(idx int, row *Row) error {
	if idx < 0 || idx >= df.nrows {
		return errors.RowIndexOutOfBoundsError{Index: idx, Length: df.nrows}
	}
	if len(row.types) != len(df.columns) {
		return errors.IncompatibleRowError{}
	}
	for i, col := range df.columns {
		if row.types[i] != col.Type() {
			return errors.IncompatibleRowError{}
		}
		row.cells[i] = col.at(idx)
	}
	row.SetIndex(idx)
	return nil
}

// AddColumn appends a Column, with an optional name, to this DataFrame. Its
// length must match NRows() unless this DataFrame has no columns yet.
func (df *DataFrame) AddColumn(col Column, name string) error {
	if len(df.columns) > 0 && col.Len() != df.nrows {
		return fmt.Errorf("Column has length %d, expected %d", col.Len(), df.nrows)
	}
	if err := df.schema.AddColumn(col.Type(), name); err != nil {
		return err
	}
	df.columns = append(df.columns, col)
	df.nrows = col.Len()
	return nil
}

// GetCol returns the Column with the given name
func (df *DataFrame) GetCol(name string) (Column, error) {
	idx, ok := df.schema.ColIdx(name)
	if !ok {
		return nil, fmt.Errorf("No column named %s", name)
	}
	return df.columns[idx], nil
}

// GetRow returns a Row holding the cells of the row with the given name
func (df *DataFrame) GetRow(name string) (*Row, error) {
	idx, ok := df.schema.RowIdx(name)
	if !ok {
		return nil, fmt.Errorf("No row named %s", name)
	}
	row := df.NewRow()
	if err := df.FillRow(idx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Combine appends every row of another DataFrame with the same column types
func (df *DataFrame) Combine(other *DataFrame) error {
	if err := df.schema.Equals(other.schema); err != nil {
		return errors.IncompatibleRowError{}
	}
	for i, col := range df.columns {
		if err := col.appendColumn(other.columns[i]); err != nil {
			return err
		}
	}
	df.nrows += other.nrows
	return nil
}

// String returns a string representation of this DataFrame
func (df *DataFrame) String() string {
	return fmt.Sprintf("DataFrame[%s](%d rows)", df.schema, df.nrows)
}

type dataFrameWire struct {
	Types    []liquid.DataType
	ColNames []string
	RowNames []string
	Columns  []columnWire
}

// GobEncode serializes this DataFrame
func (df *DataFrame) GobEncode() ([]byte, error) {
	w := dataFrameWire{
		Types:    df.schema.Types(),
		ColNames: df.schema.ColumnNames(),
		RowNames: df.schema.RowNames(),
		Columns:  make([]columnWire, len(df.columns)),
	}
	for i, col := range df.columns {
		w.Columns[i] = col.toWire()
	}
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode replaces the contents of this DataFrame with a serialized DataFrame
func (df *DataFrame) GobDecode(data []byte) error {
	var w dataFrameWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	if len(w.ColNames) != len(w.Types) || len(w.Columns) != len(w.Types) {
		return fmt.Errorf("Serialized DataFrame has %d types, %d names and %d columns", len(w.Types), len(w.ColNames), len(w.Columns))
	}
	s := schema.CreateSchema()
	for i, t := range w.Types {
		if err := s.AddColumn(t, w.ColNames[i]); err != nil {
			return err
		}
	}
	for _, name := range w.RowNames {
		if err := s.AddRowName(name); err != nil {
			return err
		}
	}
	columns := make([]Column, len(w.Columns))
	for i, cw := range w.Columns {
		col, err := columnFromWire(cw)
		if err != nil {
			return err
		}
		columns[i] = col
	}
	decoded, err := FromColumns(s, columns)
	if err != nil {
		return err
	}
	*df = *decoded
	return nil
}
