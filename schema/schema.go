package schema

import (
	"fmt"

	"github.com/go-sif/liquid"
	errors "github.com/go-sif/liquid/errors"
)

// Schema is an ordered list of column DataTypes, each with an optional name,
// along with optional row names. Schemas describe the shape of a DataFrame, but
// not its length. An empty name means a column (or row) is unnamed.
type Schema struct {
	types    []liquid.DataType
	colNames []string
	rowNames []string
}

// CreateSchema is a factory for empty Schemas
func CreateSchema() *Schema {
	return &Schema{
		types:    make([]liquid.DataType, 0),
		colNames: make([]string, 0),
		rowNames: make([]string, 0),
	}
}

// FromTypes creates a Schema of unnamed columns with the given types
func FromTypes(types []liquid.DataType) *Schema {
	s := CreateSchema()
	for _, t := range types {
		s.types = append(s.types, t)
		s.colNames = append(s.colNames, "")
	}
	return s
}

// FromString creates a Schema of unnamed columns from a string of type
// characters, e.g. "IIFBS" ('B'ool, 'I'nt, 'F'loat, 'S'tring)
func FromString(types string) (*Schema, error) {
	s := CreateSchema()
	for _, c := range types {
		t, err := liquid.DataTypeFromChar(c)
		if err != nil {
			return nil, err
		}
		s.types = append(s.types, t)
		s.colNames = append(s.colNames, "")
	}
	return s, nil
}

// AddColumn appends a column with the given type and (optional) name. If the
// name is already in use, the Schema is left untouched and a
// NameAlreadyExistsError is returned.
func (s *Schema) AddColumn(t liquid.DataType, name string) error {
	if len(name) > 0 {
		if _, exists := s.ColIdx(name); exists {
			return errors.NameAlreadyExistsError{Name: name}
		}
	}
	s.types = append(s.types, t)
	s.colNames = append(s.colNames, name)
	return nil
}

// AddRowName appends a row name. Row names are unique, like column names.
func (s *Schema) AddRowName(name string) error {
	if len(name) > 0 {
		if _, exists := s.RowIdx(name); exists {
			return errors.NameAlreadyExistsError{Name: name}
		}
	}
	s.rowNames = append(s.rowNames, name)
	return nil
}

// ColName returns the (possibly empty) name of the column at idx
func (s *Schema) ColName(idx int) (string, error) {
	if idx < 0 || idx >= len(s.colNames) {
		return "", errors.ColIndexOutOfBoundsError{Index: idx, Width: s.Width()}
	}
	return s.colNames[idx], nil
}

// ColType returns the DataType of the column at idx
func (s *Schema) ColType(idx int) (liquid.DataType, error) {
	if idx < 0 || idx >= len(s.types) {
		return 0, errors.ColIndexOutOfBoundsError{Index: idx, Width: s.Width()}
	}
	return s.types[idx], nil
}

// ColIdx returns the index of the column with the given name
func (s *Schema) ColIdx(name string) (int, bool) {
	for i, n := range s.colNames {
		if len(n) > 0 && n == name {
			return i, true
		}
	}
	return -1, false
}

// RowName returns the (possibly empty) name of the row at idx
func (s *Schema) RowName(idx int) (string, error) {
	if idx < 0 || idx >= len(s.rowNames) {
		return "", errors.RowIndexOutOfBoundsError{Index: idx, Length: len(s.rowNames)}
	}
	return s.rowNames[idx], nil
}

// RowIdx returns the index of the row with the given name
func (s *Schema) RowIdx(name string) (int, bool) {
	for i, n := range s.rowNames {
		if len(n) > 0 && n == name {
			return i, true
		}
	}
	return -1, false
}

// Width returns the number of columns in this Schema
func (s *Schema) Width() int {
	return len(s.types)
}

// Types returns a copy of the column types, in order
func (s *Schema) Types() []liquid.DataType {
	types := make([]liquid.DataType, len(s.types))
	copy(types, s.types)
	return types
}

// ColumnNames returns a copy of the column names, in order
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.colNames))
	copy(names, s.colNames)
	return names
}

// RowNames returns a copy of the row names, in order
func (s *Schema) RowNames() []string {
	names := make([]string, len(s.rowNames))
	copy(names, s.rowNames)
	return names
}

// Clone returns a copy of this Schema
func (s *Schema) Clone() *Schema {
	return &Schema{
		types:    s.Types(),
		colNames: s.ColumnNames(),
		rowNames: s.RowNames(),
	}
}

// CloneColumns returns a copy of this Schema without any row names
func (s *Schema) CloneColumns() *Schema {
	return &Schema{
		types:    s.Types(),
		colNames: s.ColumnNames(),
		rowNames: make([]string, 0),
	}
}

// Equals returns nil iff this and another Schema have the same sequence of column types
func (s *Schema) Equals(other *Schema) error {
	if s.Width() != other.Width() {
		return fmt.Errorf("Schemas have unequal widths %d and %d", s.Width(), other.Width())
	}
	for i, t := range s.types {
		if other.types[i] != t {
			return fmt.Errorf("Column %d types do not match (%s and %s)", i, t, other.types[i])
		}
	}
	return nil
}

// HasTypes returns true iff this Schema's column types are exactly types
func (s *Schema) HasTypes(types []liquid.DataType) bool {
	if len(types) != len(s.types) {
		return false
	}
	for i, t := range s.types {
		if types[i] != t {
			return false
		}
	}
	return true
}

// String returns the compact type string of this Schema, e.g. "IBS"
func (s *Schema) String() string {
	res := make([]rune, len(s.types))
	for i, t := range s.types {
		res[i] = t.Char()
	}
	return string(res)
}
