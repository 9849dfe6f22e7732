package liquid

import "fmt"

// DataType is the declared type of a column. DataTypes are ordered from
// narrowest to widest, which is the order used when inferring a schema.
type DataType uint8

const (
	// Bool columns hold booleans
	Bool DataType = iota
	// Int columns hold 64-bit signed integers
	Int
	// Float columns hold 64-bit floats
	Float
	// String columns hold strings
	String
)

// String returns a textual representation of this DataType
func (t DataType) String() string {
	switch t {
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
}

// Char returns the compact single-character form of this DataType
func (t DataType) Char() rune {
	switch t {
	case Bool:
		return 'B'
	case Int:
		return 'I'
	case Float:
		return 'F'
	default:
		return 'S'
	}
}

// DataTypeFromChar maps 'B', 'I', 'F' and 'S' to their DataType
func DataTypeFromChar(c rune) (DataType, error) {
	switch c {
	case 'B':
		return Bool, nil
	case 'I':
		return Int, nil
	case 'F':
		return Float, nil
	case 'S':
		return String, nil
	default:
		return 0, fmt.Errorf("%q is not a valid data type character", c)
	}
}

// Widest returns the wider of two DataTypes
func Widest(a, b DataType) DataType {
	if a > b {
		return a
	}
	return b
}
