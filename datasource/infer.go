package datasource

import (
	"strconv"
	"strings"

	"github.com/go-sif/liquid"
	"github.com/go-sif/liquid/schema"
)

// InferenceLines is the number of leading lines of a file examined when
// inferring its schema
const InferenceLines = 500

// InferType returns the narrowest DataType which can represent field
func InferType(field string) liquid.DataType {
	if _, ok := parseBool(field); ok {
		return liquid.Bool
	} else if _, err := strconv.ParseInt(field, 10, 64); err == nil {
		return liquid.Int
	} else if _, err := strconv.ParseFloat(field, 64); err == nil {
		return liquid.Float
	}
	return liquid.String
}

// Parse converts field to a Data of type t, failing if it cannot be represented
func Parse(t liquid.DataType, field string) (liquid.Data, error) {
	switch t {
	case liquid.Bool:
		b, ok := parseBool(field)
		if !ok {
			return liquid.Null(), &strconv.NumError{Func: "ParseBool", Num: field, Err: strconv.ErrSyntax}
		}
		return liquid.BoolData(b), nil
	case liquid.Int:
		i, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return liquid.Null(), err
		}
		return liquid.IntData(i), nil
	case liquid.Float:
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return liquid.Null(), err
		}
		return liquid.FloatData(f), nil
	default:
		return liquid.StringData(field), nil
	}
}

func parseBool(field string) (bool, bool) {
	switch strings.ToLower(field) {
	case "0", "false":
		return false, true
	case "1", "true":
		return true, true
	default:
		return false, false
	}
}

// Inferrer widens per-column DataTypes as fields are observed. Columns in
// which no value is ever observed are Bool.
type Inferrer struct {
	types []liquid.DataType
}

// Observe widens the type of column idx to accommodate t
func (in *Inferrer) Observe(idx int, t liquid.DataType) {
	for len(in.types) <= idx {
		in.types = append(in.types, liquid.Bool)
	}
	in.types[idx] = liquid.Widest(in.types[idx], t)
}

// Touch ensures that there are at least n columns
func (in *Inferrer) Touch(n int) {
	for len(in.types) < n {
		in.types = append(in.types, liquid.Bool)
	}
}

// Schema builds a Schema from the observed types. names may be shorter than
// the number of columns; the remaining columns are unnamed.
func (in *Inferrer) Schema(names []string) (*schema.Schema, error) {
	s := schema.CreateSchema()
	for i, t := range in.types {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if err := s.AddColumn(t, name); err != nil {
			return nil, err
		}
	}
	return s, nil
}
