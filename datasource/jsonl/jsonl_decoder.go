package jsonl

import (
	"fmt"
	"strings"

	"github.com/go-sif/liquid"
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/datasource"
	"github.com/go-sif/liquid/schema"
	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
)

// DecoderConf configures a JSONL Decoder
type DecoderConf struct {
	Columns []string // gjson paths of the columns to extract. Defaults to the top-level keys of the first record, in document order.
	Comment rune     // Lines beginning with the comment character are ignored. Defaults to no comment character.
}

// Decoder produces typed columns from JSONL data. Values within the JSON which
// do not correspond to a column are ignored, and missing or null values are null.
type Decoder struct {
	conf *DecoderConf
}

// CreateDecoder returns a new JSONL Decoder
func CreateDecoder(conf *DecoderConf) *Decoder {
	return &Decoder{conf: conf}
}

func (d *Decoder) skip(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) == 0 || (d.conf.Comment != 0 && strings.HasPrefix(trimmed, string(d.conf.Comment)))
}

// escapePath turns an object key into a gjson path which matches only that key
func escapePath(key string) string {
	var res strings.Builder
	for _, c := range key {
		switch c {
		case '.', '*', '?', '|', '#', '@', '\\':
			res.WriteRune('\\')
		}
		res.WriteRune(c)
	}
	return res.String()
}

func inferValueType(v gjson.Result) (liquid.DataType, bool) {
	switch v.Type {
	case gjson.Null:
		return 0, false
	case gjson.True, gjson.False:
		return liquid.Bool, true
	case gjson.Number:
		if strings.ContainsAny(v.Raw, ".eE") {
			return liquid.Float, true
		}
		return liquid.Int, true
	default:
		return liquid.String, true
	}
}

// columns returns the column names and their gjson paths
func (d *Decoder) columns(path string) (names []string, paths []string, err error) {
	if len(d.conf.Columns) > 0 {
		return d.conf.Columns, d.conf.Columns, nil
	}
	err = datasource.ScanRange(path, 0, -1, func(start int64, line string) (bool, error) {
		if d.skip(line) {
			return true, nil
		}
		if !gjson.Valid(line) {
			return false, fmt.Errorf("Line at byte %d is not valid JSON", start)
		}
		gjson.Parse(line).ForEach(func(key, value gjson.Result) bool {
			names = append(names, key.String())
			paths = append(paths, escapePath(key.String()))
			return true
		})
		return false, nil
	})
	return
}

// InferSchema infers column types from the first records of the file
func (d *Decoder) InferSchema(path string) (*schema.Schema, error) {
	names, paths, err := d.columns(path)
	if err != nil {
		return nil, err
	}
	var in datasource.Inferrer
	in.Touch(len(paths))
	seen := 0
	err = datasource.ScanRange(path, 0, -1, func(start int64, line string) (bool, error) {
		if d.skip(line) {
			return true, nil
		}
		for i, v := range gjson.GetMany(line, paths...) {
			if t, ok := inferValueType(v); ok {
				in.Observe(i, t)
			}
		}
		seen++
		return seen < datasource.InferenceLines, nil
	})
	if err != nil {
		return nil, err
	}
	return in.Schema(names)
}

func parseValue(colName string, colType liquid.DataType, v gjson.Result) (liquid.Data, error) {
	switch colType {
	case liquid.Bool:
		if v.Type != gjson.True && v.Type != gjson.False {
			return liquid.Null(), fmt.Errorf("Column %s was not a boolean. Was: %s", colName, v.Raw)
		}
		return liquid.BoolData(v.Bool()), nil
	case liquid.Int:
		if v.Type != gjson.Number {
			return liquid.Null(), fmt.Errorf("Column %s was not a number. Was: %s", colName, v.Raw)
		}
		return liquid.IntData(v.Int()), nil
	case liquid.Float:
		if v.Type != gjson.Number {
			return liquid.Null(), fmt.Errorf("Column %s was not a number. Was: %s", colName, v.Raw)
		}
		return liquid.FloatData(v.Float()), nil
	default:
		if v.Type == gjson.String {
			return liquid.StringData(v.String()), nil
		}
		return liquid.StringData(v.Raw), nil
	}
}

// DecodeRange decodes the records which start within [offset, offset+length).
// Every value which does not match its column's type is reported in the
// returned error.
func (d *Decoder) DecodeRange(path string, s *schema.Schema, offset int64, length int64) ([]dataframe.Column, error) {
	_, paths, err := d.columns(path)
	if err != nil {
		return nil, err
	}
	types := s.Types()
	if len(paths) != len(types) {
		return nil, fmt.Errorf("Schema has %d columns but %d were configured", len(types), len(paths))
	}
	names := s.ColumnNames()
	columns := make([]dataframe.Column, len(types))
	for i, t := range types {
		columns[i] = dataframe.NewColumn(t)
	}
	var rowErrors *multierror.Error
	err = datasource.ScanRange(path, offset, length, func(start int64, line string) (bool, error) {
		if d.skip(line) {
			return true, nil
		}
		if !gjson.Valid(line) {
			rowErrors = multierror.Append(rowErrors, fmt.Errorf("Line at byte %d is not valid JSON", start))
			return true, nil
		}
		for i, v := range gjson.GetMany(line, paths...) {
			cell := liquid.Null()
			if v.Exists() && v.Type != gjson.Null {
				parsed, err := parseValue(names[i], types[i], v)
				if err != nil {
					rowErrors = multierror.Append(rowErrors, err)
				}
				cell = parsed
			}
			if err := columns[i].Append(cell); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if err := rowErrors.ErrorOrNil(); err != nil {
		return nil, err
	}
	return columns, nil
}
