// Package sor decodes schema-on-read (SoR) files. Each line of a SoR file is
// a row of fields wrapped in angle brackets, e.g.
//
//	<1> <0.5> <"hello world"> <>
//
// An empty field (<>) is null. Quoted fields are always Strings. Values which
// cannot be represented in their column's inferred type are null.
package sor

import (
	"strings"

	"github.com/go-sif/liquid"
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/datasource"
	"github.com/go-sif/liquid/schema"
)

// Decoder decodes SoR files
type Decoder struct{}

// NewDecoder returns a SoR Decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

type field struct {
	value  string
	quoted bool
	null   bool
}

// parseLine splits a SoR line into its fields. ok is false if the line is not
// a well-formed SoR row.
func parseLine(line string) (fields []field, ok bool) {
	rest := strings.TrimSpace(line)
	for len(rest) > 0 {
		if rest[0] != '<' {
			return nil, false
		}
		rest = strings.TrimLeft(rest[1:], " \t")
		var f field
		if strings.HasPrefix(rest, "\"") {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				return nil, false
			}
			f = field{value: rest[1 : end+1], quoted: true}
			rest = strings.TrimLeft(rest[end+2:], " \t")
			if !strings.HasPrefix(rest, ">") {
				return nil, false
			}
			rest = rest[1:]
		} else {
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return nil, false
			}
			value := strings.TrimSpace(rest[:end])
			f = field{value: value, null: len(value) == 0}
			rest = rest[end+1:]
		}
		fields = append(fields, f)
		rest = strings.TrimLeft(rest, " \t")
	}
	return fields, true
}

// InferSchema examines the first lines of a SoR file. The widest row
// determines the number of columns.
func (d *Decoder) InferSchema(path string) (*schema.Schema, error) {
	var in datasource.Inferrer
	err := datasource.ScanHead(path, datasource.InferenceLines, func(start int64, line string) (bool, error) {
		fields, ok := parseLine(line)
		if !ok {
			return true, nil
		}
		in.Touch(len(fields))
		for i, f := range fields {
			switch {
			case f.null:
			case f.quoted:
				in.Observe(i, liquid.String)
			default:
				in.Observe(i, datasource.InferType(f.value))
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return in.Schema(nil)
}

// DecodeRange decodes the SoR rows which start within [offset, offset+length).
// Malformed lines and blank lines are skipped, missing trailing fields are null
// and surplus fields are ignored.
func (d *Decoder) DecodeRange(path string, s *schema.Schema, offset int64, length int64) ([]dataframe.Column, error) {
	types := s.Types()
	columns := make([]dataframe.Column, len(types))
	for i, t := range types {
		columns[i] = dataframe.NewColumn(t)
	}
	err := datasource.ScanRange(path, offset, length, func(start int64, line string) (bool, error) {
		fields, ok := parseLine(line)
		if !ok || len(fields) == 0 {
			return true, nil
		}
		for i, col := range columns {
			cell := liquid.Null()
			if i < len(fields) && !fields[i].null {
				f := fields[i]
				parsed, err := datasource.Parse(types[i], f.value)
				if err == nil && (!f.quoted || types[i] == liquid.String) {
					cell = parsed
				}
			}
			if err := col.Append(cell); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}
