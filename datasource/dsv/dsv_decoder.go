package dsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/go-sif/liquid"
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/datasource"
	"github.com/go-sif/liquid/schema"
	"github.com/hashicorp/go-multierror"
)

// DecoderConf configures a DSV Decoder
type DecoderConf struct {
	HeaderLines int    // The number of lines to ignore from the beginning of the file. The first of them names the columns. Defaults to 0.
	Delimiter   rune   // The delimiter separating columns in the file. Defaults to ,
	Comment     rune   // Lines beginning with the comment character are ignored. Cannot be equal to the Delimiter. Defaults to no comment character.
	NilValue    string // A special string which represents nil values in the dataset. Defaults to "" (the empty string).
}

// Decoder produces typed columns from DSV data
type Decoder struct {
	conf *DecoderConf
}

// CreateDecoder returns a new DSV Decoder
func CreateDecoder(conf *DecoderConf) *Decoder {
	if conf.Delimiter == 0 {
		conf.Delimiter = ','
	}
	return &Decoder{conf: conf}
}

func (d *Decoder) isNil(colVal string) bool {
	return len(colVal) == 0 || colVal == d.conf.NilValue
}

func (d *Decoder) isComment(line string) bool {
	return d.conf.Comment != 0 && strings.HasPrefix(line, string(d.conf.Comment))
}

// readFields splits a single line into its fields
func (d *Decoder) readFields(line string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.Comma = d.conf.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	fields, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	return fields, err
}

// header returns the column names (if any) and the byte offset at which data begins
func (d *Decoder) header(path string) (names []string, dataStart int64, err error) {
	if d.conf.HeaderLines == 0 {
		return nil, 0, nil
	}
	seen := 0
	err = datasource.ScanHead(path, d.conf.HeaderLines, func(start int64, line string) (bool, error) {
		if seen == 0 {
			fields, err := d.readFields(line)
			if err != nil {
				return false, err
			}
			names = fields
		}
		seen++
		dataStart = start + int64(len(line)) + 1
		return true, nil
	})
	return
}

// InferSchema infers column types from the first lines of the file following
// the header. Column names are taken from the first header line, if any.
func (d *Decoder) InferSchema(path string) (*schema.Schema, error) {
	names, dataStart, err := d.header(path)
	if err != nil {
		return nil, err
	}
	var in datasource.Inferrer
	in.Touch(len(names))
	seen := 0
	err = datasource.ScanRange(path, dataStart, -1, func(start int64, line string) (bool, error) {
		if len(line) == 0 || d.isComment(line) {
			return true, nil
		}
		fields, err := d.readFields(line)
		if err != nil {
			return false, err
		}
		in.Touch(len(fields))
		for i, colVal := range fields {
			if !d.isNil(colVal) {
				in.Observe(i, datasource.InferType(colVal))
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

// DecodeRange decodes the records which start within [offset, offset+length).
// Every value which cannot be parsed as its column's type is reported in the
// returned error.
func (d *Decoder) DecodeRange(path string, s *schema.Schema, offset int64, length int64) ([]dataframe.Column, error) {
	_, dataStart, err := d.header(path)
	if err != nil {
		return nil, err
	}
	types := s.Types()
	columns := make([]dataframe.Column, len(types))
	for i, t := range types {
		columns[i] = dataframe.NewColumn(t)
	}
	var rowErrors *multierror.Error
	err = datasource.ScanRange(path, offset, length, func(start int64, line string) (bool, error) {
		if start < dataStart || len(line) == 0 || d.isComment(line) {
			return true, nil
		}
		fields, err := d.readFields(line)
		if err != nil {
			return false, err
		}
		if len(fields) > len(types) {
			rowErrors = multierror.Append(rowErrors, fmt.Errorf("Line at byte %d has %d fields, expected %d", start, len(fields), len(types)))
		}
		for i, col := range columns {
			if i >= len(fields) || d.isNil(fields[i]) {
				if err := col.Append(liquid.Null()); err != nil {
					return false, err
				}
				continue
			}
			cell, err := datasource.Parse(types[i], fields[i])
			if err != nil {
				rowErrors = multierror.Append(rowErrors, fmt.Errorf("Line at byte %d, column %d: %w", start, i, err))
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
	if err := rowErrors.ErrorOrNil(); err != nil {
		return nil, err
	}
	return columns, nil
}
