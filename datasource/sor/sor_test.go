package sor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sif/liquid"
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/datasource"
	"github.com/stretchr/testify/require"
)

const sample = `<1> <0> <1.5> <"hello world">
<0> <12> <2> <bye>
<1> <> <-3.25> <"x">
<> <7> <4> <"y">
not a sor line
<0><3><0.5><z>
`

func writeSample(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "sample.sor")
	require.Nil(t, os.WriteFile(path, []byte(sample), 0644))
	return path
}

func TestParseLine(t *testing.T) {
	fields, ok := parseLine(`  < 12 > <"a > b">  <>`)
	require.True(t, ok)
	require.Equal(t, []field{{value: "12"}, {value: "a > b", quoted: true}, {null: true}}, fields)
	_, ok = parseLine(`<1> 2`)
	require.False(t, ok)
	_, ok = parseLine(`<"unterminated>`)
	require.False(t, ok)
}

func TestInferSchema(t *testing.T) {
	path := writeSample(t)
	s, err := NewDecoder().InferSchema(path)
	require.Nil(t, err)
	require.Equal(t, "BIFS", s.String())
}

func TestDecodeWholeFile(t *testing.T) {
	path := writeSample(t)
	d := NewDecoder()
	df, err := dataframe.FromDecoder(d, path, 0, int64(len(sample)))
	require.Nil(t, err)
	require.Equal(t, 5, df.NRows())

	cell, err := df.Get(0, 0)
	require.Nil(t, err)
	require.Equal(t, liquid.BoolData(true), cell)
	cell, err = df.Get(1, 1)
	require.Nil(t, err)
	require.Equal(t, liquid.IntData(12), cell)
	cell, err = df.Get(1, 2)
	require.Nil(t, err)
	require.True(t, cell.IsNull())
	cell, err = df.Get(2, 1)
	require.Nil(t, err)
	require.Equal(t, liquid.FloatData(2), cell)
	cell, err = df.Get(3, 0)
	require.Nil(t, err)
	require.Equal(t, liquid.StringData("hello world"), cell)
	cell, err = df.Get(0, 3)
	require.Nil(t, err)
	require.True(t, cell.IsNull())
	cell, err = df.Get(3, 4)
	require.Nil(t, err)
	require.Equal(t, liquid.StringData("z"), cell)
}

func TestRangesPartitionFile(t *testing.T) {
	path := writeSample(t)
	d := NewDecoder()
	s, err := d.InferSchema(path)
	require.Nil(t, err)
	size := int64(len(sample))
	for numNodes := 1; numNodes <= 8; numNodes++ {
		var ints []liquid.Data
		for node := 1; node <= numNodes; node++ {
			offset, length := datasource.Split(size, node, numNodes)
			columns, err := d.DecodeRange(path, s, offset, length)
			require.Nil(t, err)
			for i := 0; i < columns[1].Len(); i++ {
				cell, err := columns[1].Get(i)
				require.Nil(t, err)
				ints = append(ints, cell)
			}
		}
		require.Equal(t, []liquid.Data{
			liquid.IntData(0), liquid.IntData(12), liquid.Null(), liquid.IntData(7), liquid.IntData(3),
		}, ints, "numNodes=%d", numNodes)
	}
}
