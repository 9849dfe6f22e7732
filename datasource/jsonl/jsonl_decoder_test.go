package jsonl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sif/liquid"
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/datasource"
	"github.com/stretchr/testify/require"
)

const people = `{"name": "Sean", "meta": {"index": 1, "first": "Sean", "last": "McIntyre"}, "score": 1.5, "active": true}
{"name": "Chris", "meta": {"index": 3, "first": "Chris", "last": "Dickson"}, "score": 2, "active": false}

{"name": "Phil", "meta": {"index": 2, "first": "Phil", "last": "Laliberté"}, "score": null}
{"name": "Fahd", "meta": {"index": 4, "first": "Fahd", "last": "Husain"}, "score": 4.25, "active": true, "extra": 1}
`

func writeFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "people.jsonl")
	require.Nil(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestJSONLInferSchema(t *testing.T) {
	path := writeFile(t, people)
	s, err := CreateDecoder(&DecoderConf{}).InferSchema(path)
	require.Nil(t, err)
	require.Equal(t, []string{"name", "meta", "score", "active"}, s.ColumnNames())
	require.Equal(t, "SSFB", s.String())
}

func TestJSONLGjsonPaths(t *testing.T) {
	path := writeFile(t, people)
	d := CreateDecoder(&DecoderConf{Columns: []string{"name", "meta.index", "meta.last"}})
	df, err := dataframe.FromDecoder(d, path, 0, int64(len(people)))
	require.Nil(t, err)
	require.Equal(t, 4, df.NRows())
	require.Equal(t, "SIS", df.Schema().String())
	cell, err := df.Get(1, 2)
	require.Nil(t, err)
	require.Equal(t, liquid.IntData(2), cell)
	cell, err = df.Get(2, 2)
	require.Nil(t, err)
	require.Equal(t, liquid.StringData("Laliberté"), cell)
}

func TestJSONLNullsAndMissing(t *testing.T) {
	path := writeFile(t, people)
	df, err := dataframe.FromDecoder(CreateDecoder(&DecoderConf{}), path, 0, int64(len(people)))
	require.Nil(t, err)
	score, err := df.Get(2, 2)
	require.Nil(t, err)
	require.True(t, score.IsNull())
	active, err := df.Get(3, 2)
	require.Nil(t, err)
	require.True(t, active.IsNull())
	score, err = df.Get(2, 1)
	require.Nil(t, err)
	require.Equal(t, liquid.FloatData(2), score)
	meta, err := df.Get(1, 0)
	require.Nil(t, err)
	v, ok := meta.AsString()
	require.True(t, ok)
	require.Contains(t, v, "McIntyre")
}

func TestJSONLRangesPartitionFile(t *testing.T) {
	path := writeFile(t, people)
	d := CreateDecoder(&DecoderConf{Columns: []string{"name"}})
	s, err := d.InferSchema(path)
	require.Nil(t, err)
	for numNodes := 1; numNodes <= 5; numNodes++ {
		var names []string
		for node := 1; node <= numNodes; node++ {
			offset, length := datasource.Split(int64(len(people)), node, numNodes)
			columns, err := d.DecodeRange(path, s, offset, length)
			require.Nil(t, err)
			for i := 0; i < columns[0].Len(); i++ {
				cell, err := columns[0].Get(i)
				require.Nil(t, err)
				v, _ := cell.AsString()
				names = append(names, v)
			}
		}
		require.Equal(t, []string{"Sean", "Chris", "Phil", "Fahd"}, names, "numNodes=%d", numNodes)
	}
}

func TestJSONLTypeErrors(t *testing.T) {
	path := writeFile(t, "{\"a\": 1}\n{\"a\": \"x\"}\n{\"a\": true}\n")
	d := CreateDecoder(&DecoderConf{})
	s, err := d.InferSchema(path)
	require.Nil(t, err)
	require.Equal(t, "S", s.String())
	columns, err := d.DecodeRange(path, s, 0, -1)
	require.Nil(t, err)
	cell, err := columns[0].Get(0)
	require.Nil(t, err)
	require.Equal(t, liquid.StringData("1"), cell)
}
