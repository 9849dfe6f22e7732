package dsv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sif/liquid"
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/datasource"
	"github.com/go-sif/liquid/schema"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

const trips = `hack,passengers,distance,paid,note
a1,1,2.5,true,"first, trip"
b2,null,0.75,false,
c3,3,1,1,third
# a comment
d4,2,4.25,0,fourth
`

func writeFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "trips.csv")
	require.Nil(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func createTestDecoder() *Decoder {
	return CreateDecoder(&DecoderConf{
		HeaderLines: 1,
		Comment:     '#',
		NilValue:    "null",
	})
}

func TestDSVInferSchema(t *testing.T) {
	path := writeFile(t, trips)
	s, err := createTestDecoder().InferSchema(path)
	require.Nil(t, err)
	require.Equal(t, "SIFBS", s.String())
	require.Equal(t, []string{"hack", "passengers", "distance", "paid", "note"}, s.ColumnNames())
}

func TestDSVDecode(t *testing.T) {
	path := writeFile(t, trips)
	df, err := dataframe.FromDecoder(createTestDecoder(), path, 0, int64(len(trips)))
	require.Nil(t, err)
	require.Equal(t, 4, df.NRows())

	cell, err := df.Get(4, 0)
	require.Nil(t, err)
	require.Equal(t, liquid.StringData("first, trip"), cell)
	cell, err = df.Get(1, 1)
	require.Nil(t, err)
	require.True(t, cell.IsNull())
	cell, err = df.Get(4, 1)
	require.Nil(t, err)
	require.True(t, cell.IsNull())
	cell, err = df.Get(2, 2)
	require.Nil(t, err)
	require.Equal(t, liquid.FloatData(1), cell)
	cell, err = df.Get(3, 3)
	require.Nil(t, err)
	require.Equal(t, liquid.BoolData(false), cell)

	col, err := df.GetCol("passengers")
	require.Nil(t, err)
	require.Equal(t, 4, col.Len())
}

func TestDSVRangesPartitionFile(t *testing.T) {
	path := writeFile(t, trips)
	d := createTestDecoder()
	s, err := d.InferSchema(path)
	require.Nil(t, err)
	for numNodes := 1; numNodes <= 6; numNodes++ {
		var hacks []string
		for node := 1; node <= numNodes; node++ {
			offset, length := datasource.Split(int64(len(trips)), node, numNodes)
			columns, err := d.DecodeRange(path, s, offset, length)
			require.Nil(t, err)
			for i := 0; i < columns[0].Len(); i++ {
				cell, err := columns[0].Get(i)
				require.Nil(t, err)
				v, _ := cell.AsString()
				hacks = append(hacks, v)
			}
		}
		require.Equal(t, []string{"a1", "b2", "c3", "d4"}, hacks, "numNodes=%d", numNodes)
	}
}

func TestDSVReportsEveryBadValue(t *testing.T) {
	path := writeFile(t, "a,b\n1,2\nx,3\n4,y\n")
	d := CreateDecoder(&DecoderConf{HeaderLines: 1})
	s, err := d.InferSchema(path)
	require.Nil(t, err)
	require.Equal(t, "SS", s.String())

	// force integer columns so that the letters fail to parse
	s2 := schema.CreateSchema()
	require.Nil(t, s2.AddColumn(liquid.Int, "a"))
	require.Nil(t, s2.AddColumn(liquid.Int, "b"))
	_, err = d.DecodeRange(path, s2, 0, 100)
	require.NotNil(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	require.Len(t, merr.Errors, 2)
}
