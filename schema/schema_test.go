package schema

import (
	"testing"

	"github.com/go-sif/liquid"
	errors "github.com/go-sif/liquid/errors"
	"github.com/stretchr/testify/require"
)

func TestSchemaEqualityBasic(t *testing.T) {
	schema1 := CreateSchema()
	require.Nil(t, schema1.AddColumn(liquid.Int, "col1"))
	require.Nil(t, schema1.AddColumn(liquid.String, "col2"))
	require.Nil(t, schema1.AddColumn(liquid.Float, "col3"))

	schema2 := CreateSchema()
	require.Nil(t, schema2.AddColumn(liquid.Int, "col1"))
	require.Nil(t, schema2.AddColumn(liquid.String, "col2"))
	require.Nil(t, schema2.AddColumn(liquid.Float, "col3"))

	require.Nil(t, schema1.Equals(schema2))
}

func TestSchemaEqualityDifferentLength(t *testing.T) {
	schema1, err := FromString("IIF")
	require.Nil(t, err)
	schema2, err := FromString("IIFB")
	require.Nil(t, err)
	require.NotNil(t, schema1.Equals(schema2))
}

func TestSchemaEqualityOrder(t *testing.T) {
	schema1, err := FromString("IFS")
	require.Nil(t, err)
	schema2, err := FromString("ISF")
	require.Nil(t, err)
	require.NotNil(t, schema1.Equals(schema2))
}

func TestFromTypes(t *testing.T) {
	s := FromTypes([]liquid.DataType{})
	require.Equal(t, 0, s.Width())
	types := []liquid.DataType{liquid.Int, liquid.Int, liquid.Float, liquid.Bool, liquid.String}
	s = FromTypes(types)
	require.Equal(t, len(types), s.Width())
	for idx, dataType := range types {
		colType, err := s.ColType(idx)
		require.Nil(t, err)
		require.Equal(t, dataType, colType)
	}
}

func TestFromString(t *testing.T) {
	s, err := FromString("")
	require.Nil(t, err)
	require.Equal(t, 0, s.Width())
	s, err = FromString("IIFBS")
	require.Nil(t, err)
	require.True(t, s.HasTypes([]liquid.DataType{liquid.Int, liquid.Int, liquid.Float, liquid.Bool, liquid.String}))
	require.Equal(t, "IIFBS", s.String())
	_, err = FromString("IX")
	require.NotNil(t, err)
}

func TestColumnGettersSetters(t *testing.T) {
	s := CreateSchema()
	require.Equal(t, 0, s.Width())
	require.Nil(t, s.AddColumn(liquid.String, ""))
	require.Equal(t, 1, s.Width())
	require.Nil(t, s.AddColumn(liquid.Int, "foo"))
	require.Equal(t, 2, s.Width())
	idx, ok := s.ColIdx("foo")
	require.True(t, ok)
	require.Equal(t, 1, idx)
	name, err := s.ColName(0)
	require.Nil(t, err)
	require.Equal(t, "", name)
	_, ok = s.ColIdx("")
	require.False(t, ok)
	_, err = s.ColType(2)
	require.IsType(t, errors.ColIndexOutOfBoundsError{}, err)
	_, err = s.ColName(-1)
	require.IsType(t, errors.ColIndexOutOfBoundsError{}, err)
}

func TestAddColumnTwiceKeepsFirst(t *testing.T) {
	s := CreateSchema()
	require.Nil(t, s.AddColumn(liquid.Int, "x"))
	err := s.AddColumn(liquid.Float, "x")
	require.Equal(t, errors.NameAlreadyExistsError{Name: "x"}, err)
	require.Equal(t, 1, s.Width())
	colType, err := s.ColType(0)
	require.Nil(t, err)
	require.Equal(t, liquid.Int, colType)
	// unnamed columns never collide
	require.Nil(t, s.AddColumn(liquid.Bool, ""))
	require.Nil(t, s.AddColumn(liquid.Bool, ""))
	require.Equal(t, 3, s.Width())
}

func TestRowNames(t *testing.T) {
	s := CreateSchema()
	require.Nil(t, s.AddRowName("first"))
	require.Nil(t, s.AddRowName(""))
	require.IsType(t, errors.NameAlreadyExistsError{}, s.AddRowName("first"))
	idx, ok := s.RowIdx("first")
	require.True(t, ok)
	require.Equal(t, 0, idx)
	clone := s.CloneColumns()
	require.Empty(t, clone.RowNames())
	require.Len(t, s.Clone().RowNames(), 2)
}
