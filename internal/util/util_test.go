package util

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeOperationRecoversPanic(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := SafeOperation("Join", func() error {
		panic(cause)
	})
	require.NotNil(t, err)
	perr, ok := err.(*PanicError)
	require.True(t, ok)
	require.Equal(t, "Join", perr.Op)
	require.ErrorIs(t, err, cause)
	require.Contains(t, perr.Trace, "TestSafeOperationRecoversPanic")
}

func TestSafeOperationPassesErrors(t *testing.T) {
	cause := fmt.Errorf("plain")
	require.Equal(t, cause, SafeOperation("Clone", func() error { return cause }))
	require.Nil(t, SafeOperation("Clone", func() error { return nil }))
}

func TestChunk(t *testing.T) {
	buf := make([]byte, 2*MaxChunkBytes+10)
	var sizes []int
	require.Nil(t, Chunk(buf, func(c []byte) error {
		sizes = append(sizes, len(c))
		return nil
	}))
	require.Equal(t, []int{MaxChunkBytes, MaxChunkBytes, 10}, sizes)
	require.Nil(t, Chunk(nil, func(c []byte) error {
		t.FailNow()
		return nil
	}))
}
