package kv

import (
	"context"
	"testing"
	"time"

	"github.com/go-sif/liquid/dataframe"
	errors "github.com/go-sif/liquid/errors"
	"github.com/go-sif/liquid/schema"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLocalClusterPartitions(t *testing.T) {
	stores := LocalCluster(3)
	require.Len(t, stores, 3)
	for i, s := range stores {
		require.Equal(t, i+1, s.NodeID())
		require.Equal(t, 3, s.NumNodes())
	}
	ctx := context.Background()
	key := Key{Namespace: "data", NodeID: 2}
	_, err := stores[0].Get(ctx, key)
	require.Equal(t, errors.PartitionNotFoundError{Namespace: "data", NodeID: 2}, err)

	sch, err := schema.FromString("IB")
	require.Nil(t, err)
	require.Nil(t, stores[1].Put(ctx, key, dataframe.New(sch)))
	df, err := stores[0].Get(ctx, key)
	require.Nil(t, err)
	require.Equal(t, 2, df.NCols())
	require.Equal(t, "data/2", key.String())
}

func TestBlobsArePerSenderFIFO(t *testing.T) {
	defer goleak.VerifyNone(t)
	stores := LocalCluster(3)
	ctx := context.Background()
	require.Nil(t, stores[0].SendBlob(ctx, 2, []byte("from 1")))
	require.Nil(t, stores[2].SendBlob(ctx, 2, []byte("from 3 a")))
	require.Nil(t, stores[2].SendBlob(ctx, 2, []byte("from 3 b")))

	b, err := stores[1].RecvBlob(ctx, 3)
	require.Nil(t, err)
	require.Equal(t, Blob{Sender: 3, Data: []byte("from 3 a")}, b)
	b, err = stores[1].RecvBlob(ctx, 3)
	require.Nil(t, err)
	require.Equal(t, "from 3 b", string(b.Data))
	b, err = stores[1].RecvBlob(ctx, 1)
	require.Nil(t, err)
	require.Equal(t, 1, b.Sender)
}

func TestRecvBlobHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	stores := LocalCluster(2)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := stores[0].RecvBlob(ctx, 2)
	require.Equal(t, context.DeadlineExceeded, err)
}

func TestBlobNodeBounds(t *testing.T) {
	stores := LocalCluster(2)
	ctx := context.Background()
	require.IsType(t, errors.NodeIndexOutOfBoundsError{}, stores[0].SendBlob(ctx, 3, nil))
	require.IsType(t, errors.NodeIndexOutOfBoundsError{}, stores[0].SendBlob(ctx, 0, nil))
	_, err := stores[0].RecvBlob(ctx, 5)
	require.IsType(t, errors.NodeIndexOutOfBoundsError{}, err)
}

func TestMailboxBlocksWhenFull(t *testing.T) {
	m := NewMailbox(2, 1)
	ctx := context.Background()
	require.Nil(t, m.Deliver(ctx, Blob{Sender: 1}))
	require.Equal(t, 1, m.Pending(1))
	ctx2, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.Equal(t, context.DeadlineExceeded, m.Deliver(ctx2, Blob{Sender: 1}))
	// other senders are unaffected
	require.Nil(t, m.Deliver(ctx, Blob{Sender: 2}))
}
