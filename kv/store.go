// Package kv defines the distributed partition store which the chain-reduce
// coordinator runs over, along with an in-process implementation of it.
package kv

import (
	"context"
	"fmt"

	"github.com/go-sif/liquid/dataframe"
)

// Key identifies one partition of a distributed DataFrame. Node ids are
// 1-based and dense over [1, NumNodes].
type Key struct {
	Namespace string
	NodeID    int
}

// String returns a textual representation of this Key
func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Namespace, k.NodeID)
}

// Blob is one opaque payload delivered by another node
type Blob struct {
	Sender int
	Data   []byte
}

// Store is a node's view of the distributed partition store
type Store interface {
	// NodeID returns the id of this node, in [1, NumNodes()]
	NodeID() int
	// NumNodes returns the number of nodes in the cluster
	NumNodes() int
	// Get returns the DataFrame stored under key, or a PartitionNotFoundError
	Get(ctx context.Context, key Key) (dataframe.Accessible, error)
	// Put stores a DataFrame under key. A node only writes its own keys.
	Put(ctx context.Context, key Key, df *dataframe.DataFrame) error
	// SendBlob delivers data to the mailbox of the target node
	SendBlob(ctx context.Context, target int, data []byte) error
	// RecvBlob blocks until a blob sent by sender arrives. Blobs from a single
	// sender are received in the order they were sent.
	RecvBlob(ctx context.Context, sender int) (Blob, error)
}
