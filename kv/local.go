package kv

import (
	"context"
	"sync"

	"github.com/go-sif/liquid/dataframe"
	errors "github.com/go-sif/liquid/errors"
)

// LocalCluster creates numNodes in-process Stores which share one partition
// map and deliver blobs to each other's Mailboxes directly. It lets a whole
// cluster run inside a single process, e.g. in tests.
func LocalCluster(numNodes int) []Store {
	shared := &localShared{
		partitions: make(map[Key]*dataframe.DataFrame),
		mailboxes:  make([]*Mailbox, numNodes),
	}
	stores := make([]Store, numNodes)
	for i := range stores {
		shared.mailboxes[i] = NewMailbox(numNodes, DefaultMailboxCapacity)
		stores[i] = &localStore{id: i + 1, shared: shared}
	}
	return stores
}

type localShared struct {
	lock       sync.RWMutex
	partitions map[Key]*dataframe.DataFrame
	mailboxes  []*Mailbox
}

type localStore struct {
	id     int
	shared *localShared
}

func (s *localStore) NodeID() int {
	return s.id
}

func (s *localStore) NumNodes() int {
	return len(s.shared.mailboxes)
}

func (s *localStore) Get(ctx context.Context, key Key) (dataframe.Accessible, error) {
	s.shared.lock.RLock()
	defer s.shared.lock.RUnlock()
	df, ok := s.shared.partitions[key]
	if !ok {
		return nil, errors.PartitionNotFoundError{Namespace: key.Namespace, NodeID: key.NodeID}
	}
	return df, nil
}

func (s *localStore) Put(ctx context.Context, key Key, df *dataframe.DataFrame) error {
	s.shared.lock.Lock()
	defer s.shared.lock.Unlock()
	s.shared.partitions[key] = df
	return nil
}

func (s *localStore) SendBlob(ctx context.Context, target int, data []byte) error {
	if target < 1 || target > s.NumNodes() {
		return errors.NodeIndexOutOfBoundsError{NodeID: target, NumNodes: s.NumNodes()}
	}
	return s.shared.mailboxes[target-1].Deliver(ctx, Blob{Sender: s.id, Data: data})
}

func (s *localStore) RecvBlob(ctx context.Context, sender int) (Blob, error) {
	return s.shared.mailboxes[s.id-1].Receive(ctx, sender)
}
