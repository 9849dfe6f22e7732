package kv

import (
	"context"

	errors "github.com/go-sif/liquid/errors"
)

// DefaultMailboxCapacity is the number of undelivered blobs a Mailbox buffers
// per sender before SendBlob blocks
const DefaultMailboxCapacity = 2

// Mailbox buffers inbound blobs for one node, with one FIFO slot per sender.
// Keeping senders apart means a broadcast from node 1 can never be consumed
// by a receive waiting on node k+1.
type Mailbox struct {
	slots []chan Blob
}

// NewMailbox creates a Mailbox for a cluster of numNodes nodes
func NewMailbox(numNodes int, capacity int) *Mailbox {
	if capacity < 1 {
		capacity = DefaultMailboxCapacity
	}
	slots := make([]chan Blob, numNodes)
	for i := range slots {
		slots[i] = make(chan Blob, capacity)
	}
	return &Mailbox{slots: slots}
}

func (m *Mailbox) slot(sender int) (chan Blob, error) {
	if sender < 1 || sender > len(m.slots) {
		return nil, errors.NodeIndexOutOfBoundsError{NodeID: sender, NumNodes: len(m.slots)}
	}
	return m.slots[sender-1], nil
}

// Deliver enqueues a blob, blocking while the sender's slot is full
func (m *Mailbox) Deliver(ctx context.Context, b Blob) error {
	slot, err := m.slot(b.Sender)
	if err != nil {
		return err
	}
	select {
	case slot <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive dequeues the oldest blob from sender, blocking until one arrives
func (m *Mailbox) Receive(ctx context.Context, sender int) (Blob, error) {
	slot, err := m.slot(sender)
	if err != nil {
		return Blob{}, err
	}
	select {
	case b := <-slot:
		return b, nil
	case <-ctx.Done():
		return Blob{}, ctx.Err()
	}
}

// Pending returns the number of buffered blobs from sender
func (m *Mailbox) Pending(sender int) int {
	slot, err := m.slot(sender)
	if err != nil {
		return 0
	}
	return len(slot)
}
