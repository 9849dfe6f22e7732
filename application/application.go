package application

import (
	"context"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/liquid/dataframe"
	"github.com/go-sif/liquid/datasource"
	"github.com/go-sif/liquid/datasource/sor"
	errors "github.com/go-sif/liquid/errors"
	"github.com/go-sif/liquid/internal/stats"
	"github.com/go-sif/liquid/kv"
)

// Topology determines how partial results are combined across nodes
type Topology int

const (
	// Chain passes partial results from node N down to node 1, one hop at a
	// time. Every node holds at most two results at once.
	Chain Topology = iota
	// Star sends every partial result straight to node 1, which joins them in
	// node order. Node 1 may hold every result at once.
	Star
)

// String returns a textual representation of this Topology
func (t Topology) String() string {
	if t == Star {
		return "star"
	}
	return "chain"
}

// Options configures an Application
type Options struct {
	Decoder     dataframe.Decoder // Decoder for source files. Defaults to a SoR decoder.
	Logger      log.Logger        // Defaults to a no-op logger
	RecvTimeout time.Duration     // Maximum wait for a blob from another node. Defaults to 0, waiting forever.
	Topology    Topology          // Defaults to Chain
	Threads     int               // Goroutines per local map. Defaults to 0, one per available processor.
}

func ensureDefaultOptionsValues(opts *Options) {
	if opts.Decoder == nil {
		opts.Decoder = sor.NewDecoder()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
}

// Application is one node's handle on a chain-reduce computation
type Application struct {
	nodeID   int
	numNodes int
	store    kv.Store
	opts     *Options
	stats    *stats.RoundStatistics
	logger   log.Logger
}

// New creates an Application over store. The node's identity is taken from
// the store.
func New(store kv.Store, opts *Options) (*Application, error) {
	if opts == nil {
		opts = &Options{}
	} else {
		clone := *opts
		opts = &clone
	}
	ensureDefaultOptionsValues(opts)
	nodeID, numNodes := store.NodeID(), store.NumNodes()
	if nodeID < 1 || nodeID > numNodes {
		return nil, errors.NodeIndexOutOfBoundsError{NodeID: nodeID, NumNodes: numNodes}
	}
	return &Application{
		nodeID:   nodeID,
		numNodes: numNodes,
		store:    store,
		opts:     opts,
		stats:    stats.NewRoundStatistics(),
		logger:   log.With(opts.Logger, "node", nodeID),
	}, nil
}

// NodeID returns the id of this node, in [1, NumNodes()]
func (a *Application) NodeID() int {
	return a.nodeID
}

// NumNodes returns the number of nodes in the cluster
func (a *Application) NumNodes() int {
	return a.numNodes
}

// Store returns the partition store this Application runs over
func (a *Application) Store() kv.Store {
	return a.store
}

// Stats returns statistics about the rounds this node has run
func (a *Application) Stats() *stats.RoundStatistics {
	return a.stats
}

func (a *Application) key(namespace string) kv.Key {
	return kv.Key{Namespace: namespace, NodeID: a.nodeID}
}

// LoadPartition decodes the records which start within [offset, offset+length)
// of the file at path, and stores them as this node's partition of namespace
func (a *Application) LoadPartition(ctx context.Context, namespace string, path string, offset int64, length int64) error {
	df, err := dataframe.FromDecoder(a.opts.Decoder, path, offset, length)
	if err != nil {
		return err
	}
	level.Debug(a.logger).Log("msg", "loaded partition", "namespace", namespace, "path", path, "offset", offset, "length", length, "rows", df.NRows())
	return a.store.Put(ctx, a.key(namespace), df)
}

// FromFile splits the file at path into one byte range per node and loads
// this node's range as its partition of namespace. The last node's range
// includes any remainder.
func (a *Application) FromFile(ctx context.Context, namespace string, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	offset, length := datasource.Split(info.Size(), a.nodeID, a.numNodes)
	return a.LoadPartition(ctx, namespace, path, offset, length)
}

// recv waits for a blob from sender, for at most the configured RecvTimeout
func (a *Application) recv(ctx context.Context, sender int) (kv.Blob, error) {
	if a.opts.RecvTimeout <= 0 {
		return a.store.RecvBlob(ctx, sender)
	}
	waitCtx, cancel := context.WithTimeout(ctx, a.opts.RecvTimeout)
	defer cancel()
	blob, err := a.store.RecvBlob(waitCtx, sender)
	if err != nil && ctx.Err() == nil && waitCtx.Err() == context.DeadlineExceeded {
		return blob, errors.NeighborUnreachableError{NodeID: sender, Wait: a.opts.RecvTimeout}
	}
	return blob, err
}
