package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/docker/docker/pkg/locker"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/liquid/codec"
	"github.com/go-sif/liquid/dataframe"
	errors "github.com/go-sif/liquid/errors"
	"github.com/go-sif/liquid/internal/pcache"
	"github.com/go-sif/liquid/internal/stats"
	"github.com/go-sif/liquid/kv"
	uuid "github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// MemberNode is a Node which holds partitions and takes part in reductions.
// Once started, it implements kv.Store over gRPC: partitions owned by other
// Members are streamed from their owner on first access and held in an LRU
// cache, and blobs are delivered to the target's mailbox.
type MemberNode struct {
	id             string
	opts           *NodeOptions
	logger         log.Logger
	metrics        *memberMetrics
	mailbox        *kv.Mailbox
	partitionCodec codec.Codec[*dataframe.DataFrame]
	partitionLock  sync.RWMutex
	partitions     map[string]*dataframe.DataFrame
	remote         pcache.PartitionCache
	fetchLocks     *locker.Locker
	lifecycleLock  sync.Mutex
	server         *grpc.Server
	addr           net.Addr
	done           chan struct{}
	peerLock       sync.RWMutex
	nodeID         int
	conns          []*grpc.ClientConn
	tracker        *stats.RoundStatistics
}

var _ Node = &MemberNode{}
var _ kv.Store = &MemberNode{}

// CreateMember is a factory for Members
func CreateMember(opts *NodeOptions) (*MemberNode, error) {
	opts = CloneNodeOptions(opts)
	if err := ensureDefaultNodeOptionsValues(opts); err != nil {
		return nil, err
	}
	// generate member ID
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", err)
	}
	partitionCodec := codec.Default[*dataframe.DataFrame]()
	remote, err := pcache.NewLRU(&pcache.LRUConfig{
		Size:               opts.PartitionCacheSize,
		CompressedFraction: 0.5,
		Codec:              partitionCodec,
	})
	if err != nil {
		return nil, err
	}
	return &MemberNode{
		id:             id.String(),
		opts:           opts,
		logger:         log.With(opts.Logger, "member", id.String()),
		metrics:        newMemberMetrics(opts.Registerer),
		mailbox:        kv.NewMailbox(opts.NumNodes, opts.BlobBufferSize),
		partitionCodec: partitionCodec,
		partitions:     make(map[string]*dataframe.DataFrame),
		remote:         remote,
		fetchLocks:     locker.New(),
		done:           make(chan struct{}),
	}, nil
}

// ID returns the unique id of this Member
func (m *MemberNode) ID() string {
	return m.id
}

// Start serves this Member's services, registers it with the Registrar and
// waits until every Member of the cluster has joined
func (m *MemberNode) Start(ctx context.Context) error {
	m.lifecycleLock.Lock()
	if m.addr != nil {
		m.lifecycleLock.Unlock()
		return fmt.Errorf("Member %s has already been started", m.id)
	}
	lis, err := net.Listen("tcp", m.opts.connectionString())
	if err != nil {
		m.lifecycleLock.Unlock()
		return fmt.Errorf("failed to listen: %w", err)
	}
	m.addr = lis.Addr()
	m.server = grpc.NewServer()
	// register rpc handlers
	m.server.RegisterService(&blobServiceDesc, createBlobServer(m))
	m.server.RegisterService(&partitionServiceDesc, createPartitionServer(m))
	m.server.RegisterService(&lifecycleServiceDesc, createLifecycleServer(m, m.logger))
	m.server.RegisterService(&statsServiceDesc, createStatsSource(m))
	server := m.server
	go func() {
		defer close(m.done)
		if err := server.Serve(netutil.LimitListener(lis, m.opts.MaxConnections)); err != nil {
			level.Error(m.logger).Log("msg", "member stopped serving", "err", err)
		}
	}()
	m.lifecycleLock.Unlock()

	level.Info(m.logger).Log("msg", "starting liquid member", "address", lis.Addr().String())
	if err := m.join(ctx); err != nil {
		m.Stop()
		return err
	}
	return nil
}

// join registers with the Registrar, then dials every other Member
func (m *MemberNode) join(ctx context.Context) error {
	conn, err := grpc.DialContext(ctx, m.opts.registrarConnectionString(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("fail to dial: %w", err)
	}
	defer conn.Close()
	res, err := m.register(ctx, conn)
	if err != nil {
		return err
	}
	nodeID := int(res.GetFields()["node_id"].GetNumberValue())
	numNodes := int(res.GetFields()["num_nodes"].GetNumberValue())
	if numNodes != m.opts.NumNodes {
		return fmt.Errorf("Registrar expects %d members, but this member was configured for %d", numNodes, m.opts.NumNodes)
	}
	level.Debug(m.logger).Log("msg", "registered with registrar", "node", nodeID)

	waitCtx, cancel := context.WithTimeout(ctx, m.opts.JoinTimeout)
	defer cancel()
	req, err := structpb.NewStruct(map[string]interface{}{"id": m.id})
	if err != nil {
		return err
	}
	peersRes := new(structpb.Struct)
	if err := conn.Invoke(waitCtx, fullMethod(registrarServiceName, "Peers"), req, peersRes); err != nil {
		return fmt.Errorf("waiting for %d members to join: %w", numNodes, err)
	}
	peers := parsePeers(peersRes)
	if len(peers) != numNodes {
		return fmt.Errorf("Registrar listed %d members, expected %d", len(peers), numNodes)
	}
	conns := make([]*grpc.ClientConn, numNodes)
	for _, p := range peers {
		if p.NodeID == nodeID {
			continue
		}
		c, err := grpc.Dial(p.address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			closeGRPCConnections(conns)
			return fmt.Errorf("fail to dial node %d: %w", p.NodeID, err)
		}
		conns[p.NodeID-1] = c
	}
	m.peerLock.Lock()
	m.nodeID, m.conns = nodeID, conns
	m.peerLock.Unlock()
	level.Info(m.logger).Log("msg", "joined cluster", "node", nodeID, "nodes", numNodes)
	return nil
}

// register retries registration with the Registrar, at one second intervals,
// for as long as the Registrar is unreachable
func (m *MemberNode) register(ctx context.Context, conn *grpc.ClientConn) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"id":      m.id,
		"port":    m.addr.(*net.TCPAddr).Port,
		"node_id": m.opts.NodeID,
	})
	if err != nil {
		return nil, err
	}
	var lastErr error
	for retries := 0; retries < m.opts.JoinRetries; retries++ {
		rpcCtx, cancel := context.WithTimeout(ctx, m.opts.RPCTimeout)
		res := new(structpb.Struct)
		lastErr = conn.Invoke(rpcCtx, fullMethod(registrarServiceName, "Register"), req, res)
		cancel()
		if lastErr == nil {
			return res, nil
		}
		if code := status.Code(lastErr); code != codes.Unavailable && code != codes.DeadlineExceeded {
			return nil, lastErr
		}
		level.Debug(m.logger).Log("msg", "registrar unavailable", "attempt", retries+1, "err", lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			// Wait 1 second and try again
		}
	}
	return nil, fmt.Errorf("unable to register with %s: %w", m.opts.registrarConnectionString(), lastErr)
}

// Addr returns the address this Member serves on, or nil before Start
func (m *MemberNode) Addr() net.Addr {
	m.lifecycleLock.Lock()
	defer m.lifecycleLock.Unlock()
	return m.addr
}

// Wait blocks until this Member stops serving
func (m *MemberNode) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GracefulStop the Member, waiting for RPCs to finish
func (m *MemberNode) GracefulStop() error {
	m.lifecycleLock.Lock()
	defer m.lifecycleLock.Unlock()
	if m.server != nil {
		m.server.GracefulStop()
		m.server = nil
	}
	return m.closeConnections()
}

// Stop the Member immediately
func (m *MemberNode) Stop() error {
	m.lifecycleLock.Lock()
	defer m.lifecycleLock.Unlock()
	if m.server != nil {
		m.server.Stop()
		m.server = nil
	}
	return m.closeConnections()
}

func (m *MemberNode) closeConnections() error {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	err := closeGRPCConnections(m.conns)
	m.conns = nil
	return err
}

// TrackStatistics makes this Member report the given round statistics
// through its stats service
func (m *MemberNode) TrackStatistics(tracker *stats.RoundStatistics) {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	m.tracker = tracker
}

func (m *MemberNode) statistics() *stats.RoundStatistics {
	m.peerLock.RLock()
	defer m.peerLock.RUnlock()
	return m.tracker
}

// FetchStatistics asks the Member with the given node id for its statistics
func (m *MemberNode) FetchStatistics(ctx context.Context, nodeID int) (*structpb.Struct, error) {
	if nodeID == m.NodeID() {
		return createStatsSource(m).ProvideStatistics(ctx, &emptypb.Empty{})
	}
	conn, err := m.conn(nodeID)
	if err != nil {
		return nil, err
	}
	rpcCtx, cancel := context.WithTimeout(ctx, m.opts.RPCTimeout)
	defer cancel()
	res := new(structpb.Struct)
	if err := conn.Invoke(rpcCtx, fullMethod(statsServiceName, "ProvideStatistics"), &emptypb.Empty{}, res); err != nil {
		return nil, err
	}
	return res, nil
}

// NodeID returns the id assigned to this Member by the Registrar, or 0 before
// it has joined
func (m *MemberNode) NodeID() int {
	m.peerLock.RLock()
	defer m.peerLock.RUnlock()
	return m.nodeID
}

// NumNodes returns the number of Members in the cluster
func (m *MemberNode) NumNodes() int {
	return m.opts.NumNodes
}

func (m *MemberNode) conn(nodeID int) (*grpc.ClientConn, error) {
	m.peerLock.RLock()
	defer m.peerLock.RUnlock()
	if nodeID < 1 || nodeID > m.opts.NumNodes {
		return nil, errors.NodeIndexOutOfBoundsError{NodeID: nodeID, NumNodes: m.opts.NumNodes}
	}
	if nodeID > len(m.conns) || m.conns[nodeID-1] == nil {
		return nil, fmt.Errorf("Member %s has no connection to node %d", m.id, nodeID)
	}
	return m.conns[nodeID-1], nil
}

func (m *MemberNode) localPartition(namespace string) (*dataframe.DataFrame, bool) {
	m.partitionLock.RLock()
	defer m.partitionLock.RUnlock()
	df, ok := m.partitions[namespace]
	return df, ok
}

// Get returns the partition stored under key, fetching it from its owner if
// it belongs to another Member
func (m *MemberNode) Get(ctx context.Context, key kv.Key) (dataframe.Accessible, error) {
	if key.NodeID < 1 || key.NodeID > m.opts.NumNodes {
		return nil, errors.NodeIndexOutOfBoundsError{NodeID: key.NodeID, NumNodes: m.opts.NumNodes}
	}
	if key.NodeID == m.NodeID() {
		df, ok := m.localPartition(key.Namespace)
		if !ok {
			return nil, errors.PartitionNotFoundError{Namespace: key.Namespace, NodeID: key.NodeID}
		}
		return df, nil
	}
	return m.fetchRemote(ctx, key)
}

// fetchRemote streams a partition from its owner. Concurrent lookups of the
// same key share a single transfer.
func (m *MemberNode) fetchRemote(ctx context.Context, key kv.Key) (dataframe.Accessible, error) {
	name := key.String()
	m.fetchLocks.Lock(name)
	defer m.fetchLocks.Unlock(name)
	df, ok, err := m.remote.Get(name)
	if err != nil {
		return nil, err
	}
	if ok {
		m.metrics.partitionFetches.WithLabelValues("true").Inc()
		return df, nil
	}
	conn, err := m.conn(key.NodeID)
	if err != nil {
		return nil, err
	}
	data, err := fetchPartitionStream(ctx, conn, key.Namespace)
	if status.Code(err) == codes.NotFound {
		return nil, errors.PartitionNotFoundError{Namespace: key.Namespace, NodeID: key.NodeID}
	} else if err != nil {
		return nil, err
	}
	df, err = m.partitionCodec.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := m.remote.Add(name, df); err != nil {
		return nil, err
	}
	m.metrics.partitionFetches.WithLabelValues("false").Inc()
	level.Debug(m.logger).Log("msg", "fetched partition", "key", name, "bytes", len(data))
	return df, nil
}

// Put stores a partition owned by this Member
func (m *MemberNode) Put(ctx context.Context, key kv.Key, df *dataframe.DataFrame) error {
	if self := m.NodeID(); key.NodeID != self {
		return fmt.Errorf("node %d cannot store partition %s, which belongs to node %d", self, key, key.NodeID)
	}
	m.partitionLock.Lock()
	defer m.partitionLock.Unlock()
	m.partitions[key.Namespace] = df
	return nil
}

// SendBlob streams data to the mailbox of the target Member
func (m *MemberNode) SendBlob(ctx context.Context, target int, data []byte) error {
	self := m.NodeID()
	if target == self {
		return m.mailbox.Deliver(ctx, kv.Blob{Sender: self, Data: data})
	}
	conn, err := m.conn(target)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := sendBlobStream(ctx, conn, self, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("sending blob to node %d: %w", target, err)
	}
	m.metrics.blobSendDuration.Observe(time.Since(start).Seconds())
	m.metrics.blobsSent.Inc()
	m.metrics.blobBytes.WithLabelValues("sent").Add(float64(len(data)))
	return nil
}

// RecvBlob blocks until a blob from sender arrives
func (m *MemberNode) RecvBlob(ctx context.Context, sender int) (kv.Blob, error) {
	return m.mailbox.Receive(ctx, sender)
}

// closeGRPCConnections closes every open connection, collecting any errors
func closeGRPCConnections(conns []*grpc.ClientConn) error {
	var errs *multierror.Error
	for _, conn := range conns {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
