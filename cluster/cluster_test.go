package cluster

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/go-sif/liquid/dataframe"
	errors "github.com/go-sif/liquid/errors"
	"github.com/go-sif/liquid/internal/stats"
	"github.com/go-sif/liquid/kv"
	"github.com/go-sif/liquid/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// startCluster starts a Registrar and numNodes Members on localhost, each
// Member asking for the node id matching its position
func startCluster(t *testing.T, numNodes int, registerers []prometheus.Registerer) (*RegistrarNode, []*MemberNode) {
	opts := &NodeOptions{
		Host:          "127.0.0.1",
		RegistrarHost: "127.0.0.1",
		NumNodes:      numNodes,
		JoinTimeout:   10 * time.Second,
	}
	registrar, err := CreateRegistrar(opts)
	require.Nil(t, err)
	require.Nil(t, registrar.Start(context.Background()))
	t.Cleanup(func() { registrar.Stop() })
	opts.RegistrarPort = registrar.Addr().(*net.TCPAddr).Port

	members := make([]*MemberNode, numNodes)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range members {
		mopts := CloneNodeOptions(opts)
		mopts.NodeID = i + 1
		if registerers != nil {
			mopts.Registerer = registerers[i]
		}
		member, err := CreateMember(mopts)
		require.Nil(t, err)
		members[i] = member
		t.Cleanup(func() { member.Stop() })
		g.Go(func() error {
			return member.Start(ctx)
		})
	}
	require.Nil(t, g.Wait())
	return registrar, members
}

func createPartition(t *testing.T, n int) *dataframe.DataFrame {
	s, err := schema.FromString("IS")
	require.Nil(t, err)
	df := dataframe.New(s)
	row := df.NewRow()
	for i := 0; i < n; i++ {
		require.Nil(t, row.SetInt(0, int64(i)))
		require.Nil(t, row.SetString(1, "row"))
		require.Nil(t, df.AddRow(row))
	}
	return df
}

func TestEnsureDefaultNodeOptionsValues(t *testing.T) {
	require.NotNil(t, ensureDefaultNodeOptionsValues(&NodeOptions{RegistrarHost: "localhost"}))
	require.NotNil(t, ensureDefaultNodeOptionsValues(&NodeOptions{NumNodes: 2}))
	require.NotNil(t, ensureDefaultNodeOptionsValues(&NodeOptions{NumNodes: 2, RegistrarHost: "localhost", NodeID: 3}))

	opts := &NodeOptions{NumNodes: 2, RegistrarHost: "localhost"}
	require.Nil(t, ensureDefaultNodeOptionsValues(opts))
	require.Equal(t, "0.0.0.0", opts.Host)
	require.Equal(t, 1643, opts.RegistrarPort)
	require.Equal(t, 2, opts.BlobBufferSize)
	require.Equal(t, 5, opts.JoinRetries)
	require.Equal(t, 16, opts.PartitionCacheSize)
	require.NotNil(t, opts.Logger)
	require.Equal(t, "localhost:1643", opts.registrarConnectionString())

	clone := CloneNodeOptions(opts)
	require.Equal(t, opts, clone)
	require.NotSame(t, opts, clone)
}

func TestLoadNodeOptions(t *testing.T) {
	t.Setenv("LIQUID_REGISTRAR_HOST", "10.0.0.1")
	t.Setenv("LIQUID_NUM_NODES", "4")
	v := viper.New()
	v.Set("port", 1700)
	v.Set("join_timeout", "2s")
	v.Set("num_nodes", 3)
	opts, err := LoadNodeOptions(v)
	require.Nil(t, err)
	require.Equal(t, "10.0.0.1", opts.RegistrarHost)
	// explicitly set values win over the environment
	require.Equal(t, 3, opts.NumNodes)
	require.Equal(t, 1700, opts.Port)
	require.Equal(t, 2*time.Second, opts.JoinTimeout)
	require.Equal(t, 0, opts.NodeID)
}

func TestCreateNode(t *testing.T) {
	opts := &NodeOptions{Host: "127.0.0.1", RegistrarHost: "127.0.0.1", NumNodes: 1}

	t.Setenv(NodeRoleEnv, "")
	_, err := CreateNode(opts)
	require.NotNil(t, err)

	t.Setenv(NodeRoleEnv, "coordinator")
	_, err = CreateNode(opts)
	require.NotNil(t, err)

	t.Setenv(NodeRoleEnv, Registrar)
	node, err := CreateNode(opts)
	require.Nil(t, err)
	require.IsType(t, &RegistrarNode{}, node)

	t.Setenv(NodeRoleEnv, Member)
	node, err = CreateNode(opts)
	require.Nil(t, err)
	require.IsType(t, &MemberNode{}, node)

	_, err = CreateNodeInRole(Member, &NodeOptions{})
	require.NotNil(t, err)
}

func registerRequest(t *testing.T, id string, nodeID int) (context.Context, *structpb.Struct) {
	ctx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 40000},
	})
	req, err := structpb.NewStruct(map[string]interface{}{"id": id, "port": 5000, "node_id": nodeID})
	require.Nil(t, err)
	return ctx, req
}

func TestRegistration(t *testing.T) {
	s := createClusterServer(3, log.NewNopLogger())

	ctx, req := registerRequest(t, "b", 2)
	res, err := s.Register(ctx, req)
	require.Nil(t, err)
	require.EqualValues(t, 2, res.GetFields()["node_id"].GetNumberValue())
	require.EqualValues(t, 3, res.GetFields()["num_nodes"].GetNumberValue())

	// the same member cannot register twice
	_, err = s.Register(registerRequest(t, "b", 0))
	require.Equal(t, codes.AlreadyExists, status.Code(err))
	// node ids cannot be taken twice, or be out of range
	_, err = s.Register(registerRequest(t, "c", 2))
	require.Equal(t, codes.AlreadyExists, status.Code(err))
	_, err = s.Register(registerRequest(t, "c", 4))
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = s.Register(registerRequest(t, "", 0))
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	// peers are only listed once every member has joined
	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Peers(waitCtx, &structpb.Struct{})
	require.Equal(t, codes.DeadlineExceeded, status.Code(err))

	// unrequested ids are assigned lowest first
	res, err = s.Register(registerRequest(t, "a", 0))
	require.Nil(t, err)
	require.EqualValues(t, 1, res.GetFields()["node_id"].GetNumberValue())
	res, err = s.Register(registerRequest(t, "c", 0))
	require.Nil(t, err)
	require.EqualValues(t, 3, res.GetFields()["node_id"].GetNumberValue())
	require.Equal(t, 3, s.NumberOfMembers())

	_, err = s.Register(registerRequest(t, "d", 0))
	require.Equal(t, codes.ResourceExhausted, status.Code(err))

	res, err = s.Peers(context.Background(), &structpb.Struct{})
	require.Nil(t, err)
	peers := parsePeers(res)
	require.Len(t, peers, 3)
	for i, p := range peers {
		require.Equal(t, i+1, p.NodeID)
		require.Equal(t, "127.0.0.1", p.Host)
		require.Equal(t, 5000, p.Port)
	}
	require.Equal(t, []string{"a", "b", "c"}, []string{peers[0].ID, peers[1].ID, peers[2].ID})
}

func TestMembersJoin(t *testing.T) {
	registrar, members := startCluster(t, 3, nil)
	require.Equal(t, 3, registrar.NumberOfMembers())
	require.Nil(t, registrar.WaitForMembers(context.Background()))
	for i, m := range members {
		require.Equal(t, i+1, m.NodeID())
		require.Equal(t, 3, m.NumNodes())
		require.NotNil(t, m.Addr())
	}
	require.NotNil(t, members[0].Start(context.Background()))
}

func TestBlobExchange(t *testing.T) {
	registries := []prometheus.Registerer{prometheus.NewRegistry(), prometheus.NewRegistry()}
	_, members := startCluster(t, 2, registries)
	ctx := context.Background()

	require.Nil(t, members[1].SendBlob(ctx, 1, []byte("first")))
	require.Nil(t, members[1].SendBlob(ctx, 1, nil))
	large := make([]byte, 200*1024)
	for i := range large {
		large[i] = byte(i)
	}
	require.Nil(t, members[0].SendBlob(ctx, 2, large))

	blob, err := members[0].RecvBlob(ctx, 2)
	require.Nil(t, err)
	require.Equal(t, kv.Blob{Sender: 2, Data: []byte("first")}, blob)
	blob, err = members[0].RecvBlob(ctx, 2)
	require.Nil(t, err)
	require.Equal(t, 2, blob.Sender)
	require.Empty(t, blob.Data)
	blob, err = members[1].RecvBlob(ctx, 1)
	require.Nil(t, err)
	require.Equal(t, large, blob.Data)

	require.EqualValues(t, 2, testutil.ToFloat64(members[1].metrics.blobsSent))
	require.EqualValues(t, 1, testutil.ToFloat64(members[1].metrics.blobsReceived))
	require.EqualValues(t, len(large), testutil.ToFloat64(members[1].metrics.blobBytes.WithLabelValues("received")))

	require.IsType(t, errors.NodeIndexOutOfBoundsError{}, members[0].SendBlob(ctx, 3, nil))
	_, err = members[0].RecvBlob(ctx, 0)
	require.IsType(t, errors.NodeIndexOutOfBoundsError{}, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = members[0].RecvBlob(waitCtx, 2)
	require.Equal(t, context.DeadlineExceeded, err)
}

func TestRemotePartitions(t *testing.T) {
	_, members := startCluster(t, 3, nil)
	ctx := context.Background()
	require.Nil(t, members[0].Put(ctx, kv.Key{Namespace: "data", NodeID: 1}, createPartition(t, 5000)))
	require.NotNil(t, members[0].Put(ctx, kv.Key{Namespace: "data", NodeID: 2}, createPartition(t, 1)))

	local, err := members[0].Get(ctx, kv.Key{Namespace: "data", NodeID: 1})
	require.Nil(t, err)
	for _, m := range members[1:] {
		remote, err := m.Get(ctx, kv.Key{Namespace: "data", NodeID: 1})
		require.Nil(t, err)
		require.Equal(t, 5000, remote.NRows())
		require.Nil(t, local.Schema().Equals(remote.Schema()))
		d, err := remote.Get(0, 4999)
		require.Nil(t, err)
		v, ok := d.AsInt()
		require.True(t, ok)
		require.EqualValues(t, 4999, v)
	}
	_, err = members[1].Get(ctx, kv.Key{Namespace: "data", NodeID: 1})
	require.Nil(t, err)
	require.EqualValues(t, 1, testutil.ToFloat64(members[1].metrics.partitionFetches.WithLabelValues("true")))
	require.EqualValues(t, 2, testutil.ToFloat64(members[0].metrics.partitionsServed))

	_, err = members[1].Get(ctx, kv.Key{Namespace: "missing", NodeID: 1})
	require.Equal(t, errors.PartitionNotFoundError{Namespace: "missing", NodeID: 1}, err)
	_, err = members[1].Get(ctx, kv.Key{Namespace: "data", NodeID: 2})
	require.Equal(t, errors.PartitionNotFoundError{Namespace: "data", NodeID: 2}, err)
	_, err = members[1].Get(ctx, kv.Key{Namespace: "data", NodeID: 4})
	require.IsType(t, errors.NodeIndexOutOfBoundsError{}, err)
}

func TestStatistics(t *testing.T) {
	_, members := startCluster(t, 2, nil)
	ctx := context.Background()

	res, err := members[0].FetchStatistics(ctx, 2)
	require.Nil(t, err)
	require.EqualValues(t, 2, res.GetFields()["nodeId"].GetNumberValue())
	require.NotContains(t, res.GetFields(), "roundsCompleted")

	tracker := stats.NewRoundStatistics()
	round := tracker.StartRound()
	round.EndMap(12)
	round.End()
	members[1].TrackStatistics(tracker)
	res, err = members[0].FetchStatistics(ctx, 2)
	require.Nil(t, err)
	require.EqualValues(t, 1, res.GetFields()["roundsCompleted"].GetNumberValue())
	require.EqualValues(t, 12, res.GetFields()["rowsProcessed"].GetNumberValue())

	res, err = members[0].FetchStatistics(ctx, 1)
	require.Nil(t, err)
	require.EqualValues(t, 1, res.GetFields()["nodeId"].GetNumberValue())
}

func TestStopMembers(t *testing.T) {
	registrar, members := startCluster(t, 2, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.Nil(t, registrar.StopMembers(ctx))
	for _, m := range members {
		require.Nil(t, m.Wait(ctx))
	}
	require.Nil(t, registrar.GracefulStop())
	require.Nil(t, registrar.Wait(ctx))
}
