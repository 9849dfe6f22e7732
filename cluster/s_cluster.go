package cluster

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// memberDescriptor describes a registered Member
type memberDescriptor struct {
	ID     string
	NodeID int
	Host   string
	Port   int
}

func (d memberDescriptor) address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

type clusterServer struct {
	members  sync.Map // member id -> memberDescriptor
	lock     sync.Mutex
	byNode   []*memberDescriptor
	joined   int
	full     chan struct{}
	numNodes int
	logger   log.Logger
}

// createClusterServer creates a new cluster server expecting numNodes Members
func createClusterServer(numNodes int, logger log.Logger) *clusterServer {
	return &clusterServer{
		byNode:   make([]*memberDescriptor, numNodes),
		full:     make(chan struct{}),
		numNodes: numNodes,
		logger:   logger,
	}
}

// Register registers a new Member with the cluster and assigns it a node id
func (s *clusterServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["id"].GetStringValue()
	port := int(req.GetFields()["port"].GetNumberValue())
	requested := int(req.GetFields()["node_id"].GetNumberValue())
	if len(id) == 0 {
		return nil, status.Error(codes.InvalidArgument, "Member id is required")
	}
	p, ok := peer.FromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.Internal, "Unable to fetch peer data for connecting member %s", id)
	}
	tcpAddr, ok := p.Addr.(*net.TCPAddr)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "Connecting member %s is not using TCP", id)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.members.Load(id); exists {
		return nil, status.Errorf(codes.AlreadyExists, "Member %s is already registered", id)
	}
	if s.joined == s.numNodes {
		return nil, status.Errorf(codes.ResourceExhausted, "All %d members have already registered", s.numNodes)
	}
	nodeID := requested
	if nodeID < 0 || nodeID > s.numNodes {
		return nil, status.Errorf(codes.InvalidArgument, "Node id %d is not within [1, %d]", nodeID, s.numNodes)
	} else if nodeID > 0 && s.byNode[nodeID-1] != nil {
		return nil, status.Errorf(codes.AlreadyExists, "Node id %d is already taken by member %s", nodeID, s.byNode[nodeID-1].ID)
	} else if nodeID == 0 {
		for i, d := range s.byNode {
			if d == nil {
				nodeID = i + 1
				break
			}
		}
	}
	descriptor := memberDescriptor{
		ID:     id,
		NodeID: nodeID,
		Host:   tcpAddr.IP.String(),
		Port:   port,
	}
	s.members.Store(id, descriptor)
	s.byNode[nodeID-1] = &descriptor
	s.joined++
	if s.joined == s.numNodes {
		close(s.full)
	}
	level.Info(s.logger).Log("msg", "registered member", "member", id, "node", nodeID, "address", descriptor.address())
	return structpb.NewStruct(map[string]interface{}{
		"node_id":   nodeID,
		"num_nodes": s.numNodes,
	})
}

// Peers blocks until every Member has registered, and then lists them
func (s *clusterServer) Peers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.waitForMembers(ctx); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	peers := make([]interface{}, 0, s.numNodes)
	for _, d := range s.Members() {
		peers = append(peers, map[string]interface{}{
			"id":      d.ID,
			"node_id": d.NodeID,
			"host":    d.Host,
			"port":    d.Port,
		})
	}
	return structpb.NewStruct(map[string]interface{}{"peers": peers})
}

// NumberOfMembers returns the current member count
func (s *clusterServer) NumberOfMembers() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.joined
}

// Members retrieves the registered Members, ordered by node id
func (s *clusterServer) Members() []memberDescriptor {
	result := make([]memberDescriptor, 0)
	s.members.Range(func(_, v interface{}) bool {
		result = append(result, v.(memberDescriptor))
		return true
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].NodeID < result[j].NodeID
	})
	return result
}

func (s *clusterServer) waitForMembers(ctx context.Context) error {
	select {
	case <-s.full:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parsePeers reads the response of a Peers call
func parsePeers(res *structpb.Struct) []memberDescriptor {
	values := res.GetFields()["peers"].GetListValue().GetValues()
	peers := make([]memberDescriptor, 0, len(values))
	for _, v := range values {
		fields := v.GetStructValue().GetFields()
		peers = append(peers, memberDescriptor{
			ID:     fields["id"].GetStringValue(),
			NodeID: int(fields["node_id"].GetNumberValue()),
			Host:   fields["host"].GetStringValue(),
			Port:   int(fields["port"].GetNumberValue()),
		})
	}
	return peers
}
