package cluster

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

// NodeRole describes the intended role of a Node
type NodeRole = string

const (
	// Registrar indicates that a node should assign node ids and introduce members to each other
	//   e.g. CreateNodeInRole(Registrar, &NodeOptions{...})
	Registrar NodeRole = "registrar"
	// Member indicates that a node should hold a partition and take part in reductions
	//   e.g. CreateNodeInRole(Member, &NodeOptions{...})
	Member NodeRole = "member"
)

// NodeRoleEnv is the environment variable CreateNode reads a NodeRole from
const NodeRoleEnv = "LIQUID_NODE_ROLE"

// DefaultRegistrarPort is the port Members look for the Registrar on when none is configured
const DefaultRegistrarPort = 1643

// Node is a process in a Liquid cluster, either a registrar or a member.
// Nodes present several methods to control their lifecycle.
type Node interface {
	Start(ctx context.Context) error
	Addr() net.Addr
	Wait(ctx context.Context) error
	GracefulStop() error
	Stop() error
}

// NodeOptions are options for a Node, configuring elements of a Liquid cluster
type NodeOptions struct {
	Port               int                   // port for this Node to bind to. 0 picks a free port.
	Host               string                // hostname for this Node to bind to
	RegistrarPort      int                   // port for the Registrar Node (identical to Port if this is the Registrar)
	RegistrarHost      string                // [REQUIRED] hostname of the Registrar Node
	NumNodes           int                   // [REQUIRED] the number of Members in the cluster
	NodeID             int                   // node id a Member asks for when joining. 0 takes the lowest free id.
	JoinTimeout        time.Duration         // how long a Member waits for the rest of the cluster to join
	JoinRetries        int                   // how many times a Member retries connecting to the Registrar (at one second intervals)
	RPCTimeout         time.Duration         // timeout for unary RPC calls
	BlobBufferSize     int                   // undelivered blobs buffered per sender
	MaxConnections     int                   // maximum simultaneous inbound connections
	PartitionCacheSize int                   // partitions fetched from other Members which are kept for reuse
	Logger             log.Logger            // defaults to a no-op logger
	Registerer         prometheus.Registerer // metrics are not registered if nil
}

// CloneNodeOptions makes a copy of a NodeOptions
func CloneNodeOptions(opts *NodeOptions) *NodeOptions {
	return &NodeOptions{
		Port:               opts.Port,
		Host:               opts.Host,
		RegistrarPort:      opts.RegistrarPort,
		RegistrarHost:      opts.RegistrarHost,
		NumNodes:           opts.NumNodes,
		NodeID:             opts.NodeID,
		JoinTimeout:        opts.JoinTimeout,
		JoinRetries:        opts.JoinRetries,
		RPCTimeout:         opts.RPCTimeout,
		BlobBufferSize:     opts.BlobBufferSize,
		MaxConnections:     opts.MaxConnections,
		PartitionCacheSize: opts.PartitionCacheSize,
		Logger:             opts.Logger,
		Registerer:         opts.Registerer,
	}
}

func ensureDefaultNodeOptionsValues(opts *NodeOptions) error {
	// fail if certain required options are not supplied
	if opts.NumNodes < 1 {
		return fmt.Errorf("NodeOptions.NumNodes must be greater than 0")
	}
	if len(opts.RegistrarHost) == 0 {
		return fmt.Errorf("NodeOptions.RegistrarHost must be the address of the Liquid Registrar")
	}
	if opts.NodeID < 0 || opts.NodeID > opts.NumNodes {
		return fmt.Errorf("NodeOptions.NodeID must be within [0, %d]", opts.NumNodes)
	}
	// default certain options if not supplied
	if len(opts.Host) == 0 {
		opts.Host = "0.0.0.0"
	}
	if opts.RegistrarPort == 0 {
		opts.RegistrarPort = DefaultRegistrarPort
	}
	if opts.RPCTimeout == 0 {
		opts.RPCTimeout = 5 * time.Second
	}
	if opts.JoinTimeout == 0 {
		opts.JoinTimeout = 30 * time.Second
	}
	if opts.JoinRetries == 0 {
		opts.JoinRetries = 5
	}
	if opts.BlobBufferSize == 0 {
		opts.BlobBufferSize = 2
	}
	if opts.MaxConnections == 0 {
		opts.MaxConnections = 256
	}
	if opts.PartitionCacheSize == 0 {
		opts.PartitionCacheSize = 16
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	return nil
}

// connectionString returns the connection string for this node
func (o *NodeOptions) connectionString() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// registrarConnectionString returns the connection string for the registrar
func (o *NodeOptions) registrarConnectionString() string {
	return net.JoinHostPort(o.RegistrarHost, strconv.Itoa(o.RegistrarPort))
}

// CreateNodeInRole creates a Liquid node in a specific role (Registrar or Member)
func CreateNodeInRole(role NodeRole, opts *NodeOptions) (Node, error) {
	var node Node
	var err error
	switch role {
	case Registrar:
		node, err = CreateRegistrar(opts)
	case Member:
		node, err = CreateMember(opts)
	default:
		return nil, fmt.Errorf("%s is an unknown NodeRole", role)
	}
	if err != nil {
		return nil, err
	}
	return node, nil
}

// CreateNode creates a Liquid node, deriving its role from $LIQUID_NODE_ROLE
func CreateNode(opts *NodeOptions) (Node, error) {
	role := os.Getenv(NodeRoleEnv)
	if len(role) == 0 {
		return nil, fmt.Errorf("$%s is not set - must be \"%s\" or \"%s\"", NodeRoleEnv, Registrar, Member)
	}
	node, err := CreateNodeInRole(role, opts)
	if err != nil {
		return nil, fmt.Errorf("$%s=\"%s\": %w", NodeRoleEnv, role, err)
	}
	return node, nil
}
