package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
)

// RegistrarNode is a Node which assigns node ids to Members as they register,
// and tells every Member where the others are once the cluster is complete.
// It holds no data and takes no part in reductions.
type RegistrarNode struct {
	opts          *NodeOptions
	logger        log.Logger
	clusterServer *clusterServer
	lifecycleLock sync.Mutex
	server        *grpc.Server
	addr          net.Addr
	done          chan struct{}
}

var _ Node = &RegistrarNode{}

// CreateRegistrar is a factory for Registrars
func CreateRegistrar(opts *NodeOptions) (*RegistrarNode, error) {
	opts = CloneNodeOptions(opts)
	if len(opts.RegistrarHost) == 0 {
		opts.RegistrarHost = opts.Host
	}
	if len(opts.RegistrarHost) == 0 {
		opts.RegistrarHost = "0.0.0.0"
	}
	if err := ensureDefaultNodeOptionsValues(opts); err != nil {
		return nil, err
	}
	logger := log.With(opts.Logger, "role", Registrar)
	return &RegistrarNode{
		opts:          opts,
		logger:        logger,
		clusterServer: createClusterServer(opts.NumNodes, logger),
		done:          make(chan struct{}),
	}, nil
}

// Start serving registrations. Start does not block.
func (r *RegistrarNode) Start(ctx context.Context) error {
	r.lifecycleLock.Lock()
	defer r.lifecycleLock.Unlock()
	if r.addr != nil {
		return fmt.Errorf("Registrar has already been started")
	}
	lis, err := net.Listen("tcp", r.opts.connectionString())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	r.addr = lis.Addr()
	r.server = grpc.NewServer()
	// register rpc handlers
	r.server.RegisterService(&registrarServiceDesc, r.clusterServer)
	r.server.RegisterService(&lifecycleServiceDesc, createLifecycleServer(r, r.logger))
	server := r.server
	go func() {
		defer close(r.done)
		if err := server.Serve(netutil.LimitListener(lis, r.opts.MaxConnections)); err != nil {
			level.Error(r.logger).Log("msg", "registrar stopped serving", "err", err)
		}
	}()
	level.Info(r.logger).Log("msg", "starting liquid registrar", "address", lis.Addr().String(), "nodes", r.opts.NumNodes)
	return nil
}

// Addr returns the address this Registrar serves on, or nil before Start
func (r *RegistrarNode) Addr() net.Addr {
	r.lifecycleLock.Lock()
	defer r.lifecycleLock.Unlock()
	return r.addr
}

// WaitForMembers blocks until every Member has registered
func (r *RegistrarNode) WaitForMembers(ctx context.Context) error {
	level.Info(r.logger).Log("msg", "waiting for members to connect", "nodes", r.opts.NumNodes)
	if err := r.clusterServer.waitForMembers(ctx); err != nil {
		return fmt.Errorf("%d of %d members joined: %w", r.clusterServer.NumberOfMembers(), r.opts.NumNodes, err)
	}
	return nil
}

// NumberOfMembers returns the number of Members which have registered so far
func (r *RegistrarNode) NumberOfMembers() int {
	return r.clusterServer.NumberOfMembers()
}

// StopMembers asks every registered Member to stop gracefully
func (r *RegistrarNode) StopMembers(ctx context.Context) error {
	var wg sync.WaitGroup
	var errsLock sync.Mutex
	var errs *multierror.Error
	for _, m := range r.clusterServer.Members() {
		wg.Add(1)
		level.Info(r.logger).Log("msg", "stopping member", "node", m.NodeID)
		go func(m memberDescriptor) {
			defer wg.Done()
			if err := r.stopMember(ctx, m); err != nil {
				errsLock.Lock()
				errs = multierror.Append(errs, fmt.Errorf("Unable to stop member %d: %w", m.NodeID, err))
				errsLock.Unlock()
			}
		}(m)
	}
	wg.Wait()
	return errs.ErrorOrNil()
}

func (r *RegistrarNode) stopMember(ctx context.Context, m memberDescriptor) error {
	conn, err := grpc.DialContext(ctx, m.address(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	rpcCtx, cancel := context.WithTimeout(ctx, r.opts.RPCTimeout)
	defer cancel()
	return conn.Invoke(rpcCtx, fullMethod(lifecycleServiceName, "GracefulStop"), &emptypb.Empty{}, new(emptypb.Empty))
}

// Wait blocks until this Registrar stops serving
func (r *RegistrarNode) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GracefulStop the Registrar, waiting for RPCs to finish
func (r *RegistrarNode) GracefulStop() error {
	r.lifecycleLock.Lock()
	defer r.lifecycleLock.Unlock()
	if r.server != nil {
		r.server.GracefulStop()
		r.server = nil
	}
	return nil
}

// Stop the Registrar immediately
func (r *RegistrarNode) Stop() error {
	r.lifecycleLock.Lock()
	defer r.lifecycleLock.Unlock()
	if r.server != nil {
		r.server.Stop()
		r.server = nil
	}
	return nil
}
