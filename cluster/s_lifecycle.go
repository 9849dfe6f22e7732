package cluster

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"google.golang.org/protobuf/types/known/emptypb"
)

type lifecycleServer struct {
	node   Node
	logger log.Logger
}

// createLifecycleServer creates a new lifecycleServer
func createLifecycleServer(node Node, logger log.Logger) *lifecycleServer {
	return &lifecycleServer{node: node, logger: logger}
}

func (s *lifecycleServer) GracefulStop(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	level.Info(s.logger).Log("msg", "received request to stop gracefully")
	// we can't wait for the error to respond, because this counts as an open RPC, which blocks GracefulStop
	go s.node.GracefulStop()
	return &emptypb.Empty{}, nil
}

func (s *lifecycleServer) Stop(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error) {
	level.Info(s.logger).Log("msg", "received request to stop")
	go s.node.Stop()
	return &emptypb.Empty{}, nil
}
