package cluster

import (
	"github.com/go-sif/liquid/internal/util"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type partitionServer struct {
	member *MemberNode
}

// createPartitionServer creates a new partitionServer
func createPartitionServer(member *MemberNode) *partitionServer {
	return &partitionServer{member: member}
}

// FetchPartition streams this Member's partition of the requested namespace
// to the requester, in chunks
func (s *partitionServer) FetchPartition(req *wrapperspb.StringValue, stream grpc.ServerStream) error {
	df, ok := s.member.localPartition(req.GetValue())
	if !ok {
		return status.Errorf(codes.NotFound, "Node %d has no partition of %s", s.member.NodeID(), req.GetValue())
	}
	data, err := s.member.partitionCodec.Encode(df)
	if err != nil {
		return status.Errorf(codes.Internal, "Unable to serialize partition %s: %v", req.GetValue(), err)
	}
	err = util.Chunk(data, func(chunk []byte) error {
		return stream.SendMsg(wrapperspb.Bytes(chunk))
	})
	if err != nil {
		return err
	}
	s.member.metrics.partitionsServed.Inc()
	return nil
}
