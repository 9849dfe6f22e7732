package cluster

import (
	"context"
	"io"
	"strconv"

	"github.com/go-sif/liquid/kv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type blobServer struct {
	member *MemberNode
}

// createBlobServer creates a new blobServer
func createBlobServer(member *MemberNode) *blobServer {
	return &blobServer{member: member}
}

// SendBlob receives one chunked blob and delivers it to the Member's mailbox.
// The stream is only acknowledged once the blob has been buffered, so a full
// mailbox slows the sender down.
func (s *blobServer) SendBlob(stream grpc.ServerStream) error {
	sender, err := senderFromContext(stream.Context())
	if err != nil {
		return err
	}
	var data []byte
	for {
		chunk := new(wrapperspb.BytesValue)
		err := stream.RecvMsg(chunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		data = append(data, chunk.GetValue()...)
	}
	if err := s.member.mailbox.Deliver(stream.Context(), kv.Blob{Sender: sender, Data: data}); err != nil {
		if stream.Context().Err() != nil {
			return status.FromContextError(err).Err()
		}
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.member.metrics.blobsReceived.Inc()
	s.member.metrics.blobBytes.WithLabelValues("received").Add(float64(len(data)))
	return stream.SendMsg(&emptypb.Empty{})
}

func senderFromContext(ctx context.Context) (int, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "Blob stream carries no metadata")
	}
	values := md.Get(senderMetadataKey)
	if len(values) != 1 {
		return 0, status.Errorf(codes.InvalidArgument, "Blob stream must carry exactly one %s", senderMetadataKey)
	}
	sender, err := strconv.Atoi(values[0])
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "Malformed sender %q: %v", values[0], err)
	}
	return sender, nil
}
