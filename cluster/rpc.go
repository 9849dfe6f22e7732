package cluster

import (
	"context"
	"io"
	"strconv"

	"github.com/go-sif/liquid/internal/util"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Every message exchanged between nodes is a protobuf well-known type, so the
// services below are declared directly rather than generated from a .proto.

const (
	registrarServiceName = "liquid.RegistrarService"
	blobServiceName      = "liquid.BlobService"
	partitionServiceName = "liquid.PartitionService"
	lifecycleServiceName = "liquid.LifecycleService"
	statsServiceName     = "liquid.StatsService"
	// senderMetadataKey carries the node id of the sender of a blob
	senderMetadataKey = "liquid-sender"
)

func fullMethod(service string, method string) string {
	return "/" + service + "/" + method
}

// unaryHandler adapts a typed service method to a grpc.MethodDesc handler
func unaryHandler[Req proto.Message](service string, method string, newReq func() Req, call func(srv interface{}, ctx context.Context, req Req) (interface{}, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(service, method)}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv, ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func newStruct() *structpb.Struct {
	return new(structpb.Struct)
}

func newEmpty() *emptypb.Empty {
	return new(emptypb.Empty)
}

// registrarService introduces Members to each other
type registrarService interface {
	Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Peers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var registrarServiceDesc = grpc.ServiceDesc{
	ServiceName: registrarServiceName,
	HandlerType: (*registrarService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler: unaryHandler(registrarServiceName, "Register", newStruct, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				return srv.(registrarService).Register(ctx, req)
			}),
		},
		{
			MethodName: "Peers",
			Handler: unaryHandler(registrarServiceName, "Peers", newStruct, func(srv interface{}, ctx context.Context, req *structpb.Struct) (interface{}, error) {
				return srv.(registrarService).Peers(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "liquid/cluster",
}

// blobService receives blobs from other Members. Each stream carries exactly
// one blob, split into chunks.
type blobService interface {
	SendBlob(stream grpc.ServerStream) error
}

var blobServiceDesc = grpc.ServiceDesc{
	ServiceName: blobServiceName,
	HandlerType: (*blobService)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "SendBlob",
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				return srv.(blobService).SendBlob(stream)
			},
			ClientStreams: true,
		},
	},
	Metadata: "liquid/cluster",
}

// partitionService serves the partitions a Member owns to other Members
type partitionService interface {
	FetchPartition(req *wrapperspb.StringValue, stream grpc.ServerStream) error
}

var partitionServiceDesc = grpc.ServiceDesc{
	ServiceName: partitionServiceName,
	HandlerType: (*partitionService)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "FetchPartition",
			Handler: func(srv interface{}, stream grpc.ServerStream) error {
				in := new(wrapperspb.StringValue)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(partitionService).FetchPartition(in, stream)
			},
			ServerStreams: true,
		},
	},
	Metadata: "liquid/cluster",
}

// lifecycleService allows a Node to be stopped remotely
type lifecycleService interface {
	Stop(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
	GracefulStop(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
}

var lifecycleServiceDesc = grpc.ServiceDesc{
	ServiceName: lifecycleServiceName,
	HandlerType: (*lifecycleService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Stop",
			Handler: unaryHandler(lifecycleServiceName, "Stop", newEmpty, func(srv interface{}, ctx context.Context, req *emptypb.Empty) (interface{}, error) {
				return srv.(lifecycleService).Stop(ctx, req)
			}),
		},
		{
			MethodName: "GracefulStop",
			Handler: unaryHandler(lifecycleServiceName, "GracefulStop", newEmpty, func(srv interface{}, ctx context.Context, req *emptypb.Empty) (interface{}, error) {
				return srv.(lifecycleService).GracefulStop(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "liquid/cluster",
}

// statsService reports the statistics of a Member
type statsService interface {
	ProvideStatistics(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

var statsServiceDesc = grpc.ServiceDesc{
	ServiceName: statsServiceName,
	HandlerType: (*statsService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ProvideStatistics",
			Handler: unaryHandler(statsServiceName, "ProvideStatistics", newEmpty, func(srv interface{}, ctx context.Context, req *emptypb.Empty) (interface{}, error) {
				return srv.(statsService).ProvideStatistics(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "liquid/cluster",
}

// sendBlobStream opens a SendBlob stream, writes data to it in chunks and
// waits for the receiver to acknowledge it
func sendBlobStream(ctx context.Context, conn *grpc.ClientConn, sender int, data []byte) error {
	ctx = metadata.AppendToOutgoingContext(ctx, senderMetadataKey, strconv.Itoa(sender))
	stream, err := conn.NewStream(ctx, &blobServiceDesc.Streams[0], fullMethod(blobServiceName, "SendBlob"))
	if err != nil {
		return err
	}
	err = util.Chunk(data, func(c []byte) error {
		return stream.SendMsg(wrapperspb.Bytes(c))
	})
	if err != nil && err != io.EOF {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	return stream.RecvMsg(new(emptypb.Empty))
}

// fetchPartitionStream requests a partition and concatenates the streamed chunks
func fetchPartitionStream(ctx context.Context, conn *grpc.ClientConn, namespace string) ([]byte, error) {
	stream, err := conn.NewStream(ctx, &partitionServiceDesc.Streams[0], fullMethod(partitionServiceName, "FetchPartition"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(wrapperspb.String(namespace)); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	var buf []byte
	for {
		chunk := new(wrapperspb.BytesValue)
		err := stream.RecvMsg(chunk)
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk.GetValue()...)
	}
}
