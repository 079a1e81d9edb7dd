// Hand-written in the shape of protoc-gen-go-grpc output; there is no
// .proto source for this package.

package syncpb

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

// SyncServiceClient is the client API for SyncService, exposing the single
// bidirectional StartSync stream.
type SyncServiceClient interface {
	StartSync(ctx context.Context, opts ...grpc.CallOption) (SyncService_StartSyncClient, error)
}

type syncServiceClient struct {
	cc *grpc.ClientConn
}

// NewSyncServiceClient constructs a client bound to an existing connection.
func NewSyncServiceClient(cc *grpc.ClientConn) SyncServiceClient {
	return &syncServiceClient{cc}
}

func (c *syncServiceClient) StartSync(ctx context.Context, opts ...grpc.CallOption) (SyncService_StartSyncClient, error) {
	stream, err := c.cc.NewStream(ctx, &_SyncService_serviceDesc.Streams[0], "/syncpb.SyncService/StartSync", opts...)
	if err != nil {
		return nil, err
	}
	return &syncServiceStartSyncClient{stream}, nil
}

// SyncService_StartSyncClient is the client side of the StartSync stream.
type SyncService_StartSyncClient interface {
	Send(*SyncMessageBatch) error
	Recv() (*SyncMessageBatch, error)
	grpc.ClientStream
}

type syncServiceStartSyncClient struct {
	grpc.ClientStream
}

func (x *syncServiceStartSyncClient) Send(m *SyncMessageBatch) error {
	return x.ClientStream.SendMsg(m)
}
func (x *syncServiceStartSyncClient) Recv() (*SyncMessageBatch, error) {
	m := new(SyncMessageBatch)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// SyncServiceServer is the server API for SyncService.
type SyncServiceServer interface {
	StartSync(SyncService_StartSyncServer) error
}

// SyncService_StartSyncServer is the server side of the StartSync stream.
type SyncService_StartSyncServer interface {
	Send(*SyncMessageBatch) error
	Recv() (*SyncMessageBatch, error)
	grpc.ServerStream
}

type syncServiceStartSyncServer struct {
	grpc.ServerStream
}

func (x *syncServiceStartSyncServer) Send(m *SyncMessageBatch) error {
	return x.ServerStream.SendMsg(m)
}
func (x *syncServiceStartSyncServer) Recv() (*SyncMessageBatch, error) {
	m := new(SyncMessageBatch)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _SyncService_StartSync_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(SyncServiceServer).StartSync(&syncServiceStartSyncServer{stream})
}

// RegisterSyncServiceServer registers impl on s.
func RegisterSyncServiceServer(s *grpc.Server, impl SyncServiceServer) {
	s.RegisterService(&_SyncService_serviceDesc, impl)
}

var _SyncService_serviceDesc = grpc.ServiceDesc{
	ServiceName: "syncpb.SyncService",
	HandlerType: (*SyncServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StartSync",
			Handler:       _SyncService_StartSync_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "syncer.proto",
}

// ErrMissingNodeID is returned by peer.Follow when the leader's response
// header carries no node_id initial-metadata entry.
var ErrMissingNodeID = status.Error(codes.InvalidArgument, "syncpb: missing node_id metadata")

// NodeIDMetadataKey is the initial-metadata entry both sides must carry.
const NodeIDMetadataKey = "node_id"
