package peer

// Stream is the subset of grpc.ClientStream / grpc.ServerStream a Reactor
// needs. Both the generated syncpb.SyncService_StartSyncClient and
// syncpb.SyncService_StartSyncServer satisfy it, since both embed a
// grpc.ClientStream or grpc.ServerStream respectively, which promote
// SendMsg/RecvMsg. Driving the stream through SendMsg/RecvMsg directly,
// instead of the generated Send/Recv wrappers, lets the reactor supply its
// own *syncpb.SyncMessageBatch value and avoid allocating a fresh one on
// every read — the Go analogue of the arena reuse spec.md section 9
// describes.
type Stream interface {
	SendMsg(m interface{}) error
	RecvMsg(m interface{}) error
}
