package service

import (
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vx-labs/sync-fabric/syncer"
	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// Adapter is the thin polymorphic RPC entry point described in spec.md
// section 4.5: it translates a gRPC StartSync call into a call to
// Engine.Accept. It owns no state of its own.
type Adapter struct {
	engine *syncer.Engine
	logger *zap.Logger
}

// New constructs an Adapter backed by engine.
func New(engine *syncer.Engine) *Adapter {
	return &Adapter{engine: engine, logger: engine.Logger()}
}

var _ syncpb.SyncServiceServer = (*Adapter)(nil)

// StartSync implements syncpb.SyncServiceServer. Per spec.md section 4.5:
// it reads node_id from request metadata — missing metadata is a hard
// protocol error, rejecting the stream — then delegates to
// Engine.Accept, which sends the local node id back as response initial
// metadata and runs the peer reactor for the stream's lifetime.
func (a *Adapter) StartSync(stream syncpb.SyncService_StartSyncServer) error {
	peerNodeID, err := peerNodeIDFromContext(stream)
	if err != nil {
		a.logger.Warn("rejecting stream with missing node_id metadata")
		return err
	}
	err = a.engine.Accept(stream.Context(), peerNodeID, stream)
	if err != nil {
		a.logger.Info("follower stream ended", zap.String("peer_id", peerNodeID), zap.Error(err))
	}
	return err
}

func peerNodeIDFromContext(stream syncpb.SyncService_StartSyncServer) (string, error) {
	md, ok := metadata.FromIncomingContext(stream.Context())
	if !ok {
		return "", wrapProtocolViolation()
	}
	values := md.Get(syncpb.NodeIDMetadataKey)
	if len(values) == 0 || values[0] == "" {
		return "", wrapProtocolViolation()
	}
	return values[0], nil
}

func wrapProtocolViolation() error {
	return status.Error(codes.InvalidArgument, "syncpb: missing node_id metadata")
}
