package peer

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"

	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// HeaderFor builds the initial-metadata response both the server-side
// accept path and tests use to advertise the local node id.
func HeaderFor(localNodeID string) metadata.MD {
	return metadata.Pairs(syncpb.NodeIDMetadataKey, localNodeID)
}

// Follow implements the client-side half of spec.md section 4.3's
// "Bootstrap differences": it opens the StartSync stream, sends the
// local node_id as initial metadata, awaits the server's initial
// metadata to learn the leader's node id, and then runs the Reactor in a
// background goroutine, returning once the handshake succeeds (or
// failed). Reconnection after stream teardown is the bootstrap/CLI
// layer's concern per spec.md section 7, not the engine's.
func Follow(ctx context.Context, host Host, client syncpb.SyncServiceClient, tickInterval time.Duration) error {
	outgoing := metadata.AppendToOutgoingContext(ctx, syncpb.NodeIDMetadataKey, host.NodeID())
	stream, err := client.StartSync(outgoing)
	if err != nil {
		return err
	}
	header, err := stream.Header()
	if err != nil {
		return err
	}
	leaderNodeID := firstValue(header, syncpb.NodeIDMetadataKey)
	if leaderNodeID == "" {
		return syncpb.ErrMissingNodeID
	}
	host.Logger().Info("following leader", zap.String("leader_id", leaderNodeID))
	host.EnsureBucket(leaderNodeID)

	reactor := New(host, stream, leaderNodeID, tickInterval)
	go func() {
		if err := reactor.Run(ctx); err != nil {
			host.Logger().Warn("lost connection to leader", zap.String("leader_id", leaderNodeID), zap.Error(err))
		}
	}()
	return nil
}

func firstValue(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
