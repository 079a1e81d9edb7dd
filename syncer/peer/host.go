package peer

import (
	"go.uber.org/zap"

	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// Host is the facade a Reactor uses to reach the owning engine. It is
// defined here, rather than imported from the syncer package, so that
// syncer can hold concrete *Reactor values without an import cycle: syncer
// depends on peer, and peer only depends on this narrow interface.
//
// Every method here corresponds to a spec.md section 4.4 Engine
// operation; Post is the one addition, standing in for "callers from
// reactor callbacks post onto the [engine's] context first" in spec.md
// section 5.
type Host interface {
	// NodeID returns the local node id.
	NodeID() string
	// Update delegates to the store's ingest for every message in batch,
	// then notifies the registered receiver for each accepted message.
	Update(fromPeer string, batch []*syncpb.SyncMessage)
	// SyncMessages returns the split-horizon view of the store for
	// peerNodeID.
	SyncMessages(peerNodeID string) []*syncpb.SyncMessage
	// ReporterSnapshot returns one snapshot per registered reporter.
	ReporterSnapshot() []*syncpb.SyncMessage
	// EnsureBucket idempotently creates the store bucket for nodeID.
	EnsureBucket(nodeID string)
	// Post runs task on the engine's single-threaded executor.
	Post(task func())
	// Forget removes peerNodeID's reactor from the engine's peer map.
	Forget(peerNodeID string)
	// Logger returns the engine's logger, for reactor diagnostics.
	Logger() *zap.Logger
}
