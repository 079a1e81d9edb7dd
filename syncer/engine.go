package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/vx-labs/sync-fabric/syncer/peer"
	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// Engine owns the message store, the reporter/receiver registry, and the
// set of connected peer reactors, per spec.md section 4.4. It is the only
// entry point local collaborators (reporters, receivers) and the service
// adapter need.
type Engine struct {
	nodeID       string
	tickInterval time.Duration
	logger       *zap.Logger

	store    *Store
	registry *Registry
	executor *Executor

	mu      sync.Mutex
	peers   map[string]*peer.Reactor
	index   *peerIndex
	client  *peer.Reactor
	clientC *grpc.ClientConn
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithTickInterval overrides the default 100ms write-tick interval.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tickInterval = d }
}

// WithLogger attaches a logger; defaults to zap.NewNop() if unset.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New constructs an engine bound to localNodeID, with its own executor
// and message store, per spec.md section 4.4's `new(local_node_id,
// executor)`. Each test, and each process, gets its own Engine; no global
// state is shared between instances.
func New(localNodeID string, opts ...Option) *Engine {
	e := &Engine{
		nodeID:       localNodeID,
		tickInterval: peer.DefaultTickInterval,
		logger:       zap.NewNop(),
		store:        NewStore(),
		registry:     NewRegistry(),
		executor:     NewExecutor(),
		peers:        map[string]*peer.Reactor{},
		index:        newPeerIndex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.store.EnsurePeerBucket(localNodeID)
	return e
}

// NodeID returns the local node id.
func (e *Engine) NodeID() string { return e.nodeID }

// Logger returns the engine's logger.
func (e *Engine) Logger() *zap.Logger { return e.logger }

// Register binds a reporter and receiver to componentID. See spec.md
// section 4.2 and the re-registration Open Question resolved in
// SPEC_FULL.md section 4.8.
func (e *Engine) Register(componentID syncpb.ComponentId, reporter Reporter, receiver Receiver) {
	e.registry.Register(componentID, reporter, receiver)
}

// ReporterSnapshot satisfies peer.Host: one snapshot per registered
// reporter, taken at most once per call (per spec.md section 4.2).
func (e *Engine) ReporterSnapshot() []*syncpb.SyncMessage {
	return e.registry.Snapshot()
}

// EnsureBucket satisfies peer.Host and spec.md section 4.1's
// `ensure_peer_bucket`.
func (e *Engine) EnsureBucket(nodeID string) {
	e.store.EnsurePeerBucket(nodeID)
}

// Post satisfies peer.Host: runs task on the engine's executor.
func (e *Engine) Post(task func()) {
	e.executor.Post(task)
}

// Update delegates to store.Ingest for every message in batch, and on
// Accepted calls the registered receiver for the message's component. It
// is documented to run on the engine's executor; callers from reactor
// goroutines must Post first.
func (e *Engine) Update(fromPeer string, batch []*syncpb.SyncMessage) {
	for _, msg := range batch {
		err := e.updateOne(fromPeer, msg)
		switch err {
		case nil, ErrStale:
			// ErrStale is routine under multi-peer fan-out; not logged.
		case ErrUnknownComponent:
			e.logger.Warn("dropping message for unknown component",
				zap.String("from_peer", fromPeer),
				zap.Int32("component_id", int32(msg.ComponentId)))
		default:
			e.logger.Warn("dropping message", zap.String("from_peer", fromPeer), zap.Error(err))
		}
	}
}

func (e *Engine) updateOne(fromPeer string, msg *syncpb.SyncMessage) error {
	if msg == nil {
		return nil
	}
	if !msg.ComponentId.Valid() {
		return ErrUnknownComponent
	}
	result := e.store.Ingest(fromPeer, msg)
	if result == Stale {
		return ErrStale
	}
	receiver := e.registry.ReceiverAt(msg.ComponentId)
	if receiver == nil {
		return ErrUnknownComponent
	}
	receiver.Update(msg)
	return nil
}

// SyncMessages delegates to store.MessagesFor, per spec.md section 4.4's
// `sync_messages`.
func (e *Engine) SyncMessages(peerNodeID string) []*syncpb.SyncMessage {
	return e.store.MessagesFor(peerNodeID)
}

// Dump returns an operational snapshot of the whole store, per
// SPEC_FULL.md section 4.8.
func (e *Engine) Dump() map[string][]*syncpb.SyncMessage {
	return e.store.Dump()
}

// Peers returns the currently connected peer node ids in a stable,
// ascending order.
func (e *Engine) Peers() []string {
	return e.index.list()
}

// Health reports "ok" once the engine has at least one attached peer
// (either a follower stream or a leader connection handed to Follow), and
// "warning" otherwise. A freshly started leader with no followers yet is
// not a failure, so this never returns "critical".
func (e *Engine) Health() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.peers) > 0 || e.clientC != nil {
		return "ok"
	}
	return "warning"
}

// Forget removes peerNodeID's reactor from the peer map, releasing its
// resources. Per spec.md section 4.3's "Termination", this must run on
// the executor.
func (e *Engine) Forget(peerNodeID string) {
	e.mu.Lock()
	delete(e.peers, peerNodeID)
	e.mu.Unlock()
	e.index.remove(peerNodeID)
}

// Accept is called by the service adapter on each inbound stream. It
// constructs a server reactor, registers it in the peer map, ensures the
// peer's store bucket exists, and runs the reactor to completion — the Go
// analogue of spec.md section 4.4's `accept(peer_node_id) ->
// server_reactor_handle`, adapted to Go's synchronous stream-handler
// model: "returning the handle to the RPC runtime" becomes "blocking for
// the stream's lifetime inside the handler goroutine the RPC runtime
// already gave us".
func (e *Engine) Accept(ctx context.Context, peerNodeID string, stream syncpb.SyncService_StartSyncServer) error {
	e.mu.Lock()
	if _, exists := e.peers[peerNodeID]; exists {
		e.mu.Unlock()
		e.logger.Warn("rejecting duplicate follower stream", zap.String("peer_id", peerNodeID))
		return ErrProtocolViolation
	}
	e.mu.Unlock()

	if err := stream.SendHeader(peer.HeaderFor(e.nodeID)); err != nil {
		return err
	}
	reactor := peer.New(e, stream, peerNodeID, e.tickInterval)
	e.mu.Lock()
	e.peers[peerNodeID] = reactor
	e.mu.Unlock()
	e.index.add(peerNodeID)

	e.logger.Info("accepted follower stream", zap.String("peer_id", peerNodeID))
	return reactor.Run(ctx)
}

// Follow is called exactly once in a follower process; it dials the
// leader over conn, exchanges initial metadata to learn the leader's node
// id, and runs the client reactor in the background, per spec.md section
// 4.4's `follow(channel)`.
func (e *Engine) Follow(ctx context.Context, conn *grpc.ClientConn) error {
	e.mu.Lock()
	if e.clientC != nil {
		e.mu.Unlock()
		return ErrProtocolViolation
	}
	e.clientC = conn
	e.mu.Unlock()

	client := syncpb.NewSyncServiceClient(conn)
	return peer.Follow(ctx, e, client, e.tickInterval)
}

// Close stops the engine's executor. Peer reactors already running are
// not force-terminated; callers should cancel the context passed to
// Accept/Follow first.
func (e *Engine) Close() {
	e.executor.Close()
	if e.clientC != nil {
		e.clientC.Close()
	}
}
