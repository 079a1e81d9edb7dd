package syncer

import (
	"sync"

	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// Reporter produces a snapshot of one registered component. Snapshot must
// be cheap, non-blocking, and non-failing: it is called at most once per
// tick per registered component and the reporter does not retain
// ownership of the returned message.
type Reporter interface {
	Snapshot() *syncpb.SyncMessage
}

// ReporterFunc adapts a plain function to the Reporter interface.
type ReporterFunc func() *syncpb.SyncMessage

func (f ReporterFunc) Snapshot() *syncpb.SyncMessage { return f() }

// Receiver consumes an accepted update for one registered component. It
// must not block. Update has no error result, so the engine logs nothing
// on a receiver's behalf; each accepted update is delivered once and never
// retried.
type Receiver interface {
	Update(msg *syncpb.SyncMessage)
}

// ReceiverFunc adapts a plain function to the Receiver interface.
type ReceiverFunc func(msg *syncpb.SyncMessage)

func (f ReceiverFunc) Update(msg *syncpb.SyncMessage) { f(msg) }

// Registry is the fixed-size reporter/receiver table described in
// spec.md section 4.2: at most one reporter and one receiver per
// component id, populated by local subsystems at startup.
type Registry struct {
	mu        sync.RWMutex
	reporters [syncpb.ComponentCount]Reporter
	receivers [syncpb.ComponentCount]Receiver
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register binds reporter and receiver to componentID, atomically
// replacing any previous binding. Re-registration while streams are
// running is well-defined per spec.md section 9's Open Question: the swap
// happens under the registry lock, and any Update call already holding
// the prior receiver pointer completes against it rather than blocking or
// tearing.
func (r *Registry) Register(componentID syncpb.ComponentId, reporter Reporter, receiver Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reporters[componentID] = reporter
	r.receivers[componentID] = receiver
}

// ReporterAt returns the reporter bound to componentID, or nil.
func (r *Registry) ReporterAt(componentID syncpb.ComponentId) Reporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reporters[componentID]
}

// ReceiverAt returns the receiver bound to componentID, or nil.
func (r *Registry) ReceiverAt(componentID syncpb.ComponentId) Receiver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.receivers[componentID]
}

// Snapshot returns the current snapshot from every registered reporter,
// skipping empty slots. Called once per tick by the peer reactor's write
// half.
func (r *Registry) Snapshot() []*syncpb.SyncMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*syncpb.SyncMessage, 0, syncpb.ComponentCount)
	for _, reporter := range r.reporters {
		if reporter == nil {
			continue
		}
		out = append(out, reporter.Snapshot())
	}
	return out
}
