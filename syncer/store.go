package syncer

import (
	"sync"

	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// IngestResult reports the outcome of Store.Ingest.
type IngestResult int

const (
	// Accepted means the message was the freshest seen for its
	// (originator, component) pair and is now stored.
	Accepted IngestResult = iota
	// Stale means the message's version did not exceed the one already
	// stored for its (originator, component) pair; it was dropped.
	Stale
)

type messageKey struct {
	nodeID      string
	componentID syncpb.ComponentId
}

// Store is the two-level, version-aware message store described in
// spec.md section 3: outer key is the peer we most recently learned a
// message from, inner key is (originator, component).
type Store struct {
	mu      sync.Mutex
	buckets map[string]map[messageKey]*syncpb.SyncMessage
	// freshest indexes the current globally-freshest entry for each
	// (originator, component) pair and the bucket it lives in, so Ingest
	// doesn't need to scan every bucket to find the prior entry.
	freshest map[messageKey]freshEntry
}

type freshEntry struct {
	fromPeer string
	message  *syncpb.SyncMessage
}

// NewStore constructs an empty message store.
func NewStore() *Store {
	return &Store{
		buckets:  map[string]map[messageKey]*syncpb.SyncMessage{},
		freshest: map[messageKey]freshEntry{},
	}
}

// EnsurePeerBucket idempotently creates an empty outer-map entry for
// fromPeer so that subsequent queries are stable even before any message
// has arrived from that peer.
func (s *Store) EnsurePeerBucket(fromPeer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureBucketLocked(fromPeer)
}

func (s *Store) ensureBucketLocked(fromPeer string) map[messageKey]*syncpb.SyncMessage {
	bucket, ok := s.buckets[fromPeer]
	if !ok {
		bucket = map[messageKey]*syncpb.SyncMessage{}
		s.buckets[fromPeer] = bucket
	}
	return bucket
}

// Ingest inserts msg under the fromPeer bucket if it is the freshest
// message seen so far for (msg.NodeId, msg.ComponentId); otherwise it is
// dropped as Stale. Ties (equal version) are kept as the existing entry.
func (s *Store) Ingest(fromPeer string, msg *syncpb.SyncMessage) IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := messageKey{nodeID: msg.NodeId, componentID: msg.ComponentId}
	current, exists := s.freshest[key]
	if exists && msg.Version <= current.message.Version {
		return Stale
	}

	stored := msg.Clone()
	if exists && current.fromPeer != fromPeer {
		delete(s.buckets[current.fromPeer], key)
	}
	bucket := s.ensureBucketLocked(fromPeer)
	bucket[key] = stored
	s.freshest[key] = freshEntry{fromPeer: fromPeer, message: stored}
	return Accepted
}

// MessagesFor returns every freshest message in the store except those
// learned from peerNodeID — the split-horizon rule.
func (s *Store) MessagesFor(peerNodeID string) []*syncpb.SyncMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*syncpb.SyncMessage, 0, len(s.freshest))
	for _, entry := range s.freshest {
		if entry.fromPeer == peerNodeID {
			continue
		}
		out = append(out, entry.message.Clone())
	}
	return out
}

// Dump returns a snapshot of the whole store keyed by the peer bucket it
// lives in, for operational visibility (see SPEC_FULL.md 4.8).
func (s *Store) Dump() map[string][]*syncpb.SyncMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]*syncpb.SyncMessage, len(s.buckets))
	for peer, bucket := range s.buckets {
		messages := make([]*syncpb.SyncMessage, 0, len(bucket))
		for _, msg := range bucket {
			messages = append(messages, msg.Clone())
		}
		out[peer] = messages
	}
	return out
}
