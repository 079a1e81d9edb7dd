package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

func msg(nodeID string, componentID syncpb.ComponentId, version uint64) *syncpb.SyncMessage {
	return &syncpb.SyncMessage{
		NodeId:      nodeID,
		ComponentId: componentID,
		Version:     version,
		Payload:     []byte(nodeID),
	}
}

func TestStoreIngestFreshness(t *testing.T) {
	store := NewStore()

	t.Run("first message for a pair is accepted", func(t *testing.T) {
		result := store.Ingest("peerA", msg("A", syncpb.ComponentId_RESOURCE_VIEW, 1))
		assert.Equal(t, Accepted, result)
	})

	t.Run("newer version replaces older and moves bucket", func(t *testing.T) {
		result := store.Ingest("peerB", msg("A", syncpb.ComponentId_RESOURCE_VIEW, 2))
		require.Equal(t, Accepted, result)

		messagesFromA := store.MessagesFor("peerB")
		assert.Empty(t, messagesFromA, "split-horizon must exclude peerB's own delivery")

		messagesFromOther := store.MessagesFor("someone-else")
		require.Len(t, messagesFromOther, 1)
		assert.EqualValues(t, 2, messagesFromOther[0].Version)
	})

	t.Run("stale version is dropped store-wide", func(t *testing.T) {
		result := store.Ingest("peerA", msg("A", syncpb.ComponentId_RESOURCE_VIEW, 2))
		assert.Equal(t, Stale, result)

		result = store.Ingest("peerA", msg("A", syncpb.ComponentId_RESOURCE_VIEW, 1))
		assert.Equal(t, Stale, result)

		messages := store.MessagesFor("nobody")
		require.Len(t, messages, 1)
		assert.EqualValues(t, 2, messages[0].Version)
	})

	t.Run("idempotent ingest", func(t *testing.T) {
		before := store.Dump()
		result := store.Ingest("peerB", msg("A", syncpb.ComponentId_RESOURCE_VIEW, 2))
		assert.Equal(t, Stale, result)
		after := store.Dump()
		assert.Equal(t, before, after)
	})
}

func TestStoreSplitHorizon(t *testing.T) {
	store := NewStore()
	store.Ingest("peerA", msg("A", syncpb.ComponentId_RESOURCE_VIEW, 1))
	store.Ingest("peerB", msg("B", syncpb.ComponentId_RESOURCE_VIEW, 1))
	store.Ingest("self", msg("L", syncpb.ComponentId_CLUSTER_MEMBERSHIP, 1))

	forA := store.MessagesFor("peerA")
	for _, m := range forA {
		assert.NotEqual(t, "A", m.NodeId, "must not echo back a message learned from peerA")
	}
	assert.Len(t, forA, 2)

	forB := store.MessagesFor("peerB")
	assert.Len(t, forB, 2)
	for _, m := range forB {
		assert.NotEqual(t, "B", m.NodeId)
	}
}

func TestStoreEnsurePeerBucketIsIdempotentAndStable(t *testing.T) {
	store := NewStore()
	store.EnsurePeerBucket("peerA")
	store.EnsurePeerBucket("peerA")

	assert.Empty(t, store.MessagesFor("someone-else"))

	dump := store.Dump()
	_, ok := dump["peerA"]
	assert.True(t, ok)
}

func TestStoreTieBreakKeepsExisting(t *testing.T) {
	store := NewStore()
	store.Ingest("peerA", msg("A", syncpb.ComponentId_RESOURCE_VIEW, 5))
	result := store.Ingest("peerB", msg("A", syncpb.ComponentId_RESOURCE_VIEW, 5))
	assert.Equal(t, Stale, result)

	messages := store.MessagesFor("peerB")
	require.Len(t, messages, 1)
	assert.Equal(t, "peerA", firstBucketHolding(store, "A", syncpb.ComponentId_RESOURCE_VIEW))
}

func firstBucketHolding(store *Store, nodeID string, componentID syncpb.ComponentId) string {
	for peer, messages := range store.Dump() {
		for _, m := range messages {
			if m.NodeId == nodeID && m.ComponentId == componentID {
				return peer
			}
		}
	}
	return ""
}
