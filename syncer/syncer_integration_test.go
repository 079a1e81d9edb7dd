package syncer_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vx-labs/sync-fabric/syncer"
	"github.com/vx-labs/sync-fabric/syncer/service"
	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// testCluster wires one leader Engine behind a bufconn listener and N
// follower Engines dialed against it, mirroring the leader/follower star
// topology spec.md section 1 describes without touching a real socket.
type testCluster struct {
	leader    *syncer.Engine
	followers []*syncer.Engine
	server    *grpc.Server
	conns     []*grpc.ClientConn
}

func newTestCluster(t *testing.T, followerCount int) *testCluster {
	t.Helper()

	leader := syncer.New("leader", syncer.WithTickInterval(10*time.Millisecond))
	grpcServer := grpc.NewServer()
	syncpb.RegisterSyncServiceServer(grpcServer, service.New(leader))

	listener := bufconn.Listen(1024 * 1024)
	go grpcServer.Serve(listener)

	tc := &testCluster{leader: leader, server: grpcServer}

	for i := 0; i < followerCount; i++ {
		nodeID := string(rune('A' + i))
		follower := syncer.New("follower-"+nodeID, syncer.WithTickInterval(10*time.Millisecond))

		conn, err := grpc.DialContext(context.Background(), "bufnet",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return listener.DialContext(ctx)
			}),
			grpc.WithInsecure(),
			grpc.WithBlock(),
		)
		require.NoError(t, err)

		require.NoError(t, follower.Follow(context.Background(), conn))

		tc.followers = append(tc.followers, follower)
		tc.conns = append(tc.conns, conn)
	}

	return tc
}

func (tc *testCluster) Close() {
	for _, conn := range tc.conns {
		conn.Close()
	}
	tc.leader.Close()
	for _, f := range tc.followers {
		f.Close()
	}
	tc.server.Stop()
}

func registerStaticReporter(e *syncer.Engine, componentID syncpb.ComponentId, version uint64, payload string) {
	e.Register(componentID, syncer.ReporterFunc(func() *syncpb.SyncMessage {
		return &syncpb.SyncMessage{
			NodeId:      e.NodeID(),
			ComponentId: componentID,
			Version:     version,
			Payload:     []byte(payload),
		}
	}), nil)
}

// TestClusterConvergesWithinBoundedLatency covers scenario S3: a value
// reported by one follower must appear in every other follower's store
// within a small bounded number of tick intervals.
func TestClusterConvergesWithinBoundedLatency(t *testing.T) {
	tc := newTestCluster(t, 3)
	defer tc.Close()

	registerStaticReporter(tc.followers[0], syncpb.ComponentId_RESOURCE_VIEW, 1, "hello")

	require.Eventually(t, func() bool {
		dump := tc.followers[2].Dump()
		for _, bucket := range dump {
			for _, m := range bucket {
				if m.NodeId == tc.followers[0].NodeID() && string(m.Payload) == "hello" {
					return true
				}
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "update from follower A did not converge to follower C in time")
}

// TestClusterSplitHorizonNeverEchoesOriginator covers scenario S2: the
// leader never relays a follower's own update back to it.
func TestClusterSplitHorizonNeverEchoesOriginator(t *testing.T) {
	tc := newTestCluster(t, 2)
	defer tc.Close()

	registerStaticReporter(tc.followers[0], syncpb.ComponentId_NODE_HEALTH, 1, "alive")

	require.Eventually(t, func() bool {
		dump := tc.followers[1].Dump()
		for _, bucket := range dump {
			for _, m := range bucket {
				if m.NodeId == tc.followers[0].NodeID() {
					return true
				}
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	dump := tc.followers[0].Dump()
	for peer, bucket := range dump {
		if peer == tc.followers[0].NodeID() {
			// Follower A's own snapshot lives in its local bucket.
			continue
		}
		for _, m := range bucket {
			assert.NotEqual(t, tc.followers[0].NodeID(), m.NodeId, "a follower must never receive its own update echoed back")
		}
	}
}

// TestClusterDisjointOriginatorsConverge covers scenario S6: two
// followers each reporting a distinct component both converge to a
// third follower that reports nothing.
func TestClusterDisjointOriginatorsConverge(t *testing.T) {
	tc := newTestCluster(t, 3)
	defer tc.Close()

	registerStaticReporter(tc.followers[0], syncpb.ComponentId_RESOURCE_VIEW, 1, "from-a")
	registerStaticReporter(tc.followers[1], syncpb.ComponentId_CLUSTER_MEMBERSHIP, 1, "from-b")

	require.Eventually(t, func() bool {
		seenA, seenB := false, false
		for _, bucket := range tc.followers[2].Dump() {
			for _, m := range bucket {
				if m.NodeId == tc.followers[0].NodeID() {
					seenA = true
				}
				if m.NodeId == tc.followers[1].NodeID() {
					seenB = true
				}
			}
		}
		return seenA && seenB
	}, 2*time.Second, 10*time.Millisecond)
}

// TestClusterZeroReportersProducesNoTraffic covers scenario S5: with no
// reporters registered anywhere, followers still connect successfully
// but no message ever appears in any store beyond the self bucket.
func TestClusterZeroReportersProducesNoTraffic(t *testing.T) {
	tc := newTestCluster(t, 2)
	defer tc.Close()

	time.Sleep(100 * time.Millisecond)

	for _, f := range tc.followers {
		for peer, bucket := range f.Dump() {
			if peer == f.NodeID() {
				continue
			}
			assert.Empty(t, bucket)
		}
	}
}

// TestClusterFreshnessIsMonotonicAcrossFollowers covers scenario S1: once
// a higher version has been observed for an originator/component pair,
// no follower ever regresses to a lower version it happens to see later.
func TestClusterFreshnessIsMonotonicAcrossFollowers(t *testing.T) {
	tc := newTestCluster(t, 2)
	defer tc.Close()

	version := uint64(1)
	tc.followers[0].Register(syncpb.ComponentId_ACTOR_TABLE, syncer.ReporterFunc(func() *syncpb.SyncMessage {
		return &syncpb.SyncMessage{
			NodeId:      tc.followers[0].NodeID(),
			ComponentId: syncpb.ComponentId_ACTOR_TABLE,
			Version:     version,
		}
	}), nil)

	require.Eventually(t, func() bool {
		return latestVersion(tc.followers[1], tc.followers[0].NodeID(), syncpb.ComponentId_ACTOR_TABLE) == 1
	}, time.Second, 10*time.Millisecond)

	version = 5
	require.Eventually(t, func() bool {
		return latestVersion(tc.followers[1], tc.followers[0].NodeID(), syncpb.ComponentId_ACTOR_TABLE) == 5
	}, time.Second, 10*time.Millisecond)

	version = 3
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, uint64(5), latestVersion(tc.followers[1], tc.followers[0].NodeID(), syncpb.ComponentId_ACTOR_TABLE),
		"a lower version reported later must never regress the converged value")
}

func latestVersion(e *syncer.Engine, nodeID string, componentID syncpb.ComponentId) uint64 {
	for _, bucket := range e.Dump() {
		for _, m := range bucket {
			if m.NodeId == nodeID && m.ComponentId == componentID {
				return m.Version
			}
		}
	}
	return 0
}
