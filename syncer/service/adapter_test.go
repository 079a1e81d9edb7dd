package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/vx-labs/sync-fabric/syncer"
	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// fakeServerStream is a minimal grpc.ServerStream plus the generated
// Send/Recv pair, enough to drive Adapter.StartSync and Engine.Accept
// without a real network connection.
type fakeServerStream struct {
	ctx context.Context

	mu     sync.Mutex
	header metadata.MD

	recvOnce sync.Once
	closed   chan struct{}
}

func newFakeServerStream(ctx context.Context) *fakeServerStream {
	return &fakeServerStream{ctx: ctx, closed: make(chan struct{})}
}

func (s *fakeServerStream) SetHeader(md metadata.MD) error { return nil }

func (s *fakeServerStream) SendHeader(md metadata.MD) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = md
	return nil
}

func (s *fakeServerStream) SetTrailer(md metadata.MD) {}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func (s *fakeServerStream) SendMsg(m interface{}) error { return nil }

func (s *fakeServerStream) RecvMsg(m interface{}) error {
	<-s.closed
	return io.EOF
}

func (s *fakeServerStream) Send(*syncpb.SyncMessageBatch) error { return nil }

func (s *fakeServerStream) Recv() (*syncpb.SyncMessageBatch, error) {
	<-s.closed
	return nil, io.EOF
}

func (s *fakeServerStream) headerSent() metadata.MD {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

var _ syncpb.SyncService_StartSyncServer = (*fakeServerStream)(nil)

func TestAdapterRejectsMissingNodeIDMetadata(t *testing.T) {
	engine := syncer.New("leader")
	defer engine.Close()
	adapter := New(engine)

	stream := newFakeServerStream(context.Background())
	close(stream.closed)

	err := adapter.StartSync(stream)
	assert.Error(t, err)
	assert.Empty(t, stream.headerSent())
}

func TestAdapterAcceptsAndSendsLocalNodeIDAsHeader(t *testing.T) {
	engine := syncer.New("leader")
	defer engine.Close()
	adapter := New(engine)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(syncpb.NodeIDMetadataKey, "followerA"))
	stream := newFakeServerStream(ctx)

	done := make(chan error, 1)
	go func() { done <- adapter.StartSync(stream) }()

	require.Eventually(t, func() bool {
		return stream.headerSent() != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"leader"}, stream.headerSent().Get(syncpb.NodeIDMetadataKey))
	assert.Contains(t, engine.Peers(), "followerA")

	close(stream.closed)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("StartSync did not return after stream closed")
	}
}

func TestAdapterRejectsDuplicatePeerID(t *testing.T) {
	engine := syncer.New("leader")
	defer engine.Close()
	adapter := New(engine)

	ctx1 := metadata.NewIncomingContext(context.Background(), metadata.Pairs(syncpb.NodeIDMetadataKey, "followerA"))
	stream1 := newFakeServerStream(ctx1)
	done1 := make(chan error, 1)
	go func() { done1 <- adapter.StartSync(stream1) }()

	require.Eventually(t, func() bool {
		return stream1.headerSent() != nil
	}, time.Second, 5*time.Millisecond)

	ctx2 := metadata.NewIncomingContext(context.Background(), metadata.Pairs(syncpb.NodeIDMetadataKey, "followerA"))
	stream2 := newFakeServerStream(ctx2)
	close(stream2.closed)
	err := adapter.StartSync(stream2)
	assert.Error(t, err)

	close(stream1.closed)
	<-done1
}
