package peer

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vx-labs/sync-fabric/syncer/syncpb"
)

// DefaultTickInterval is the periodic write cycle spec.md section 4.3
// specifies: ~100ms, bounding convergence latency while bounding the CPU
// cost of empty ticks. It is a design constant, not dynamically tuned.
const DefaultTickInterval = 100 * time.Millisecond

// Reactor drives one peer's bidirectional stream: the read half (inbound
// messages dispatched onto the Host's executor) and the write half (one
// batched frame per tick, skipped when split-horizon yields nothing to
// send). One Reactor type serves both the leader-side (accepting a
// follower) and follower-side (dialing the leader) roles — they differ
// only in how the stream and peerNodeID were obtained, not in steady-state
// behavior, per spec.md section 9's guidance against inheritance.
type Reactor struct {
	host         Host
	stream       Stream
	peerNodeID   string
	tickInterval time.Duration
	logger       *zap.Logger

	closed atomic.Bool
	cancel context.CancelFunc

	inbound  *syncpb.SyncMessageBatch
	outbound *syncpb.SyncMessageBatch
}

// New constructs a Reactor for an already-bootstrapped stream: the
// initial-metadata exchange (spec.md section 4.3's "Bootstrap
// differences") must have already happened, and the store bucket for
// peerNodeID must already exist (callers should call host.EnsureBucket
// before constructing the Reactor, or rely on Run's own call to it).
func New(host Host, stream Stream, peerNodeID string, tickInterval time.Duration) *Reactor {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	return &Reactor{
		host:         host,
		stream:       stream,
		peerNodeID:   peerNodeID,
		tickInterval: tickInterval,
		logger:       host.Logger().With(zap.String("peer_id", peerNodeID)),
		inbound:      &syncpb.SyncMessageBatch{},
		outbound:     &syncpb.SyncMessageBatch{},
	}
}

// Run starts both half-loops and blocks until the stream terminates,
// either because the peer closed it, a transport error occurred, or ctx
// was cancelled. On return, the reactor has already posted its own
// removal from the engine's peer map (spec.md section 4.3's
// "Termination").
func (r *Reactor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	defer cancel()

	r.host.EnsureBucket(r.peerNodeID)

	readErr := make(chan error, 1)
	go func() { readErr <- r.readLoop(ctx) }()

	writeErr := make(chan error, 1)
	go func() { writeErr <- r.writeLoop(ctx) }()

	var err error
	readDone, writeDone := false, false
	select {
	case err = <-readErr:
		readDone = true
	case err = <-writeErr:
		writeDone = true
	case <-ctx.Done():
		err = ctx.Err()
	}

	r.terminate()
	// Drain whichever loop hadn't reported yet; both exit once cancel()
	// above (via terminate -> cancel) has fired.
	if !readDone {
		<-readErr
	}
	if !writeDone {
		<-writeErr
	}
	return err
}

// terminate marks the reactor closed and cancels the tick timer, and
// posts the engine-side removal task. A tick callback firing after this
// point observes closed and returns without re-entering the write loop,
// per spec.md section 5's cancellation rules.
func (r *Reactor) terminate() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	peerNodeID := r.peerNodeID
	r.host.Post(func() {
		r.host.Forget(peerNodeID)
	})
	r.logger.Info("peer stream terminated")
}

func (r *Reactor) readLoop(ctx context.Context) error {
	for {
		r.inbound.Clear()
		if err := r.stream.RecvMsg(r.inbound); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if r.closed.Load() {
			return nil
		}
		messages := make([]*syncpb.SyncMessage, len(r.inbound.SyncMessages))
		copy(messages, r.inbound.SyncMessages)
		peerNodeID := r.peerNodeID
		r.host.Post(func() {
			r.host.Update(peerNodeID, messages)
		})
	}
}

func (r *Reactor) writeLoop(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if r.closed.Load() {
			return nil
		}

		toSend := r.refreshAndQuery()
		if len(toSend) == 0 {
			timer.Reset(r.tickInterval)
			continue
		}

		r.outbound.SyncMessages = toSend
		if err := r.stream.SendMsg(r.outbound); err != nil {
			return err
		}
		timer.Reset(r.tickInterval)
	}
}

// refreshAndQuery implements spec.md section 4.3's write-half steps 1-2:
// pull fresh reporter snapshots into the store under the local node id,
// then query the split-horizon view for this peer. Both happen inside one
// task on the host's executor so the snapshot-then-query pair is
// atomic with respect to concurrently arriving reads.
func (r *Reactor) refreshAndQuery() []*syncpb.SyncMessage {
	done := make(chan struct{})
	var toSend []*syncpb.SyncMessage
	r.host.Post(func() {
		defer close(done)
		snapshots := r.host.ReporterSnapshot()
		if len(snapshots) > 0 {
			r.host.Update(r.host.NodeID(), snapshots)
		}
		toSend = r.host.SyncMessages(r.peerNodeID)
	})
	<-done
	return toSend
}
