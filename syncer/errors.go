package syncer

import "github.com/pkg/errors"

// ErrStale is returned by Engine.updateOne when an ingest carries a
// version that does not exceed the one already stored for that
// (originator, component) pair. Update does not log it: under normal
// multi-peer fan-out the same freshest update arrives from more than one
// peer, so staleness is routine, not a fault.
var ErrStale = errors.New("syncer: stale message version")

// ErrUnknownComponent is returned by Engine.updateOne when a message's
// component id is outside the closed ComponentId set, or is valid but has
// no receiver bound in the registry — in both cases there is nowhere to
// route the update.
var ErrUnknownComponent = errors.New("syncer: no receiver registered for component")

// ErrProtocolViolation is returned by Engine.Accept when a stream arrives
// for a peer id that already has one attached, and by Engine.Follow when
// the engine already follows a leader. A stream that omits the node_id
// metadata is rejected by the service adapter with a gRPC InvalidArgument
// status instead.
var ErrProtocolViolation = errors.New("syncer: protocol violation")
