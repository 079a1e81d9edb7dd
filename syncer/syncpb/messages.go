// Hand-written in the shape of protoc-gen-gogo output; there is no .proto
// source for this package.

package syncpb

import (
	fmt "fmt"

	proto "github.com/gogo/protobuf/proto"
)

// ComponentId identifies a registered local subsystem. The set of variants
// is closed at compile time; COMPONENT_COUNT bounds the reporter/receiver
// registry arrays.
type ComponentId int32

const (
	ComponentId_RESOURCE_VIEW      ComponentId = 0
	ComponentId_CLUSTER_MEMBERSHIP ComponentId = 1
	ComponentId_NODE_HEALTH        ComponentId = 2
	ComponentId_ACTOR_TABLE        ComponentId = 3

	// ComponentCount bounds the registry and the reporter/receiver arrays.
	ComponentCount = 4
)

var componentIdName = map[ComponentId]string{
	ComponentId_RESOURCE_VIEW:      "RESOURCE_VIEW",
	ComponentId_CLUSTER_MEMBERSHIP: "CLUSTER_MEMBERSHIP",
	ComponentId_NODE_HEALTH:        "NODE_HEALTH",
	ComponentId_ACTOR_TABLE:        "ACTOR_TABLE",
}

func (c ComponentId) String() string {
	if name, ok := componentIdName[c]; ok {
		return name
	}
	return fmt.Sprintf("ComponentId(%d)", int32(c))
}

// Valid reports whether c is within the closed, compile-time set of
// component variants.
func (c ComponentId) Valid() bool {
	return c >= 0 && int(c) < ComponentCount
}

// SyncMessage is the wire value object carrying a single component
// snapshot from its originator.
type SyncMessage struct {
	NodeId      string      `protobuf:"bytes,1,opt,name=node_id,json=nodeId,proto3" json:"node_id,omitempty"`
	ComponentId ComponentId `protobuf:"varint,2,opt,name=component_id,json=componentId,proto3,enum=syncpb.ComponentId" json:"component_id,omitempty"`
	Version     uint64      `protobuf:"varint,3,opt,name=version,proto3" json:"version,omitempty"`
	Payload     []byte      `protobuf:"bytes,4,opt,name=payload,proto3" json:"payload,omitempty"`
}

func (m *SyncMessage) Reset()         { *m = SyncMessage{} }
func (m *SyncMessage) String() string { return fmt.Sprintf("%+v", *m) }
func (*SyncMessage) ProtoMessage()    {}

func (m *SyncMessage) GetNodeId() string {
	if m != nil {
		return m.NodeId
	}
	return ""
}
func (m *SyncMessage) GetComponentId() ComponentId {
	if m != nil {
		return m.ComponentId
	}
	return ComponentId_RESOURCE_VIEW
}
func (m *SyncMessage) GetVersion() uint64 {
	if m != nil {
		return m.Version
	}
	return 0
}
func (m *SyncMessage) GetPayload() []byte {
	if m != nil {
		return m.Payload
	}
	return nil
}

// Clone returns a value copy of m, including a copy of the payload slice,
// so the returned message has no aliasing with the store's copy once it is
// placed in an outbound batch.
func (m *SyncMessage) Clone() *SyncMessage {
	if m == nil {
		return nil
	}
	out := &SyncMessage{
		NodeId:      m.NodeId,
		ComponentId: m.ComponentId,
		Version:     m.Version,
	}
	if m.Payload != nil {
		out.Payload = make([]byte, len(m.Payload))
		copy(out.Payload, m.Payload)
	}
	return out
}

// SyncMessageBatch is the wire frame exchanged on every tick.
type SyncMessageBatch struct {
	SyncMessages []*SyncMessage `protobuf:"bytes,1,rep,name=sync_messages,json=syncMessages,proto3" json:"sync_messages,omitempty"`
}

func (m *SyncMessageBatch) Reset()         { *m = SyncMessageBatch{} }
func (m *SyncMessageBatch) String() string { return fmt.Sprintf("%+v", *m) }
func (*SyncMessageBatch) ProtoMessage()    {}

func (m *SyncMessageBatch) GetSyncMessages() []*SyncMessage {
	if m != nil {
		return m.SyncMessages
	}
	return nil
}

// Clear resets the batch to zero length without releasing the backing
// array, so it can be reused across reads without per-tick allocation.
func (m *SyncMessageBatch) Clear() {
	m.SyncMessages = m.SyncMessages[:0]
}

// MarshalBinary encodes the batch using the same reflection-based proto
// encoder the rest of this stack leans on (see messages/server.go and
// cluster/layer/gossip.go), for callers that need bytes outside of the
// gRPC codec path. cli.ServeHTTPHealth's /debug/syncer.pb handler calls
// this per peer bucket instead of JSON-encoding the dump.
func (m *SyncMessageBatch) MarshalBinary() ([]byte, error) {
	return proto.Marshal(m)
}

// UnmarshalBinary is the inverse of MarshalBinary. cli.ReadDumpFrames
// calls it to decode each peer bucket syncctl's "dump --format=pb" reads.
func (m *SyncMessageBatch) UnmarshalBinary(data []byte) error {
	return proto.Unmarshal(data, m)
}
