package syncer

import (
	"sync"

	"github.com/google/btree"
)

// peerIDItem is a btree.Item wrapping a node id string, used to keep an
// ordered index of connected follower ids for deterministic iteration in
// Engine.Peers, mirroring the ordered pool index in the teacher's
// cluster/pool/caller.go.
type peerIDItem string

func (p peerIDItem) Less(other btree.Item) bool {
	return p < other.(peerIDItem)
}

// peerIndex is an ordered set of connected peer node ids.
type peerIndex struct {
	mu   sync.Mutex
	tree *btree.BTree
}

func newPeerIndex() *peerIndex {
	return &peerIndex{tree: btree.New(2)}
}

func (p *peerIndex) add(nodeID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree.ReplaceOrInsert(peerIDItem(nodeID))
}

func (p *peerIndex) remove(nodeID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree.Delete(peerIDItem(nodeID))
}

// list returns connected peer ids in ascending order.
func (p *peerIndex) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, p.tree.Len())
	p.tree.Ascend(func(item btree.Item) bool {
		out = append(out, string(item.(peerIDItem)))
		return true
	})
	return out
}
