// Package node ties the per-node singletons together into one record that
// is passed explicitly to every other component, rather than kept as
// process-wide globals, so a test suite can instantiate multiple nodes
// in one process.
package node

import (
	"sync"

	"go.uber.org/zap"

	"github.com/martelogan/simulated-link-state-routing/internal/lsd"
	"github.com/martelogan/simulated-link-state-routing/internal/ports"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

// Node is the single shared-state record of one simulated router: its own
// identity, its Link-State Database, its ports table, and the flags that
// gate the client-initiated flows.
type Node struct {
	Id       topology.NodeId
	Endpoint topology.ProcessEndpoint
	MinPort  int
	MaxPort  int

	LSD   *lsd.Database
	Ports *ports.Table

	Log *zap.Logger

	// selfMu guards the compound "read ports -> bump sequence -> write
	// self-LSA" operation so it is atomic with respect to any other
	// writer performing the same compound operation concurrently.
	// lsd.Database's own mutex still makes each individual Get/Put/
	// SnapshotValues atomic; selfMu is the wider, node-level lock for the
	// multi-step sequence built on top of them.
	selfMu      sync.Mutex
	selfSeq     int
	hasSelfLSA  bool
	everSeenLSA map[topology.NodeId]bool
	seenMu      sync.Mutex

	startMu     sync.Mutex
	hasRunStart bool
}

// New creates a Node with an empty ports table and an LSD seeded with its
// own self-entry (sequence 0, no links yet), so the LSD always contains a
// self-entry for the local node even before any handshake runs.
func New(id topology.NodeId, endpoint topology.ProcessEndpoint, minPort, maxPort int, log *zap.Logger) *Node {
	n := &Node{
		Id:          id,
		Endpoint:    endpoint,
		MinPort:     minPort,
		MaxPort:     maxPort,
		LSD:         lsd.New(),
		Ports:       ports.New(),
		Log:         log,
		selfSeq:     -1,
		everSeenLSA: make(map[topology.NodeId]bool),
	}
	n.RewriteSelfLSA(false)
	return n
}

// buildSelfLinks derives this node's outbound link set from the occupied,
// TWO_WAY ports table slots: the self-LSA's link list is always in
// one-to-one correspondence with this node's occupied ports whose status
// is TWO_WAY.
func (n *Node) buildSelfLinks() []topology.LinkDescription {
	links := []topology.LinkDescription{}
	for i, link := range n.Ports.Snapshot() {
		if link == nil || link.Target.Status != topology.TwoWay {
			continue
		}
		links = append(links, topology.LinkDescription{
			NeighborNodeId:  link.Target.NodeId,
			PortIndexOrigin: i,
			Weight:          link.Target.Weight,
		})
	}
	return links
}

// RewriteSelfLSA recomputes this node's self-LSA from the current ports
// table, bumps the sequence number, stores it in the LSD, and returns it.
// This is the single choke point used both for ordinary topology changes
// and for the shutdown flag transition, so the bump-and-write is always
// performed under the same lock.
func (n *Node) RewriteSelfLSA(shutdown bool) topology.LSA {
	n.selfMu.Lock()
	defer n.selfMu.Unlock()

	n.selfSeq++
	n.hasSelfLSA = true

	lsa := topology.LSA{
		OriginNodeId: n.Id,
		SeqNumber:    n.selfSeq,
		HasShutdown:  shutdown,
		Links:        n.buildSelfLinks(),
	}
	n.LSD.Put(lsa)
	return lsa
}

// SelfLSA returns the current self-LSA, rewriting one from the ports table
// first if none has ever been created.
func (n *Node) SelfLSA() topology.LSA {
	n.selfMu.Lock()
	has := n.hasSelfLSA
	n.selfMu.Unlock()

	if !has {
		return n.RewriteSelfLSA(false)
	}
	lsa, _ := n.LSD.Get(n.Id)
	return lsa
}

// MarkSeen records that an LSAUPDATE has now been seen from origin at
// least once, and reports whether this call is the first time.
func (n *Node) MarkSeen(origin topology.NodeId) (firstTime bool) {
	n.seenMu.Lock()
	defer n.seenMu.Unlock()
	if n.everSeenLSA[origin] {
		return false
	}
	n.everSeenLSA[origin] = true
	return true
}

// HasRunStart reports whether the start flow has run at least once.
func (n *Node) HasRunStart() bool {
	n.startMu.Lock()
	defer n.startMu.Unlock()
	return n.hasRunStart
}

// SetRunStart marks the one-shot start flag that gates connect.
func (n *Node) SetRunStart() {
	n.startMu.Lock()
	defer n.startMu.Unlock()
	n.hasRunStart = true
}
