// Package flood implements LSA flooding and LSD synchronization: the
// outbound broadcast used after any local or remote topology change, and
// the inline two-way exchange run once per handshake or disconnect over
// the connection that is already open.
package flood

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/martelogan/simulated-link-state-routing/internal/node"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
	"github.com/martelogan/simulated-link-state-routing/internal/wire"
)

// Dialer opens an outbound connection; swappable in tests.
type Dialer func(network, address string) (net.Conn, error)

// ToNeighbors implements the outbound broadcast, floodToNeighbors(exclude): for
// every TWO_WAY, non-excluded, non-shut-down neighbor, open a fresh
// outbound connection, send one LSAUPDATE carrying the full LSD snapshot,
// and close. A failure reaching one neighbor never aborts the broadcast
// to the others.
func ToNeighbors(n *node.Node, exclude topology.NodeId, dial Dialer) {
	snapshot := n.LSD.SnapshotValues()

	for _, link := range n.Ports.Snapshot() {
		if link == nil || link.Target.Status != topology.TwoWay {
			continue
		}
		if link.Target.NodeId == exclude {
			continue
		}
		if lsa, ok := n.LSD.Get(link.Target.NodeId); ok && lsa.HasShutdown {
			continue
		}

		addr := link.Target.Endpoint.String()
		conn, err := dial("tcp", addr)
		if err != nil {
			n.Log.Warn("flood: failed to reach neighbor",
				zap.String("neighbor", string(link.Target.NodeId)), zap.Error(err))
			continue
		}

		wc := wire.NewConn(conn)
		pkt := wire.SospfPacket{
			SrcNodeId: n.Id,
			DstNodeId: link.Target.NodeId,
			Type:      wire.LsaUpdate,
			LSAArray:  snapshot,
		}
		if err := wc.Send(pkt); err != nil {
			n.Log.Warn("flood: failed to send LSAUPDATE",
				zap.String("neighbor", string(link.Target.NodeId)), zap.Error(err))
		}
		wc.Close()
	}
}

// Ingest applies the LSA acceptance algorithm to an incoming LSA array: each
// LSA replaces the stored one for its origin when fresher. If sender is a
// directly attached neighbor at senderPortIdx (of any status), and the freshly
// stored LSA for that neighbor now advertises a different weight back to
// this node than the local port records, the local port weight is updated
// to match and the self-LSA is rewritten: this is the mechanism by which
// link-weight changes propagate across the network.
func Ingest(n *node.Node, lsas []topology.LSA, sender topology.NodeId, senderPortIdx int, senderAttached bool) (changed bool) {
	for _, lsa := range lsas {
		if n.LSD.TryAccept(lsa) {
			changed = true
		}
	}

	if !senderAttached {
		return changed
	}

	senderLSA, ok := n.LSD.Get(sender)
	if !ok {
		return changed
	}

	for _, ld := range senderLSA.Links {
		if ld.NeighborNodeId != n.Id {
			continue
		}
		local := n.Ports.Get(senderPortIdx)
		if local != nil && local.Target.NodeId == sender && local.Target.Weight != ld.Weight {
			n.Ports.SetWeight(senderPortIdx, ld.Weight)
			n.RewriteSelfLSA(false)
			changed = true
		}
		break
	}
	return changed
}

// AfterIngestPolicy decides whether to flood and, if so, which exclusion
// to use, per the "first-time vs. repeat contact" rule.
func AfterIngestPolicy(firstTimeFromSender bool, changed bool, sender topology.NodeId) (shouldFlood bool, exclude topology.NodeId) {
	if firstTimeFromSender {
		return true, "" // broadcast to all, including the sender
	}
	if changed {
		return true, sender
	}
	return false, ""
}

// SyncAsServer runs the server half of the inline LSD synchronization:
// wait for the peer's LSAUPDATE first, apply it (and let the
// weight-propagation side effect rewrite the self-LSA if needed), then
// send this node's own up-to-date LSAUPDATE back. peerAttached must be
// false once the peer's port slot has already been detached (e.g. during
// a DISCONNECT), so the weight-propagation step is skipped rather than
// consulting a stale or absent slot. This is also where peer is marked
// seen, so the unsolicited LSAUPDATE that follows the handshake is
// classified as repeat contact, not first contact.
func SyncAsServer(n *node.Node, wc *wire.Conn, peer topology.NodeId, peerPortIdx int, peerAttached bool) error {
	pkt, err := wc.Recv()
	if err != nil {
		return fmt.Errorf("flood: sync as server: recv: %w", err)
	}
	if pkt.Type != wire.LsaUpdate {
		return fmt.Errorf("flood: sync as server: expected LSAUPDATE, got %s", pkt.Type)
	}
	n.MarkSeen(peer)
	Ingest(n, pkt.LSAArray, peer, peerPortIdx, peerAttached)

	reply := wire.SospfPacket{
		SrcNodeId: n.Id,
		DstNodeId: peer,
		Type:      wire.LsaUpdate,
		LSAArray:  n.LSD.SnapshotValues(),
	}
	if err := wc.Send(reply); err != nil {
		return fmt.Errorf("flood: sync as server: send: %w", err)
	}
	return nil
}

// SyncAsClient runs the client half: send this node's LSAUPDATE first,
// then wait for and apply the peer's, treating it as authoritative. See
// SyncAsServer for the meaning of peerAttached.
func SyncAsClient(n *node.Node, wc *wire.Conn, peer topology.NodeId, peerPortIdx int, peerAttached bool) error {
	out := wire.SospfPacket{
		SrcNodeId: n.Id,
		DstNodeId: peer,
		Type:      wire.LsaUpdate,
		LSAArray:  n.LSD.SnapshotValues(),
	}
	if err := wc.Send(out); err != nil {
		return fmt.Errorf("flood: sync as client: send: %w", err)
	}

	pkt, err := wc.Recv()
	if err != nil {
		return fmt.Errorf("flood: sync as client: recv: %w", err)
	}
	if pkt.Type != wire.LsaUpdate {
		return fmt.Errorf("flood: sync as client: expected LSAUPDATE, got %s", pkt.Type)
	}
	n.MarkSeen(peer)
	Ingest(n, pkt.LSAArray, peer, peerPortIdx, peerAttached)
	return nil
}
