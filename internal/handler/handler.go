// Package handler implements the server side of each accepted connection:
// a per-connection state machine that serves exactly one protocol request
// then closes.
package handler

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/martelogan/simulated-link-state-routing/internal/flood"
	"github.com/martelogan/simulated-link-state-routing/internal/node"
	"github.com/martelogan/simulated-link-state-routing/internal/ports"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
	"github.com/martelogan/simulated-link-state-routing/internal/wire"
)

// Handle serves exactly one request on conn and then closes it. Any error
// encountered is logged with connID for correlation and the connection is
// closed on every exit path; a handler failure never propagates to the
// accept loop.
func Handle(n *node.Node, conn net.Conn, connID string, dial flood.Dialer) {
	defer conn.Close()
	log := n.Log.With(zap.String("conn", connID))

	wc := wire.NewConn(conn)
	pkt, err := wc.Recv()
	if err != nil {
		log.Warn("handler: failed to read request envelope", zap.Error(err))
		return
	}

	switch pkt.Type {
	case wire.Hello, wire.Connect:
		if err := serveHello(n, wc, pkt, log, dial); err != nil {
			log.Warn("handler: hello conversation failed", zap.Error(err))
		}
	case wire.LsaUpdate:
		if err := serveLSAUpdate(n, pkt, log, dial); err != nil {
			log.Warn("handler: lsa update failed", zap.Error(err))
		}
	case wire.Disconnect:
		if err := serveDisconnect(n, wc, pkt, log, dial); err != nil {
			log.Warn("handler: disconnect failed", zap.Error(err))
		}
	case wire.Heartbeat:
		serveHeartbeat(n, wc, pkt, log)
	default:
		log.Warn("handler: unexpected packet type", zap.String("type", pkt.Type.String()))
	}
}

// serveHello is the server side of the peering handshake.
func serveHello(n *node.Node, wc *wire.Conn, pkt wire.SospfPacket, log *zap.Logger, dial flood.Dialer) error {
	clientId := pkt.SrcNodeId

	idx, err := n.Ports.FindFreeSlot(clientId)
	if err == ports.ErrNoPortAvailable {
		wc.Send(wire.SospfPacket{SrcNodeId: n.Id, DstNodeId: clientId, Type: wire.NoPortsAvailable})
		return fmt.Errorf("no free port for %s", clientId)
	}
	if err == ports.ErrDuplicate {
		// Re-running HELLO against an already-attached neighbor is
		// permitted and resets both sides to INIT, a deliberate design choice.
		n.Ports.SetStatus(idx, topology.Init)
	} else if err != nil {
		return err
	} else {
		host, port := splitRemote(pkt)
		if _, aerr := n.Ports.Attach(idx, ports.AttachInput{
			SelfNodeId: n.Id, SelfPort: n.Endpoint.Port,
			RemoteHost: host, RemotePort: port, RemoteNodeId: clientId,
			Weight: pkt.WeightOfTransmission, MinPort: n.MinPort, MaxPort: n.MaxPort,
		}); aerr != nil {
			return aerr
		}
		n.Ports.SetStatus(idx, topology.Init)
	}

	log.Info(fmt.Sprintf("received HELLO from %s", clientId))
	log.Info(fmt.Sprintf("set %s state to INIT", clientId))

	reply := wire.SospfPacket{SrcNodeId: n.Id, DstNodeId: clientId, Type: pkt.Type}
	if err := wc.Send(reply); err != nil {
		return fmt.Errorf("send step2 reply: %w", err)
	}

	final, err := wc.Recv()
	if err != nil {
		return fmt.Errorf("recv step3: %w", err)
	}
	if final.Type != wire.Hello && final.Type != wire.Connect {
		return fmt.Errorf("unexpected step3 packet type %s", final.Type)
	}

	n.Ports.SetStatus(idx, topology.TwoWay)
	log.Info(fmt.Sprintf("set %s state to TWO_WAY", clientId))

	n.RewriteSelfLSA(false)

	if err := flood.SyncAsServer(n, wc, clientId, idx, true); err != nil {
		return err
	}

	go flood.ToNeighbors(n, clientId, dial)
	return nil
}

func splitRemote(pkt wire.SospfPacket) (string, int) {
	return pkt.SrcProcessIP, pkt.SrcProcessPort
}

// serveLSAUpdate handles an unsolicited single LSAUPDATE delivered by
// flood.ToNeighbors from some other node's broadcast: ingest it and, per
// policy, re-flood.
func serveLSAUpdate(n *node.Node, pkt wire.SospfPacket, log *zap.Logger, dial flood.Dialer) error {
	sender := pkt.SrcNodeId
	senderIdx, attached := -1, false
	if idx, err := n.Ports.FindAttachedSlot(sender); err == nil {
		senderIdx, attached = idx, true
	}

	firstTime := n.MarkSeen(sender)
	changed := flood.Ingest(n, pkt.LSAArray, sender, senderIdx, attached)

	shouldFlood, exclude := flood.AfterIngestPolicy(firstTime, changed, sender)
	if shouldFlood {
		go flood.ToNeighbors(n, exclude, dial)
	}
	log.Debug("handler: ingested LSAUPDATE", zap.String("sender", string(sender)), zap.Bool("changed", changed))
	return nil
}

// serveDisconnect acknowledges a DISCONNECT, detaches the slot, then
// synchronizes the LSD over the same connection.
func serveDisconnect(n *node.Node, wc *wire.Conn, pkt wire.SospfPacket, log *zap.Logger, dial flood.Dialer) error {
	sender := pkt.SrcNodeId
	idx, err := n.Ports.FindAttachedSlot(sender)
	if err != nil {
		return fmt.Errorf("disconnect from unattached neighbor %s: %w", sender, err)
	}

	ack := wire.SospfPacket{SrcNodeId: n.Id, DstNodeId: sender, Type: wire.Disconnect}
	if err := wc.Send(ack); err != nil {
		return fmt.Errorf("send disconnect ack: %w", err)
	}

	n.Ports.Detach(idx)
	n.RewriteSelfLSA(false)
	log.Info("handler: detached neighbor on disconnect", zap.String("neighbor", string(sender)))

	if err := flood.SyncAsServer(n, wc, sender, -1, false); err != nil {
		return err
	}

	go flood.ToNeighbors(n, sender, dial)
	return nil
}

// serveHeartbeat echoes a HEARTBEAT reply if sender is a currently
// attached neighbor; otherwise it fails silently.
func serveHeartbeat(n *node.Node, wc *wire.Conn, pkt wire.SospfPacket, log *zap.Logger) {
	sender := pkt.SrcNodeId
	if _, err := n.Ports.FindAttachedSlot(sender); err != nil {
		return
	}
	reply := wire.SospfPacket{SrcNodeId: n.Id, DstNodeId: sender, Type: wire.Heartbeat}
	if err := wc.Send(reply); err != nil {
		log.Debug("handler: heartbeat echo failed", zap.Error(err))
	}
}
