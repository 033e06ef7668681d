// Package client implements the client-initiated flows: start, connect,
// attach, disconnect, and quit.
package client

import (
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/martelogan/simulated-link-state-routing/internal/flood"
	"github.com/martelogan/simulated-link-state-routing/internal/node"
	"github.com/martelogan/simulated-link-state-routing/internal/ports"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
	"github.com/martelogan/simulated-link-state-routing/internal/wire"
)

// ErrStartNotRun is returned by Connect when Start has never been run.
var ErrStartNotRun = errors.New("client: connect requires start to have run at least once")

// Attach installs a Link locally, without any network I/O.
func Attach(n *node.Node, host string, port int, id topology.NodeId, weight int) (int, error) {
	idx, err := n.Ports.FindFreeSlot(id)
	if err != nil && err != ports.ErrDuplicate {
		return -1, err
	}
	if err == ports.ErrDuplicate {
		return idx, nil
	}

	if _, err := n.Ports.Attach(idx, ports.AttachInput{
		SelfNodeId: n.Id, SelfPort: n.Endpoint.Port,
		RemoteHost: host, RemotePort: port, RemoteNodeId: id,
		Weight: weight, MinPort: n.MinPort, MaxPort: n.MaxPort,
	}); err != nil {
		return -1, err
	}
	return idx, nil
}

// Start runs the client side of the HELLO handshake on every occupied
// port.
func Start(n *node.Node, dial flood.Dialer) error {
	var firstErr error
	for i, link := range n.Ports.Snapshot() {
		if link == nil {
			continue
		}
		if err := helloConversation(n, dial, i, link.Target.Endpoint, link.Target.NodeId, link.Target.Weight, wire.Hello); err != nil {
			n.Log.Warn("client: start handshake failed",
				zap.String("neighbor", string(link.Target.NodeId)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	n.SetRunStart()
	return firstErr
}

// Connect attaches to a new peer and performs the CONNECT handshake,
// which is identical to HELLO except the link weight it carries is
// authoritative. It requires Start to have run at least once.
func Connect(n *node.Node, dial flood.Dialer, host string, port int, id topology.NodeId, weight int) error {
	if !n.HasRunStart() {
		return ErrStartNotRun
	}

	idx, err := Attach(n, host, port, id, weight)
	if err != nil {
		return err
	}

	return helloConversation(n, dial, idx, topology.ProcessEndpoint{Host: host, Port: port}, id, weight, wire.Connect)
}

// helloConversation runs the client side of the three-message handshake
// exchange over a freshly dialed connection.
func helloConversation(
	n *node.Node,
	dial flood.Dialer,
	portIdx int,
	remote topology.ProcessEndpoint,
	remoteId topology.NodeId,
	weight int,
	kind wire.PacketType,
) error {
	conn, err := dial("tcp", remote.String())
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", remote, err)
	}
	wc := wire.NewConn(conn)
	defer wc.Close()

	n.Ports.SetStatus(portIdx, topology.Init)

	step1 := wire.SospfPacket{
		SrcProcessIP:         n.Endpoint.Host,
		SrcProcessPort:       n.Endpoint.Port,
		SrcNodeId:            n.Id,
		DstNodeId:            remoteId,
		Type:                 kind,
		WeightOfTransmission: weight,
	}
	if err := wc.Send(step1); err != nil {
		return fmt.Errorf("client: send step1: %w", err)
	}

	reply, err := wc.Recv()
	if err != nil {
		return fmt.Errorf("client: recv step2: %w", err)
	}
	if reply.Type == wire.NoPortsAvailable {
		return fmt.Errorf("client: %s rejected with NO_PORTS_AVAILABLE", remoteId)
	}
	if reply.Type != wire.Hello && reply.Type != wire.Connect {
		return fmt.Errorf("client: unexpected step2 reply type %s", reply.Type)
	}

	n.Ports.SetStatus(portIdx, topology.TwoWay)
	n.Log.Info(fmt.Sprintf("set %s state to TWO_WAY", remoteId))

	step3 := wire.SospfPacket{SrcNodeId: n.Id, DstNodeId: remoteId, Type: kind}
	if err := wc.Send(step3); err != nil {
		return fmt.Errorf("client: send step3: %w", err)
	}

	n.RewriteSelfLSA(false)

	if err := flood.SyncAsClient(n, wc, remoteId, portIdx, true); err != nil {
		return err
	}

	go flood.ToNeighbors(n, remoteId, dial)
	return nil
}

// Disconnect implements the disconnect flow.
func Disconnect(n *node.Node, dial flood.Dialer, index int, isShutdown bool) error {
	link := n.Ports.Get(index)
	if link == nil {
		return fmt.Errorf("client: no link attached at port %d", index)
	}
	peer := link.Target.NodeId

	if link.Target.Status != topology.TwoWay {
		// Attached but not TWO_WAY: detach locally without network
		// traffic.
		n.Ports.Detach(index)
		return nil
	}

	conn, err := dial("tcp", link.Target.Endpoint.String())
	if err != nil {
		n.Ports.Detach(index)
		return fmt.Errorf("client: dial %s for disconnect: %w", peer, err)
	}
	wc := wire.NewConn(conn)
	defer wc.Close()

	req := wire.SospfPacket{SrcNodeId: n.Id, DstNodeId: peer, Type: wire.Disconnect}
	if err := wc.Send(req); err != nil {
		n.Ports.Detach(index)
		return fmt.Errorf("client: send disconnect: %w", err)
	}

	ack, err := wc.Recv()
	if err != nil || ack.Type != wire.Disconnect {
		n.Ports.Detach(index)
		return fmt.Errorf("client: disconnect not acknowledged by %s: %w", peer, err)
	}

	n.Ports.Detach(index)

	if isShutdown {
		n.RewriteSelfLSA(true)
	} else {
		n.RewriteSelfLSA(false)
	}

	if err := flood.SyncAsClient(n, wc, peer, -1, false); err != nil {
		return err
	}

	go flood.ToNeighbors(n, peer, dial)
	return nil
}

// Quit disconnects every TWO_WAY neighbor as a shutdown, for the caller to
// then terminate the process.
func Quit(n *node.Node, dial flood.Dialer) {
	for i, link := range n.Ports.Snapshot() {
		if link == nil || link.Target.Status != topology.TwoWay {
			continue
		}
		if err := Disconnect(n, dial, i, true); err != nil {
			n.Log.Warn("client: quit disconnect failed",
				zap.String("neighbor", string(link.Target.NodeId)), zap.Error(err))
		}
	}
}

// DefaultDialer is the flood.Dialer backed by real TCP sockets.
func DefaultDialer(network, address string) (net.Conn, error) {
	return net.Dial(network, address)
}
