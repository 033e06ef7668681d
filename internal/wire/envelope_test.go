package wire

import (
	"net"
	"testing"

	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

func TestConnSendRecvRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientConn := NewConn(client)
	serverConn := NewConn(server)

	pkt := SospfPacket{
		SrcProcessIP:         "10.0.0.1",
		SrcProcessPort:       20000,
		SrcNodeId:            "1.1.1.1",
		DstNodeId:            "2.2.2.2",
		Type:                 Hello,
		WeightOfTransmission: 7,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- clientConn.Send(pkt) }()

	got, err := serverConn.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.SrcNodeId != pkt.SrcNodeId || got.DstNodeId != pkt.DstNodeId {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, pkt)
	}
	if got.Type != Hello || got.WeightOfTransmission != 7 {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestConnSequentialMessagesOnSameConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientConn := NewConn(client)
	serverConn := NewConn(server)

	go func() {
		clientConn.Send(SospfPacket{Type: Hello, SrcNodeId: "a"})
		clientConn.Send(SospfPacket{Type: Connect, SrcNodeId: "b"})
	}()

	first, err := serverConn.Recv()
	if err != nil {
		t.Fatalf("Recv 1: %v", err)
	}
	second, err := serverConn.Recv()
	if err != nil {
		t.Fatalf("Recv 2: %v", err)
	}

	if first.SrcNodeId != "a" || first.Type != Hello {
		t.Fatalf("unexpected first packet: %+v", first)
	}
	if second.SrcNodeId != "b" || second.Type != Connect {
		t.Fatalf("unexpected second packet: %+v", second)
	}
}

func TestLSAArrayCarried(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientConn := NewConn(client)
	serverConn := NewConn(server)

	pkt := SospfPacket{
		Type: LsaUpdate,
		LSAArray: []topology.LSA{
			{OriginNodeId: "1.1.1.1", SeqNumber: 3, Links: []topology.LinkDescription{
				{NeighborNodeId: "2.2.2.2", PortIndexOrigin: 0, Weight: 7},
			}},
		},
	}

	go clientConn.Send(pkt)
	got, err := serverConn.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if len(got.LSAArray) != 1 || got.LSAArray[0].OriginNodeId != "1.1.1.1" {
		t.Fatalf("LSAArray not preserved: %+v", got)
	}
}
