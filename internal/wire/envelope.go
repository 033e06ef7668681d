// Package wire defines the single envelope used for every protocol
// interaction and the helpers to stream it over a net.Conn, each envelope
// serialized with encoding/json the way a gossip-style peer broadcast would.
package wire

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

// PacketType tags which of the six protocol interactions an envelope
// carries.
type PacketType int

const (
	Hello PacketType = iota
	LsaUpdate
	Connect
	Disconnect
	Heartbeat
	NoPortsAvailable
)

func (t PacketType) String() string {
	switch t {
	case Hello:
		return "HELLO"
	case LsaUpdate:
		return "LSAUPDATE"
	case Connect:
		return "CONNECT"
	case Disconnect:
		return "DISCONNECT"
	case Heartbeat:
		return "HEARTBEAT"
	case NoPortsAvailable:
		return "NO_PORTS_AVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// IrrelevantWeight is a sentinel for WeightOfTransmission on packet types
// where it carries no meaning. The packets built in this module do not set
// it: they leave WeightOfTransmission at zero on those types.
const IrrelevantWeight = -1

// SospfPacket is the one fixed message envelope for every protocol type.
// Fields not relevant to a given Type are left at their zero/sentinel
// value; LSAArray is only populated for LsaUpdate, WeightOfTransmission
// only for Hello/Connect.
type SospfPacket struct {
	SrcProcessIP         string
	SrcProcessPort       int
	SrcNodeId            topology.NodeId
	DstNodeId            topology.NodeId
	Type                 PacketType
	RouterId             topology.NodeId
	NeighborId           topology.NodeId
	LSAArray             []topology.LSA
	WeightOfTransmission int
}

// Conn wraps a single point-to-point connection with the encoder/decoder
// pair used to stream envelopes over it. A json.Decoder buffers ahead from
// its underlying reader, so a fresh one must not be created per read: the
// same Conn (and thus the same *json.Decoder) has to be reused for every
// envelope exchanged on that socket, or bytes belonging to the next
// envelope are silently dropped.
//
// The output stream is established before the input stream, since stream
// setup order matters for framing.
type Conn struct {
	rwc io.ReadWriteCloser
	enc *json.Encoder
	dec *json.Decoder
}

// NewConn wraps rwc, establishing the output stream before the input
// stream as required by the protocol.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	enc := json.NewEncoder(rwc)
	dec := json.NewDecoder(rwc)
	return &Conn{rwc: rwc, enc: enc, dec: dec}
}

// Send writes one envelope.
func (c *Conn) Send(pkt SospfPacket) error {
	if err := c.enc.Encode(pkt); err != nil {
		return fmt.Errorf("wire: encode packet: %w", err)
	}
	return nil
}

// Recv blocks for exactly one envelope.
func (c *Conn) Recv() (SospfPacket, error) {
	var pkt SospfPacket
	if err := c.dec.Decode(&pkt); err != nil {
		return SospfPacket{}, fmt.Errorf("wire: decode packet: %w", err)
	}
	return pkt, nil
}

// Close releases the underlying connection.
func (c *Conn) Close() error {
	return c.rwc.Close()
}
