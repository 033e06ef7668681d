package repl

import (
	"bytes"
	"net"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/martelogan/simulated-link-state-routing/internal/node"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

func newTestNode(id topology.NodeId) *node.Node {
	return node.New(id, topology.ProcessEndpoint{Host: "127.0.0.1", Port: 20000}, 20000, 32767, zap.NewNop())
}

func noopDialer(network, address string) (net.Conn, error) {
	c1, c2 := net.Pipe()
	c2.Close()
	return c1, nil
}

func TestAttachThenNeighborsThenQuit(t *testing.T) {
	n := newTestNode("1.1.1.1")
	in := strings.NewReader("attach 127.0.0.1 20001 2.2.2.2 7\nneighbors\nquit\n")
	var out bytes.Buffer

	Run(n, noopDialer, in, &out)

	if !strings.Contains(out.String(), "2.2.2.2") {
		t.Fatalf("expected neighbors output to mention attached peer, got %q", out.String())
	}
}

func TestUnknownCommandDoesNotStopLoop(t *testing.T) {
	n := newTestNode("1.1.1.1")
	in := strings.NewReader("bogus\ndetect 1.1.1.1\n")
	var out bytes.Buffer

	Run(n, noopDialer, in, &out)

	s := out.String()
	if !strings.Contains(s, "error: unknown command") {
		t.Fatalf("expected unknown-command error, got %q", s)
	}
	if !strings.Contains(s, "1.1.1.1") {
		t.Fatalf("expected detect-to-self output, got %q", s)
	}
}

func TestDetectUnreachablePrintsNoPath(t *testing.T) {
	n := newTestNode("1.1.1.1")
	in := strings.NewReader("detect 9.9.9.9\n")
	var out bytes.Buffer

	Run(n, noopDialer, in, &out)

	if !strings.Contains(out.String(), "no path") {
		t.Fatalf("expected no-path output, got %q", out.String())
	}
}
