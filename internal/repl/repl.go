// Package repl implements the command-line collaborator: one command per
// line read from stdin, dispatched to the client package's originator
// flows.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/martelogan/simulated-link-state-routing/internal/client"
	"github.com/martelogan/simulated-link-state-routing/internal/flood"
	"github.com/martelogan/simulated-link-state-routing/internal/lsd"
	"github.com/martelogan/simulated-link-state-routing/internal/node"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

const prompt = ">> "

// Run reads one command per line from in until EOF or a `quit`, writing
// prompts and output to out. A single command's error is printed and the
// loop continues; malformed input must never crash the REPL.
func Run(n *node.Node, dial flood.Dialer, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if dispatch(n, dial, line, out) {
			return
		}
	}
}

// dispatch runs one command line and reports whether the REPL should stop.
// A panic inside a command is recovered and printed as an error.
func dispatch(n *node.Node, dial flood.Dialer, line string, out io.Writer) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(out, "error: %v\n", r)
			stop = false
		}
	}()

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "attach":
		err = cmdAttach(n, args)
	case "start":
		err = client.Start(n, dial)
	case "connect":
		err = cmdConnect(n, dial, args)
	case "disconnect":
		err = cmdDisconnect(n, dial, args)
	case "neighbors":
		cmdNeighbors(n, out)
	case "detect":
		err = cmdDetect(n, args, out)
	case "quit":
		client.Quit(n, dial)
		return true
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
	return false
}

func cmdAttach(n *node.Node, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: attach <procIp> <procPort> <nodeId> <weight>")
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}
	weight, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("invalid weight %q: %w", args[3], err)
	}
	_, err = client.Attach(n, args[0], port, topology.NodeId(args[2]), weight)
	return err
}

func cmdConnect(n *node.Node, dial flood.Dialer, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: connect <procIp> <procPort> <nodeId> <weight>")
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}
	weight, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("invalid weight %q: %w", args[3], err)
	}
	return client.Connect(n, dial, args[0], port, topology.NodeId(args[2]), weight)
}

func cmdDisconnect(n *node.Node, dial flood.Dialer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: disconnect <portIndex>")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid port index %q: %w", args[0], err)
	}
	return client.Disconnect(n, dial, idx, false)
}

func cmdNeighbors(n *node.Node, out io.Writer) {
	for i, link := range n.Ports.Snapshot() {
		if link == nil {
			continue
		}
		fmt.Fprintf(out, "[%d] %s status=%s weight=%d\n", i, link.Target.NodeId, link.Target.Status, link.Target.Weight)
	}
}

func cmdDetect(n *node.Node, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: detect <nodeId>")
	}
	path, ok := lsd.ShortestPath(n.LSD, n.Id, topology.NodeId(args[0]))
	if !ok {
		fmt.Fprintln(out, "no path")
		return nil
	}
	fmt.Fprintln(out, path)
	return nil
}
