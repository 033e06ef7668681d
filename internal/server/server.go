// Package server implements the accept loop: bind a listening socket by
// scanning upward from MinPort, then spawn one handler task per accepted
// connection.
package server

import (
	"fmt"
	"net"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/martelogan/simulated-link-state-routing/internal/flood"
	"github.com/martelogan/simulated-link-state-routing/internal/handler"
	"github.com/martelogan/simulated-link-state-routing/internal/node"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

// Server owns the listening socket for one Node.
type Server struct {
	n        *node.Node
	listener net.Listener
	dial     flood.Dialer
}

// Bind scans host:[n.MinPort, n.MaxPort] for the first port that accepts a
// bind, the only fatal-on-failure step in the whole system: if no port
// in the permitted range can be bound, startup must fail.
func Bind(n *node.Node, host string, dial flood.Dialer) (*Server, error) {
	for port := n.MinPort; port <= n.MaxPort; port++ {
		addr := fmt.Sprintf("%s:%d", host, port)
		l, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		n.Endpoint = topology.ProcessEndpoint{Host: host, Port: port}
		return &Server{n: n, listener: l, dial: dial}, nil
	}
	return nil, fmt.Errorf("server: unable to bind any port in [%d,%d]", n.MinPort, n.MaxPort)
}

// Serve accepts connections until the listener is closed. Each accepted
// connection is handed to its own handler goroutine; the server loop does
// not itself track handler lifetimes.
func (s *Server) Serve() error {
	s.n.Log.Info("server listening", zap.String("addr", s.listener.Addr().String()))
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return fmt.Errorf("server: accept: %w", err)
		}
		connID := uuid.NewString()
		s.n.Log.Debug("connection accepted", zap.String("conn", connID), zap.String("remote", conn.RemoteAddr().String()))
		go handler.Handle(s.n, conn, connID, s.dial)
	}
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}
