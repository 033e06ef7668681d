package heartbeat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/martelogan/simulated-link-state-routing/internal/flood"
	"github.com/martelogan/simulated-link-state-routing/internal/node"
	"github.com/martelogan/simulated-link-state-routing/internal/topology"
	"github.com/martelogan/simulated-link-state-routing/internal/wire"
)

// DefaultInterval is the spacing between heartbeat probes on one neighbor.
const DefaultInterval = 5 * time.Second

// MaxRetries is how many times a failed heartbeat is retried before the
// neighbor is declared dead.
const MaxRetries = 5

// reconcileInterval is how often Monitor rescans the ports table for slots
// that entered or left TWO_WAY, much shorter than the heartbeat interval
// itself so a new neighbor starts being watched promptly.
const reconcileInterval = 500 * time.Millisecond

// Monitor supervises one watcher goroutine per TWO_WAY neighbor, spawning
// and tearing them down as the ports table changes. Callers only construct
// one when the heartbeat flag is enabled; it is otherwise never started,
// since heartbeat liveness checking is disabled by default.
type Monitor struct {
	n          *node.Node
	dial       flood.Dialer
	interval   time.Duration
	maxRetries int

	mu       sync.Mutex
	watching map[int]context.CancelFunc
}

// NewMonitor builds a Monitor using the default interval and retry budget.
func NewMonitor(n *node.Node, dial flood.Dialer) *Monitor {
	return &Monitor{
		n:          n,
		dial:       dial,
		interval:   DefaultInterval,
		maxRetries: MaxRetries,
		watching:   make(map[int]context.CancelFunc),
	}
}

// Run blocks, reconciling watched neighbors until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		m.reconcile(ctx)
		select {
		case <-ctx.Done():
			m.stopAll()
			return
		case <-ticker.C:
		}
	}
}

func (m *Monitor) reconcile(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[int]bool{}
	for i, link := range m.n.Ports.Snapshot() {
		if link == nil || link.Target.Status != topology.TwoWay {
			continue
		}
		seen[i] = true
		if _, ok := m.watching[i]; ok {
			continue
		}
		watchCtx, cancel := context.WithCancel(ctx)
		m.watching[i] = cancel
		go m.watch(watchCtx, i, link.Target.NodeId)
	}

	for i, cancel := range m.watching {
		if !seen[i] {
			cancel()
			delete(m.watching, i)
		}
	}
}

func (m *Monitor) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cancel := range m.watching {
		cancel()
		delete(m.watching, i)
	}
}

// watch probes one neighbor slot every interval, retrying failures with
// backoff. Once a failed probe has been followed by maxRetries failed
// retries, the neighbor's stored LSA is marked shut down, its slot is
// detached, the self-LSA is rewritten, and the change is flooded, all
// without the peer's cooperation.
func (m *Monitor) watch(ctx context.Context, idx int, peer topology.NodeId) {
	bo := newBackoff(time.Second, 1.5, m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if probe(m.n, m.dial, peer) {
			failures = 0
			bo.reset()
			continue
		}

		failures++
		m.n.Log.Debug("heartbeat: probe failed", zap.String("neighbor", string(peer)), zap.Int("failures", failures))

		if failures <= m.maxRetries {
			bo.backoff()
			select {
			case <-ctx.Done():
				return
			case <-bo.after():
			}
			continue
		}

		m.n.Log.Warn("heartbeat: neighbor declared dead", zap.String("neighbor", string(peer)))
		m.n.Ports.Detach(idx)
		if lsa, ok := m.n.LSD.Get(peer); ok {
			lsa.HasShutdown = true
			m.n.LSD.Put(lsa)
		}
		m.n.RewriteSelfLSA(false)
		go flood.ToNeighbors(m.n, peer, m.dial)
		return
	}
}

// probe sends one HEARTBEAT to peer and waits up to DefaultInterval for
// the matching reply.
func probe(n *node.Node, dial flood.Dialer, peer topology.NodeId) bool {
	idx, err := n.Ports.FindAttachedSlot(peer)
	if err != nil {
		return false
	}
	link := n.Ports.Get(idx)
	if link == nil {
		return false
	}

	conn, err := dial("tcp", link.Target.Endpoint.String())
	if err != nil {
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(DefaultInterval))

	wc := wire.NewConn(conn)
	req := wire.SospfPacket{SrcNodeId: n.Id, DstNodeId: peer, Type: wire.Heartbeat}
	if err := wc.Send(req); err != nil {
		return false
	}
	reply, err := wc.Recv()
	if err != nil {
		return false
	}
	return reply.Type == wire.Heartbeat
}
