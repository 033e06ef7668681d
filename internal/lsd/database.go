// Package lsd implements the Link-State Database: the per-node mapping
// from NodeId to the latest observed LinkStateAdvertisement for that node,
// plus the shortest-path query over the graph it induces.
package lsd

import (
	"fmt"
	"sort"
	"sync"

	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

// Database is safe for concurrent use; Get, Put, and SnapshotValues are
// each atomic with respect to one another.
type Database struct {
	mu   sync.Mutex
	byId map[topology.NodeId]topology.LSA
}

// New creates an empty Link-State Database.
func New() *Database {
	return &Database{byId: make(map[topology.NodeId]topology.LSA)}
}

// Get returns the stored LSA for id and whether one exists.
func (d *Database) Get(id topology.NodeId) (topology.LSA, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lsa, ok := d.byId[id]
	return lsa, ok
}

// Put unconditionally overwrites the stored LSA for lsa.OriginNodeId.
func (d *Database) Put(lsa topology.LSA) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byId[lsa.OriginNodeId] = lsa
}

// SnapshotValues returns every stored LSA, in a deterministic order
// (sorted by origin id) so broadcasts and tests are reproducible.
func (d *Database) SnapshotValues() []topology.LSA {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]topology.LSA, 0, len(d.byId))
	for _, lsa := range d.byId {
		out = append(out, lsa)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginNodeId < out[j].OriginNodeId })
	return out
}

// TryAccept applies the freshness predicate and, if candidate
// is fresher than whatever is stored for its origin, stores it. It reports
// whether the store changed.
func (d *Database) TryAccept(candidate topology.LSA) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored, ok := d.byId[candidate.OriginNodeId]
	var storedPtr *topology.LSA
	if ok {
		storedPtr = &stored
	}
	if !topology.Fresher(storedPtr, candidate) {
		return false
	}
	d.byId[candidate.OriginNodeId] = candidate
	return true
}

// ShortestPath runs Dijkstra's algorithm over the directed weighted graph
// induced by the LSD (vertices are LSD keys, edges are each non-shut-down
// LSA's advertised links) and renders the path from src to dst as
// "a ->(w1) b ->(w2) ... -> z". It returns ok=false if dst is unreachable
// or unknown.
func ShortestPath(d *Database, src, dst topology.NodeId) (string, bool) {
	lsas := d.SnapshotValues()

	nodes := make(map[topology.NodeId]bool)
	for _, lsa := range lsas {
		if !lsa.HasShutdown {
			nodes[lsa.OriginNodeId] = true
		}
	}

	adj := make(map[topology.NodeId][]edge)
	for _, lsa := range lsas {
		if !nodes[lsa.OriginNodeId] {
			continue
		}
		for _, link := range lsa.Links {
			if !nodes[link.NeighborNodeId] {
				continue
			}
			adj[lsa.OriginNodeId] = append(adj[lsa.OriginNodeId], edge{to: link.NeighborNodeId, weight: link.Weight})
		}
	}

	if !nodes[src] || !nodes[dst] {
		return "", false
	}
	if src == dst {
		return string(src), true
	}

	dist := map[topology.NodeId]int{src: 0}
	prev := map[topology.NodeId]topology.NodeId{}
	visited := map[topology.NodeId]bool{}

	pq := &priorityQueue{{node: src, dist: 0}}

	for pq.Len() > 0 {
		cur := pq.popMin()
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == dst {
			break
		}

		// Iterate edges in a deterministic order so ties break the same
		// way on every run against the same LSD state.
		edges := append([]edge(nil), adj[cur.node]...)
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].to != edges[j].to {
				return edges[i].to < edges[j].to
			}
			return edges[i].weight < edges[j].weight
		})

		for _, e := range edges {
			if visited[e.to] {
				continue
			}
			nd := dist[cur.node] + e.weight
			existing, seen := dist[e.to]
			if !seen || nd < existing || (nd == existing && cur.node < prev[e.to]) {
				dist[e.to] = nd
				prev[e.to] = cur.node
				pq.push(item{node: e.to, dist: nd})
			}
		}
	}

	if !visited[dst] {
		return "", false
	}

	// Walk predecessors back to src, collecting edge weights.
	type hop struct {
		node   topology.NodeId
		weight int
	}
	var hops []hop
	cur := dst
	for cur != src {
		p, ok := prev[cur]
		if !ok {
			return "", false
		}
		w := edgeWeight(adj, p, cur)
		hops = append([]hop{{node: cur, weight: w}}, hops...)
		cur = p
	}

	out := string(src)
	for _, h := range hops {
		out += fmt.Sprintf(" ->(%d) %s", h.weight, h.node)
	}
	return out, true
}

func edgeWeight(adj map[topology.NodeId][]edge, from, to topology.NodeId) int {
	best := 0
	found := false
	for _, e := range adj[from] {
		if e.to == to && (!found || e.weight < best) {
			best = e.weight
			found = true
		}
	}
	return best
}

type edge struct {
	to     topology.NodeId
	weight int
}
