package lsd

import "testing"

import "github.com/martelogan/simulated-link-state-routing/internal/topology"

func lsaFor(id topology.NodeId, seq int, links ...topology.LinkDescription) topology.LSA {
	return topology.LSA{OriginNodeId: id, SeqNumber: seq, Links: links}
}

func link(to topology.NodeId, weight int) topology.LinkDescription {
	return topology.LinkDescription{NeighborNodeId: to, Weight: weight}
}

func TestTryAcceptFreshnessRules(t *testing.T) {
	d := New()

	if !d.TryAccept(lsaFor("A", 1)) {
		t.Fatal("first LSA for an origin must always be accepted")
	}
	if d.TryAccept(lsaFor("A", 1)) {
		t.Fatal("equal sequence number must not be accepted again")
	}
	if d.TryAccept(lsaFor("A", 0)) {
		t.Fatal("stale sequence number must be dropped")
	}
	if !d.TryAccept(lsaFor("A", 2)) {
		t.Fatal("strictly greater sequence number must be accepted")
	}

	shutdown := lsaFor("A", 2)
	shutdown.HasShutdown = true
	if d.TryAccept(shutdown) {
		t.Fatal("same sequence number marking shutdown should still be rejected by seq rule alone")
	}

	shutdown3 := lsaFor("A", 3)
	shutdown3.HasShutdown = true
	if !d.TryAccept(shutdown3) {
		t.Fatal("higher sequence number marking shutdown must be accepted")
	}

	resurrect := lsaFor("A", 0)
	if !d.TryAccept(resurrect) {
		t.Fatal("resurrection after shutdown must be accepted regardless of sequence number")
	}
}

func TestSnapshotDeterministicOrder(t *testing.T) {
	d := New()
	d.Put(lsaFor("C", 1))
	d.Put(lsaFor("A", 1))
	d.Put(lsaFor("B", 1))

	snap := d.SnapshotValues()
	if len(snap) != 3 || snap[0].OriginNodeId != "A" || snap[1].OriginNodeId != "B" || snap[2].OriginNodeId != "C" {
		t.Fatalf("expected sorted snapshot, got %+v", snap)
	}
}

func TestShortestPathTwoNode(t *testing.T) {
	d := New()
	d.Put(lsaFor("1.1.1.1", 1, link("2.2.2.2", 7)))
	d.Put(lsaFor("2.2.2.2", 1, link("1.1.1.1", 7)))

	path, ok := ShortestPath(d, "1.1.1.1", "2.2.2.2")
	if !ok {
		t.Fatal("expected reachable path")
	}
	if path != "1.1.1.1 ->(7) 2.2.2.2" {
		t.Fatalf("unexpected path: %q", path)
	}
}

func TestShortestPathTriangle(t *testing.T) {
	d := New()
	d.Put(lsaFor("A", 1, link("B", 3), link("C", 10)))
	d.Put(lsaFor("B", 1, link("A", 3), link("C", 1)))
	d.Put(lsaFor("C", 1, link("B", 1), link("A", 10)))

	path, ok := ShortestPath(d, "A", "C")
	if !ok {
		t.Fatal("expected reachable path")
	}
	if path != "A ->(3) B ->(1) C" {
		t.Fatalf("expected indirect cheaper path, got %q", path)
	}
}

func TestShortestPathUnreachable(t *testing.T) {
	d := New()
	d.Put(lsaFor("A", 1, link("B", 1)))

	if _, ok := ShortestPath(d, "A", "Z"); ok {
		t.Fatal("expected unreachable destination to report not-ok")
	}
}

func TestShortestPathToSelf(t *testing.T) {
	d := New()
	d.Put(lsaFor("A", 1, link("B", 1)))

	path, ok := ShortestPath(d, "A", "A")
	if !ok || path != "A" {
		t.Fatalf("expected trivial self path, got %q ok=%v", path, ok)
	}
}

func TestShortestPathExcludesShutdownOrigin(t *testing.T) {
	d := New()
	d.Put(lsaFor("A", 1, link("B", 3), link("C", 10)))
	b := lsaFor("B", 2, link("A", 3), link("C", 1))
	b.HasShutdown = true
	d.Put(b)
	d.Put(lsaFor("C", 1, link("B", 1), link("A", 10)))

	path, ok := ShortestPath(d, "A", "C")
	if !ok {
		t.Fatal("expected reachable path via direct edge")
	}
	if path != "A ->(10) C" {
		t.Fatalf("expected fallback to direct edge once B is shut down, got %q", path)
	}
}
