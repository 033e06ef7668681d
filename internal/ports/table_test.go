package ports

import (
	"errors"
	"testing"

	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

func attachInput(remoteId topology.NodeId) AttachInput {
	return AttachInput{
		SelfNodeId:   "1.1.1.1",
		SelfPort:     20000,
		RemoteHost:   "127.0.0.1",
		RemotePort:   20001,
		RemoteNodeId: remoteId,
		Weight:       7,
		MinPort:      20000,
		MaxPort:      32767,
	}
}

func TestAttachAndFindAttachedSlot(t *testing.T) {
	table := New()

	idx, err := table.FindFreeSlot("2.2.2.2")
	if err != nil {
		t.Fatalf("FindFreeSlot: %v", err)
	}

	if _, err := table.Attach(idx, attachInput("2.2.2.2")); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	found, err := table.FindAttachedSlot("2.2.2.2")
	if err != nil {
		t.Fatalf("FindAttachedSlot: %v", err)
	}
	if found != idx {
		t.Fatalf("expected slot %d, got %d", idx, found)
	}
}

func TestFindFreeSlotDuplicate(t *testing.T) {
	table := New()
	idx, _ := table.FindFreeSlot("2.2.2.2")
	table.Attach(idx, attachInput("2.2.2.2"))

	got, err := table.FindFreeSlot("2.2.2.2")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if got != idx {
		t.Fatalf("expected duplicate slot index %d, got %d", idx, got)
	}
}

func TestPortExhaustion(t *testing.T) {
	table := New()
	for i := 0; i < Capacity; i++ {
		remote := topology.NodeId(string(rune('A' + i)))
		idx, err := table.FindFreeSlot(remote)
		if err != nil {
			t.Fatalf("unexpected error attaching peer %d: %v", i, err)
		}
		if _, err := table.Attach(idx, attachInput(remote)); err != nil {
			t.Fatalf("Attach peer %d: %v", i, err)
		}
	}

	_, err := table.FindFreeSlot("fifth-peer")
	if !errors.Is(err, ErrNoPortAvailable) {
		t.Fatalf("expected ErrNoPortAvailable on 5th attach, got %v", err)
	}

	// existing four must remain untouched
	for i := 0; i < Capacity; i++ {
		if table.Get(i) == nil {
			t.Fatalf("slot %d unexpectedly empty after rejected 5th attach", i)
		}
	}
}

func TestAttachValidationRejectsSelf(t *testing.T) {
	table := New()
	in := attachInput("1.1.1.1") // same as SelfNodeId
	if _, err := table.Attach(0, in); !errors.Is(err, ErrInvalidAttach) {
		t.Fatalf("expected ErrInvalidAttach, got %v", err)
	}
}

func TestAttachValidationRejectsNonPositiveWeight(t *testing.T) {
	table := New()
	in := attachInput("2.2.2.2")
	in.Weight = 0
	if _, err := table.Attach(0, in); !errors.Is(err, ErrInvalidAttach) {
		t.Fatalf("expected ErrInvalidAttach, got %v", err)
	}
}

func TestDetachClearsSlot(t *testing.T) {
	table := New()
	idx, _ := table.FindFreeSlot("2.2.2.2")
	table.Attach(idx, attachInput("2.2.2.2"))

	table.Detach(idx)

	if table.Get(idx) != nil {
		t.Fatalf("expected slot %d to be empty after Detach", idx)
	}
	if _, err := table.FindAttachedSlot("2.2.2.2"); !errors.Is(err, ErrNoPortAvailable) {
		t.Fatalf("expected ErrNoPortAvailable after detach, got %v", err)
	}
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	table := New()
	idx, _ := table.FindFreeSlot("2.2.2.2")
	table.Attach(idx, attachInput("2.2.2.2"))

	snap := table.Snapshot()
	table.Detach(idx)

	if snap[idx] == nil {
		t.Fatalf("snapshot should retain the link taken before Detach")
	}
	if table.Get(idx) != nil {
		t.Fatalf("live table should reflect the Detach")
	}
}
