// Package ports implements a node's fixed-size neighbor slot array.
// Capacity is a protocol-visible constant: once all four slots are
// occupied, further attachments are rejected with ErrNoPortAvailable.
package ports

import (
	"errors"
	"fmt"
	"sync"

	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

// Capacity is the fixed number of slots in a ports table.
const Capacity = 4

var (
	// ErrNoPortAvailable is returned when all slots are occupied.
	ErrNoPortAvailable = errors.New("ports: no port available")
	// ErrDuplicate flags that a slot already holds a link to the requested
	// neighbor. Callers are expected to continue with the existing slot
	// rather than treat this as a hard failure.
	ErrDuplicate = errors.New("ports: duplicate neighbor")
	// ErrInvalidAttach is returned by Attach when its input fails
	// validation.
	ErrInvalidAttach = errors.New("ports: invalid attachment")
)

// Table is the fixed-size array of neighbor slots. Slots are either empty
// (nil) or hold a topology.Link. All operations are safe for concurrent
// use.
type Table struct {
	mu    sync.RWMutex
	slots [Capacity]*topology.Link
}

// New creates an empty ports table.
func New() *Table {
	return &Table{}
}

// FindFreeSlot returns the index of an empty slot, ErrNoPortAvailable if
// none remain, or ErrDuplicate if a slot already holds a link to
// remoteNodeId (in which case the index of that existing slot is also
// returned so the caller can continue with it).
func (t *Table) FindFreeSlot(remoteNodeId topology.NodeId) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	free := -1
	for i, slot := range t.slots {
		if slot == nil {
			if free == -1 {
				free = i
			}
			continue
		}
		if slot.Target.NodeId == remoteNodeId {
			return i, ErrDuplicate
		}
	}
	if free == -1 {
		return -1, ErrNoPortAvailable
	}
	return free, nil
}

// FindAttachedSlot returns the slot index holding a link to remoteNodeId,
// or ErrNoPortAvailable if there is none.
func (t *Table) FindAttachedSlot(remoteNodeId topology.NodeId) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, slot := range t.slots {
		if slot != nil && slot.Target.NodeId == remoteNodeId {
			return i, nil
		}
	}
	return -1, ErrNoPortAvailable
}

// AttachInput bundles the validated fields of a new Link.
type AttachInput struct {
	SelfNodeId   topology.NodeId
	SelfPort     int
	RemoteHost   string
	RemotePort   int
	RemoteNodeId topology.NodeId
	Weight       int
	MinPort      int
	MaxPort      int
}

// Validate applies the attachment input checks.
func (in AttachInput) Validate() error {
	if in.RemoteHost == "" || in.RemoteNodeId == "" {
		return fmt.Errorf("%w: remote address and node id must be set", ErrInvalidAttach)
	}
	if in.RemotePort < in.MinPort || in.RemotePort > in.MaxPort {
		return fmt.Errorf("%w: remote port %d out of range [%d,%d]", ErrInvalidAttach, in.RemotePort, in.MinPort, in.MaxPort)
	}
	if in.Weight <= 0 {
		return fmt.Errorf("%w: link weight must be positive", ErrInvalidAttach)
	}
	if in.RemoteNodeId == in.SelfNodeId {
		return fmt.Errorf("%w: cannot attach to self", ErrInvalidAttach)
	}
	if in.RemotePort == in.SelfPort {
		return fmt.Errorf("%w: remote port matches self port", ErrInvalidAttach)
	}
	return nil
}

// Attach installs a Link at index, built from in, with both endpoints
// starting at topology.Unknown status.
func (t *Table) Attach(index int, in AttachInput) (*topology.Link, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	link := &topology.Link{
		Origin: topology.NeighborDescriptor{
			Endpoint: topology.ProcessEndpoint{Host: "", Port: in.SelfPort},
			NodeId:   in.SelfNodeId,
			Status:   topology.Unknown,
			Weight:   0,
		},
		Target: topology.NeighborDescriptor{
			Endpoint: topology.ProcessEndpoint{Host: in.RemoteHost, Port: in.RemotePort},
			NodeId:   in.RemoteNodeId,
			Status:   topology.Unknown,
			Weight:   in.Weight,
		},
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[index] = link
	return link, nil
}

// Detach clears a slot, explicitly nulling it.
func (t *Table) Detach(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[index] = nil
}

// Get returns the link at index, or nil if the slot is empty or index is
// out of range.
func (t *Table) Get(index int) *topology.Link {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= Capacity {
		return nil
	}
	return t.slots[index]
}

// SetStatus updates the Target status of the link at index, if occupied.
func (t *Table) SetStatus(index int, status topology.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= Capacity {
		return
	}
	if t.slots[index] != nil {
		updated := *t.slots[index]
		updated.Target.Status = status
		t.slots[index] = &updated
	}
}

// SetWeight updates the Target weight of the link at index, if occupied.
func (t *Table) SetWeight(index int, weight int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= Capacity {
		return
	}
	if t.slots[index] != nil {
		updated := *t.slots[index]
		updated.Target.Weight = weight
		t.slots[index] = &updated
	}
}

// Snapshot returns a defensive copy of the occupied slots, safe to range
// over while concurrent attach/detach calls proceed: a reader never
// observes a nil slot with a non-nil value inside it, or a partially
// constructed Link, because each *topology.Link is replaced wholesale.
func (t *Table) Snapshot() []*topology.Link {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*topology.Link, Capacity)
	copy(out, t.slots[:])
	return out
}
