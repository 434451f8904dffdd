package eventbuild

import (
	"errors"

	"github.com/daqforge/ebfarm/mep"
)

// ErrPoolCapacity indicates an invalid pool capacity.
var ErrPoolCapacity = errors.New("pool capacity must be positive")

// Pool is a fixed-capacity array of event slots addressed by event number
// modulo capacity. The pool never evicts: a fragment whose event number maps
// to a slot occupied by a different event number is rejected.
type Pool struct {
	slots    []Event
	capacity uint32
}

// NewPool creates a Pool with preallocated slots.
func NewPool(capacity int, sources *mep.SourceSet) (*Pool, error) {
	if capacity <= 0 {
		return nil, ErrPoolCapacity
	}
	p := &Pool{
		slots:    make([]Event, capacity),
		capacity: uint32(capacity),
	}
	for i := range p.slots {
		p.slots[i].init(sources)
	}
	return p, nil
}

// Capacity returns the number of slots.
func (p *Pool) Capacity() int {
	return int(p.capacity)
}

// AcquireOrBind returns the slot for event number en, claiming it if Empty.
// The slot is returned with its lock held; the caller must end the critical
// section with Unlock, or with Release if the slot is to be returned Empty.
// Returns nil, with nothing locked, if the slot is occupied by a different
// event number.
func (p *Pool) AcquireOrBind(en, burstID uint32) *Event {
	ev := &p.slots[en%p.capacity]
	if occ := ev.occ.Load(); occ != 0 && uint32(occ) != en {
		return nil
	}

	ev.mu.Lock()
	switch {
	case ev.state == StateEmpty:
		ev.eventNumber = en
		ev.burstID = burstID
		ev.occ.Store(occupiedBit | uint64(en))
	case ev.eventNumber != en:
		ev.mu.Unlock()
		return nil
	}
	return ev
}

// Unlock ends a critical section started by AcquireOrBind.
func (ev *Event) Unlock() {
	ev.mu.Unlock()
}

// Release resets a slot to Empty, publishes the vacancy, and unlocks it.
// Every fragment reference held by the slot is released first.
// The caller must hold the slot lock (from AcquireOrBind).
func (p *Pool) Release(ev *Event) {
	ev.resetLocked()
	ev.occ.Store(0)
	ev.mu.Unlock()
}
