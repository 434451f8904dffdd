package eventbuild

import (
	"sync"
	"sync/atomic"

	"github.com/daqforge/ebfarm/mep"
)

// State indicates the assembly state of an event slot.
type State uint8

// Event slot states.
const (
	StateEmpty State = iota
	StateCollectingL0
	StateL1Processing
	StateWaitingForNonZSLKr
	StateCollectingLKr
	StateL2Processing
	StateComplete
)

func (st State) String() string {
	switch st {
	case StateEmpty:
		return "Empty"
	case StateCollectingL0:
		return "CollectingL0"
	case StateL1Processing:
		return "L1Processing"
	case StateWaitingForNonZSLKr:
		return "WaitingForNonZSLKr"
	case StateCollectingLKr:
		return "CollectingLKr"
	case StateL2Processing:
		return "L2Processing"
	case StateComplete:
		return "Complete"
	}
	return "invalid"
}

const occupiedBit = uint64(1) << 32

// Event is a preallocated slot in the event pool.
//
// Slot-local mutation is serialized by a per-slot lock held by the builders;
// the occupant event number is additionally published through an atomic word
// so that pool addressing can reject mismatched event numbers without taking
// the lock.
type Event struct {
	mu  sync.Mutex
	occ atomic.Uint64

	sources *mep.SourceSet

	eventNumber uint32
	burstID     uint32
	state       State

	l0Map   []bool
	l0Frags []*mep.L0Fragment
	l0Count int

	lkrMap   []bool
	lkrFrags []*mep.LKrFragment
	lkrCount int

	nonZSMap   []bool
	nonZSFrags []*mep.LKrFragment
	nonZSCount int

	l1Trigger uint8
	l2Trigger uint8
	l1Done    bool
	l2Done    bool
}

func (ev *Event) init(sources *mep.SourceSet) {
	ev.sources = sources
	ev.l0Map = make([]bool, sources.NumL0())
	ev.l0Frags = make([]*mep.L0Fragment, sources.NumL0())
	ev.lkrMap = make([]bool, sources.NumCrates())
	ev.lkrFrags = make([]*mep.LKrFragment, sources.NumCrates())
	ev.nonZSMap = make([]bool, sources.NumCrates())
	ev.nonZSFrags = make([]*mep.LKrFragment, sources.NumCrates())
}

// EventNumber returns the occupant event number.
func (ev *Event) EventNumber() uint32 {
	return ev.eventNumber
}

// BurstID returns the burst into which the event was admitted.
func (ev *Event) BurstID() uint32 {
	return ev.burstID
}

// State returns the assembly state.
func (ev *Event) State() State {
	return ev.state
}

// L1Trigger returns the L1 verdict byte.
func (ev *Event) L1Trigger() uint8 {
	return ev.l1Trigger
}

// L2Trigger returns the L2 verdict byte.
func (ev *Event) L2Trigger() uint8 {
	return ev.l2Trigger
}

// L0Fragments returns installed L0 fragments indexed by dense source index.
// Entries are nil until the corresponding source has delivered.
func (ev *Event) L0Fragments() []*mep.L0Fragment {
	return ev.l0Frags
}

// LKrFragments returns installed zero-suppressed calorimeter fragments
// indexed by dense crate index.
func (ev *Event) LKrFragments() []*mep.LKrFragment {
	return ev.lkrFrags
}

// NonZSLKrFragments returns installed non-zero-suppressed calorimeter
// fragments indexed by dense crate index.
func (ev *Event) NonZSLKrFragments() []*mep.LKrFragment {
	return ev.nonZSFrags
}

// PayloadLength returns the total length of all installed fragment payloads.
func (ev *Event) PayloadLength() (n int) {
	for _, f := range ev.l0Frags {
		if f != nil {
			n += len(f.Payload)
		}
	}
	for _, f := range ev.lkrFrags {
		if f != nil {
			n += len(f.Payload)
		}
	}
	for _, f := range ev.nonZSFrags {
		if f != nil {
			n += len(f.Payload)
		}
	}
	return n
}

// addL0Locked installs an L0 fragment.
// Returns ok=false on duplicate source, complete=true when the full expected
// L0 source set has arrived.
func (ev *Event) addL0Locked(frag *mep.L0Fragment) (ok, complete bool) {
	index, known := ev.sources.L0Index(frag.SourceID)
	if !known || ev.l0Map[index] {
		return false, false
	}
	ev.l0Map[index] = true
	ev.l0Frags[index] = frag
	ev.l0Count++
	if ev.state == StateEmpty || ev.state == StateCollectingLKr {
		ev.state = StateCollectingL0
	}
	return true, ev.l0Count == ev.sources.NumL0()
}

// addLKrLocked installs a calorimeter fragment into the zero-suppressed or
// non-zero-suppressed set according to its flags.
// Returns ok=false on duplicate crate, complete=true when the batch the
// fragment belongs to has fully arrived.
func (ev *Event) addLKrLocked(frag *mep.LKrFragment) (ok, complete bool) {
	index, known := ev.sources.CrateIndex(frag.Crate)
	if !known {
		return false, false
	}
	if frag.NonZS() {
		if ev.nonZSMap[index] {
			return false, false
		}
		ev.nonZSMap[index] = true
		ev.nonZSFrags[index] = frag
		ev.nonZSCount++
		return true, ev.nonZSCount == ev.sources.NumCrates()
	}
	if ev.lkrMap[index] {
		return false, false
	}
	ev.lkrMap[index] = true
	ev.lkrFrags[index] = frag
	ev.lkrCount++
	if ev.state == StateEmpty {
		ev.state = StateCollectingLKr
	}
	return true, ev.lkrCount == ev.sources.NumCrates()
}

func (ev *Event) lkrCompleteLocked() bool {
	return ev.lkrCount == ev.sources.NumCrates()
}

func (ev *Event) nonZSCompleteLocked() bool {
	return ev.nonZSCount == ev.sources.NumCrates()
}

// resetLocked releases every installed fragment and returns the slot to Empty.
func (ev *Event) resetLocked() {
	for i, f := range ev.l0Frags {
		if f != nil {
			f.Release()
			ev.l0Frags[i] = nil
		}
		ev.l0Map[i] = false
	}
	for i, f := range ev.lkrFrags {
		if f != nil {
			f.Release()
			ev.lkrFrags[i] = nil
		}
		ev.lkrMap[i] = false
	}
	for i, f := range ev.nonZSFrags {
		if f != nil {
			f.Release()
			ev.nonZSFrags[i] = nil
		}
		ev.nonZSMap[i] = false
	}
	ev.l0Count, ev.lkrCount, ev.nonZSCount = 0, 0, 0
	ev.l1Trigger, ev.l2Trigger = 0, 0
	ev.l1Done, ev.l2Done = false, false
	ev.eventNumber, ev.burstID = 0, 0
	ev.state = StateEmpty
}
