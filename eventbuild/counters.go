package eventbuild

import (
	"fmt"
	"sync/atomic"
)

// SourceCounters tallies traffic of one source ID.
type SourceCounters struct {
	MEPs   atomic.Uint64
	Events atomic.Uint64
	Bytes  atomic.Uint64
}

// Counters is the explicit holder of pipeline tallies. It is initialized at
// startup and threaded into workers, so that tests can instantiate one per
// case. All increments are relaxed atomic adds; readers tolerate skew.
type Counters struct {
	perSource  [256]SourceCounters
	l1Triggers [256]atomic.Uint64
	l2Triggers [256]atomic.Uint64

	EventsSentToStorage atomic.Uint64
	BytesSentToStorage  atomic.Uint64

	ENCollisions       atomic.Uint64
	DuplicateFragments atomic.Uint64
	LateFragments      atomic.Uint64
	TriggerFailures    atomic.Uint64
	StorageFailures    atomic.Uint64

	MalformedMEPs     atomic.Uint64
	MalformedFrames   atomic.Uint64
	UnknownPortFrames atomic.Uint64
	BadEOBFrames      atomic.Uint64
}

// NewCounters creates a Counters holder.
func NewCounters() *Counters {
	return &Counters{}
}

// Source returns the counters of one source ID.
func (cnt *Counters) Source(id uint8) *SourceCounters {
	return &cnt.perSource[id]
}

// AddL1Trigger increments the tally of an L1 verdict byte.
func (cnt *Counters) AddL1Trigger(verdict uint8) {
	cnt.l1Triggers[verdict].Add(1)
}

// AddL2Trigger increments the tally of an L2 verdict byte.
func (cnt *Counters) AddL2Trigger(verdict uint8) {
	cnt.l2Triggers[verdict].Add(1)
}

// L1Triggers returns the tally of an L1 verdict byte.
func (cnt *Counters) L1Triggers(verdict uint8) uint64 {
	return cnt.l1Triggers[verdict].Load()
}

// L2Triggers returns the tally of an L2 verdict byte.
func (cnt *Counters) L2Triggers(verdict uint8) uint64 {
	return cnt.l2Triggers[verdict].Load()
}

// Snapshot is a point-in-time reading of pipeline totals.
type Snapshot struct {
	MEPs   uint64 `json:"meps"`
	Events uint64 `json:"events"`
	Bytes  uint64 `json:"bytes"`

	EventsSentToStorage uint64 `json:"eventsSentToStorage"`
	BytesSentToStorage  uint64 `json:"bytesSentToStorage"`

	ENCollisions       uint64 `json:"enCollisions"`
	DuplicateFragments uint64 `json:"duplicateFragments"`
	LateFragments      uint64 `json:"lateFragments"`
	TriggerFailures    uint64 `json:"triggerFailures"`
	StorageFailures    uint64 `json:"storageFailures"`
	MalformedMEPs      uint64 `json:"malformedMEPs"`
	MalformedFrames    uint64 `json:"malformedFrames"`
	UnknownPortFrames  uint64 `json:"unknownPortFrames"`
	BadEOBFrames       uint64 `json:"badEOBFrames"`
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%dmeps %devents %db storage=(%devents %db) drops=(%dcoll %ddup %dlate %dtrig %dstor %dmep %dfrm %dport %deob)",
		s.MEPs, s.Events, s.Bytes, s.EventsSentToStorage, s.BytesSentToStorage,
		s.ENCollisions, s.DuplicateFragments, s.LateFragments, s.TriggerFailures, s.StorageFailures,
		s.MalformedMEPs, s.MalformedFrames, s.UnknownPortFrames, s.BadEOBFrames)
}

// ReadCounters returns a Snapshot summed over all source IDs.
func (cnt *Counters) ReadCounters() (s Snapshot) {
	for i := range cnt.perSource {
		s.MEPs += cnt.perSource[i].MEPs.Load()
		s.Events += cnt.perSource[i].Events.Load()
		s.Bytes += cnt.perSource[i].Bytes.Load()
	}
	s.EventsSentToStorage = cnt.EventsSentToStorage.Load()
	s.BytesSentToStorage = cnt.BytesSentToStorage.Load()
	s.ENCollisions = cnt.ENCollisions.Load()
	s.DuplicateFragments = cnt.DuplicateFragments.Load()
	s.LateFragments = cnt.LateFragments.Load()
	s.TriggerFailures = cnt.TriggerFailures.Load()
	s.StorageFailures = cnt.StorageFailures.Load()
	s.MalformedMEPs = cnt.MalformedMEPs.Load()
	s.MalformedFrames = cnt.MalformedFrames.Load()
	s.UnknownPortFrames = cnt.UnknownPortFrames.Load()
	s.BadEOBFrames = cnt.BadEOBFrames.Load()
	return s
}
