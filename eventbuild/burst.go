package eventbuild

import (
	"sync/atomic"
	"time"

	"github.com/daqforge/ebfarm/core/events"
	"github.com/daqforge/ebfarm/mep"
	"go.uber.org/zap"
)

// Emitted events.
const (
	// EvtEOB is emitted with the upcoming burst ID when an EOB broadcast arrives.
	EvtEOB events.Event = "eob"

	// EvtBurstAdvance is emitted with the new burst ID when the epoch advances.
	EvtBurstAdvance events.Event = "burst-advance"
)

// SmallEventNumberMax bounds the "small" first event number that permits an
// epoch advance: an MEP starting this low must belong to a fresh burst.
const SmallEventNumberMax = 1000

// DefaultBurstGrace is the delay after EOB reception before the epoch may
// advance, letting sibling threads drain fragments of the finished burst.
const DefaultBurstGrace = time.Second

// BurstManager tracks the current and next burst epochs.
//
// An EOB broadcast only records the upcoming burst ID; the switch itself is
// deferred to L0 ingress, once the first event number is small and the grace
// period has elapsed. Switching at the precise EOB boundary would misattribute
// late fragments still being processed by sibling threads.
type BurstManager struct {
	current atomic.Uint32
	next    atomic.Uint32
	eobAt   atomic.Int64

	start   time.Time
	grace   time.Duration
	emitter *events.Emitter
}

// NewBurstManager creates a BurstManager starting at firstBurstID.
// grace of zero selects DefaultBurstGrace. emitter may be nil.
func NewBurstManager(firstBurstID uint32, grace time.Duration, emitter *events.Emitter) *BurstManager {
	if grace <= 0 {
		grace = DefaultBurstGrace
	}
	bm := &BurstManager{
		start:   time.Now(),
		grace:   grace,
		emitter: emitter,
	}
	bm.current.Store(firstBurstID)
	bm.next.Store(firstBurstID)
	return bm
}

// monotonic clock reading, immune to wall-clock jumps
func (bm *BurstManager) now() int64 {
	return int64(time.Since(bm.start))
}

// CurrentBurstID returns the current burst epoch.
func (bm *BurstManager) CurrentBurstID() uint32 {
	return bm.current.Load()
}

// NextBurstID returns the upcoming burst epoch.
func (bm *BurstManager) NextBurstID() uint32 {
	return bm.next.Load()
}

// SetNext records the upcoming burst ID and stamps the EOB receipt instant.
func (bm *BurstManager) SetNext(next uint32) {
	bm.next.Store(next)
	bm.eobAt.Store(bm.now())
	logger.Info("EOB received, will advance burst ID",
		zap.Uint32("current", bm.CurrentBurstID()),
		zap.Uint32("next", next),
	)
	if bm.emitter != nil {
		bm.emitter.Emit(EvtEOB, next)
	}
}

// HandleEOB decodes an EOB broadcast payload and records the upcoming burst.
func (bm *BurstManager) HandleEOB(payload []byte) error {
	finished, e := mep.DecodeEOB(payload)
	if e != nil {
		return e
	}
	bm.SetNext(finished + 1)
	return nil
}

// MaybeAdvance publishes the upcoming burst ID as current, if an advance is
// pending, the observed first event number is small, and the grace period
// since EOB reception has elapsed. Called on each L0 MEP ingress.
func (bm *BurstManager) MaybeAdvance(firstEventNumber uint32) (advanced bool) {
	current := bm.current.Load()
	next := bm.next.Load()
	if next == current || firstEventNumber >= SmallEventNumberMax {
		return false
	}
	if bm.now()-bm.eobAt.Load() <= int64(bm.grace) {
		return false
	}
	if !bm.current.CompareAndSwap(current, next) {
		return false
	}
	logger.Info("burst ID advanced", zap.Uint32("burst", next))
	if bm.emitter != nil {
		bm.emitter.Emit(EvtBurstAdvance, next)
	}
	return true
}
