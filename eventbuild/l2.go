package eventbuild

import (
	"github.com/daqforge/ebfarm/mep"
	"go.uber.org/zap"
)

// L2Builder joins calorimeter fragments into events, runs the L2 trigger once
// the expected crate set completes, and hands accepted events to the storage
// sink.
type L2Builder struct {
	pool    *Pool
	trigger L2Processor
	sink    Sink
	cnt     *Counters
}

// NewL2Builder creates an L2Builder.
func NewL2Builder(pool *Pool, trigger L2Processor, sink Sink, cnt *Counters) *L2Builder {
	return &L2Builder{
		pool:    pool,
		trigger: trigger,
		sink:    sink,
		cnt:     cnt,
	}
}

// BuildEvent routes one calorimeter fragment to its event slot. A fragment
// arriving before any L0 data claims the slot. The L2 trigger fires on the
// fragment that completes the relevant batch:
// zero-suppressed when L1 has passed normally, or non-zero-suppressed when L1
// requested the follow-up readout.
func (b *L2Builder) BuildEvent(frag *mep.LKrFragment, burstID uint32) {
	ev := b.pool.AcquireOrBind(frag.EventNumber, burstID)
	if ev == nil {
		b.cnt.ENCollisions.Add(1)
		frag.Release()
		return
	}

	if ev.l2Done {
		b.cnt.LateFragments.Add(1)
		frag.Release()
		ev.Unlock()
		return
	}

	nonZS := frag.NonZS()
	ok, complete := ev.addLKrLocked(frag)
	if !ok {
		b.cnt.DuplicateFragments.Add(1)
		frag.Release()
		ev.Unlock()
		return
	}
	if !complete {
		ev.Unlock()
		return
	}

	switch {
	case nonZS && ev.state == StateWaitingForNonZSLKr:
		b.processNonZSLocked(ev)
	case !nonZS && ev.l1Done && ev.state == StateCollectingLKr:
		b.processLocked(ev)
	default:
		// the batch is complete but L1 has not decided yet, or this batch is
		// not the one the event is waiting for
		ev.Unlock()
	}
}

// processLocked runs the normal L2 computation on zero-suppressed data.
// The slot lock must be held; it is released before return.
func (b *L2Builder) processLocked(ev *Event) {
	ev.state = StateL2Processing
	b.finishLocked(ev, safeVerdict(b.cnt, func() uint8 { return b.trigger.Compute(ev) }))
}

// processNonZSLocked runs the L2 computation on a completed
// non-zero-suppressed batch. The slot lock must be held.
func (b *L2Builder) processNonZSLocked(ev *Event) {
	b.finishLocked(ev, safeVerdict(b.cnt, func() uint8 { return b.trigger.OnNonZSLKrData(ev) }))
}

// finishLocked records the verdict, sends accepted events to storage, and
// returns the slot to the pool. A second verdict for the same event is
// invalid; the slot state machine makes it unreachable.
func (b *L2Builder) finishLocked(ev *Event, verdict uint8) {
	ev.state = StateL2Processing
	ev.l2Trigger = verdict
	ev.l2Done = true

	if verdict != L2Reject {
		n, e := b.sink.Send(ev)
		if e != nil {
			b.cnt.StorageFailures.Add(1)
			logger.Warn("storage sink failure",
				zap.Uint32("en", ev.EventNumber()),
				zap.Error(e),
			)
		} else {
			b.cnt.EventsSentToStorage.Add(1)
			b.cnt.BytesSentToStorage.Add(uint64(n))
		}
	}
	b.cnt.AddL2Trigger(verdict)

	ev.state = StateComplete
	b.pool.Release(ev)
}
