package eventbuild

import (
	"github.com/daqforge/ebfarm/mep"
)

// L1Builder joins L0 fragments into events and runs the L1 trigger once the
// full expected L0 source set has arrived.
type L1Builder struct {
	pool    *Pool
	trigger L1Processor
	l2      *L2Builder
	cnt     *Counters
}

// NewL1Builder creates an L1Builder.
// l2 handles events whose calorimeter set completed before the L1 verdict.
func NewL1Builder(pool *Pool, trigger L1Processor, l2 *L2Builder, cnt *Counters) *L1Builder {
	return &L1Builder{
		pool:    pool,
		trigger: trigger,
		l2:      l2,
		cnt:     cnt,
	}
}

// BuildEvent routes one L0 fragment to its event slot, firing the L1 trigger
// on the fragment that completes the source set. The whole protocol runs on
// the calling goroutine.
func (b *L1Builder) BuildEvent(frag *mep.L0Fragment, burstID uint32) {
	ev := b.pool.AcquireOrBind(frag.EventNumber, burstID)
	if ev == nil {
		b.cnt.ENCollisions.Add(1)
		frag.Release()
		return
	}

	if ev.l1Done {
		// L0 fragment for an event already past L1: stale retransmission
		b.cnt.LateFragments.Add(1)
		frag.Release()
		ev.Unlock()
		return
	}

	ok, complete := ev.addL0Locked(frag)
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

	ev.state = StateL1Processing
	verdict := safeVerdict(b.cnt, func() uint8 { return b.trigger.Compute(ev) })
	ev.l1Trigger = verdict
	ev.l1Done = true
	b.cnt.AddL1Trigger(verdict)

	switch {
	case verdict == L1Reject:
		ev.state = StateComplete
		b.pool.Release(ev)
	case verdict == L1RequestNonZS:
		ev.state = StateWaitingForNonZSLKr
		if ev.nonZSCompleteLocked() {
			b.l2.processNonZSLocked(ev)
			return
		}
		ev.Unlock()
	default:
		ev.state = StateCollectingLKr
		if ev.lkrCompleteLocked() {
			// calorimeter data arrived ahead of the last L0 source
			b.l2.processLocked(ev)
			return
		}
		ev.Unlock()
	}
}
