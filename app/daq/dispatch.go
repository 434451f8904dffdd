package daq

import (
	"go.uber.org/zap"

	"github.com/daqforge/ebfarm/eventbuild"
	"github.com/daqforge/ebfarm/mep"
)

// dispatcher consumes classified UDP payloads: it parses MEPs, keeps the
// per-source tallies, drives the burst epoch, and feeds the builders.
// It is shared by all workers; every method is safe for concurrent use.
type dispatcher struct {
	sources *mep.SourceSet
	cnt     *eventbuild.Counters
	burst   *eventbuild.BurstManager
	l1      *eventbuild.L1Builder
	l2      *eventbuild.L2Builder
}

func (d *dispatcher) handleL0(payload []byte, frameLength int) {
	m, e := mep.ParseL0(payload, d.sources)
	if e != nil {
		d.cnt.MalformedMEPs.Add(1)
		logger.Debug("L0 MEP dropped", zap.Error(e))
		return
	}

	d.burst.MaybeAdvance(m.FirstEventNumber)
	burstID := d.burst.CurrentBurstID()

	src := d.cnt.Source(m.SourceID)
	src.MEPs.Add(1)
	src.Events.Add(uint64(m.NumEvents()))
	src.Bytes.Add(uint64(frameLength))

	for _, frag := range m.Fragments() {
		d.l1.BuildEvent(frag, burstID)
	}
}

func (d *dispatcher) handleLKr(payload []byte, frameLength int) {
	m, e := mep.ParseLKr(payload, d.sources)
	if e != nil {
		d.cnt.MalformedMEPs.Add(1)
		logger.Debug("LKr MEP dropped", zap.Error(e))
		return
	}

	src := d.cnt.Source(d.sources.LKrID())
	src.MEPs.Add(1)
	src.Events.Add(uint64(m.NumEvents()))
	src.Bytes.Add(uint64(frameLength))

	burstID := d.burst.CurrentBurstID()
	for _, frag := range m.Fragments() {
		d.l2.BuildEvent(frag, burstID)
	}
}

func (d *dispatcher) handleEOB(payload []byte) {
	if e := d.burst.HandleEOB(payload); e != nil {
		d.cnt.BadEOBFrames.Add(1)
		logger.Warn("unrecognizable frame at EOB broadcast port", zap.Error(e))
	}
}
