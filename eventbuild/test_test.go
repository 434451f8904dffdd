package eventbuild_test

import (
	"errors"
	"testing"

	"github.com/daqforge/ebfarm/core/testenv"
	"github.com/daqforge/ebfarm/eventbuild"
	"github.com/daqforge/ebfarm/mep"
)

var makeAR = testenv.MakeAR

var errAlwaysFail = errors.New("sink is down")

const (
	srcA   = 0x04
	srcB   = 0x08
	lkrID  = 0x24
	crate0 = 0
	crate1 = 1
)

func makeSources(t testing.TB) *mep.SourceSet {
	sources, e := mep.NewSourceSet([]uint8{srcA, srcB}, lkrID, []uint8{crate0, crate1})
	if e != nil {
		t.Fatal(e)
	}
	return sources
}

func makePool(t testing.TB, capacity int) (*mep.SourceSet, *eventbuild.Pool) {
	sources := makeSources(t)
	pool, e := eventbuild.NewPool(capacity, sources)
	if e != nil {
		t.Fatal(e)
	}
	return sources, pool
}

// parseL0Frag builds a single-fragment L0 MEP and parses it back.
func parseL0Frag(t testing.TB, sources *mep.SourceSet, sourceID uint8, en uint32, payload []byte) *mep.L0Fragment {
	m, e := mep.ParseL0(mep.MakeL0MEP(sourceID, en, payload), sources)
	if e != nil {
		t.Fatal(e)
	}
	return m.Fragments()[0]
}

func parseLKrFrag(t testing.TB, sources *mep.SourceSet, en uint32, crate uint8, nonZS bool, payload []byte) *mep.LKrFragment {
	m, e := mep.ParseLKr(mep.MakeLKrMEP(lkrID, mep.LKrFragmentSpec{
		EventNumber: en, Crate: crate, NonZS: nonZS, Payload: payload,
	}), sources)
	if e != nil {
		t.Fatal(e)
	}
	return m.Fragments()[0]
}

type sinkRecord struct {
	EventNumber uint32
	BurstID     uint32
	L1, L2      uint8
	Length      int
}

// recordingSink captures one record per accepted event.
// Concurrent Send is not expected; the pipeline completes each event on a
// single goroutine.
type recordingSink struct {
	records []sinkRecord
}

func (s *recordingSink) Send(ev *eventbuild.Event) (int, error) {
	n := ev.PayloadLength()
	s.records = append(s.records, sinkRecord{
		EventNumber: ev.EventNumber(),
		BurstID:     ev.BurstID(),
		L1:          ev.L1Trigger(),
		L2:          ev.L2Trigger(),
		Length:      n,
	})
	return n, nil
}

func constL1(verdict uint8) eventbuild.L1Processor {
	return eventbuild.L1Func(func(*eventbuild.Event) uint8 { return verdict })
}

func constL2(normal, nonZS uint8) eventbuild.L2Processor {
	return eventbuild.L2Funcs{
		ComputeFunc:        func(*eventbuild.Event) uint8 { return normal },
		OnNonZSLKrDataFunc: func(*eventbuild.Event) uint8 { return nonZS },
	}
}
