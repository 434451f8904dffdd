package mep_test

import (
	"testing"

	"github.com/daqforge/ebfarm/core/testenv"
	"github.com/daqforge/ebfarm/mep"
)

var makeAR = testenv.MakeAR

func makeSources(t testing.TB) *mep.SourceSet {
	sources, e := mep.NewSourceSet([]uint8{0x04, 0x08, 0x0C}, 0x24, []uint8{0, 1})
	if e != nil {
		t.Fatal(e)
	}
	return sources
}

func TestSourceSet(t *testing.T) {
	assert, _ := makeAR(t)
	sources := makeSources(t)

	assert.Equal(3, sources.NumL0())
	assert.True(sources.HasL0(0x08))
	assert.False(sources.HasL0(0x09))
	assert.False(sources.HasL0(0x24))

	index, ok := sources.L0Index(0x0C)
	assert.True(ok)
	assert.Equal(2, index)
	_, ok = sources.L0Index(0x24)
	assert.False(ok)

	assert.EqualValues(0x24, sources.LKrID())
	assert.Equal(2, sources.NumCrates())

	_, e := mep.NewSourceSet([]uint8{1, 1}, 0x24, nil)
	assert.Error(e)
	_, e = mep.NewSourceSet([]uint8{0x24}, 0x24, nil)
	assert.Error(e)
}

func TestParseL0(t *testing.T) {
	assert, require := makeAR(t)
	sources := makeSources(t)

	payload := mep.MakeL0MEP(0x04, 700, []byte{0xA0, 0xA1}, []byte{0xB0, 0xB1, 0xB2})
	m, e := mep.ParseL0(payload, sources)
	require.NoError(e)
	assert.EqualValues(0x04, m.SourceID)
	assert.EqualValues(700, m.FirstEventNumber)
	require.Equal(2, m.NumEvents())

	frags := m.Fragments()
	assert.EqualValues(700, frags[0].EventNumber)
	assert.EqualValues(701, frags[1].EventNumber)
	assert.Equal([]byte{0xA0, 0xA1}, frags[0].Payload)
	assert.Equal([]byte{0xB0, 0xB1, 0xB2}, frags[1].Payload)

	freed := false
	m.OnFree(func() { freed = true })
	frags[0].Release()
	assert.False(freed)
	frags[1].Release()
	assert.True(freed)
}

func TestParseL0Invalid(t *testing.T) {
	assert, _ := makeAR(t)
	sources := makeSources(t)

	_, e := mep.ParseL0([]byte{0x04, 0, 0}, sources)
	assert.ErrorIs(e, mep.ErrTruncated)

	// unknown source fails the whole MEP
	_, e = mep.ParseL0(mep.MakeL0MEP(0x05, 700, []byte{0xA0}), sources)
	assert.ErrorIs(e, mep.ErrUnknownSource)

	// declared length differs from payload length
	payload := mep.MakeL0MEP(0x04, 700, []byte{0xA0})
	_, e = mep.ParseL0(payload[:len(payload)-1], sources)
	assert.ErrorIs(e, mep.ErrLengthMismatch)

	// fragment length escaping the payload
	payload = mep.MakeL0MEP(0x04, 700, []byte{0xA0, 0xA1})
	payload[mep.L0HeaderLength+2] = 0xFF
	_, e = mep.ParseL0(payload, sources)
	assert.ErrorIs(e, mep.ErrTruncated)

	// event count exceeding what the payload can hold
	payload = mep.MakeL0MEP(0x04, 700, []byte{0xA0})
	payload[5] = 200
	_, e = mep.ParseL0(payload, sources)
	assert.ErrorIs(e, mep.ErrTruncated)
}

func TestParseLKr(t *testing.T) {
	assert, require := makeAR(t)
	sources := makeSources(t)

	payload := mep.MakeLKrMEP(0x24,
		mep.LKrFragmentSpec{EventNumber: 7, Crate: 0, Payload: []byte{0xC0}},
		mep.LKrFragmentSpec{EventNumber: 8, Crate: 1, NonZS: true, Payload: []byte{0xC1, 0xC2}},
	)
	m, e := mep.ParseLKr(payload, sources)
	require.NoError(e)
	require.Equal(2, m.NumEvents())

	frags := m.Fragments()
	assert.EqualValues(7, frags[0].EventNumber)
	assert.False(frags[0].NonZS())
	assert.EqualValues(8, frags[1].EventNumber)
	assert.True(frags[1].NonZS())
	assert.EqualValues(1, frags[1].Crate)
	assert.Equal([]byte{0xC1, 0xC2}, frags[1].Payload)
}

func TestParseLKrInvalid(t *testing.T) {
	assert, _ := makeAR(t)
	sources := makeSources(t)

	// wrong source ID on the LKr port
	_, e := mep.ParseLKr(mep.MakeLKrMEP(0x04,
		mep.LKrFragmentSpec{EventNumber: 7, Crate: 0, Payload: []byte{0xC0}}), sources)
	assert.ErrorIs(e, mep.ErrSourceConflict)

	// unknown crate anywhere fails the whole MEP
	_, e = mep.ParseLKr(mep.MakeLKrMEP(0x24,
		mep.LKrFragmentSpec{EventNumber: 7, Crate: 0, Payload: []byte{0xC0}},
		mep.LKrFragmentSpec{EventNumber: 7, Crate: 9, Payload: []byte{0xC1}}), sources)
	assert.ErrorIs(e, mep.ErrUnknownCrate)
}

func TestEOB(t *testing.T) {
	assert, _ := makeAR(t)

	finished, e := mep.DecodeEOB(mep.MakeEOB(10))
	assert.NoError(e)
	assert.EqualValues(10, finished)

	_, e = mep.DecodeEOB(make([]byte, mep.EOBPayloadLength-1))
	assert.ErrorIs(e, mep.ErrLengthMismatch)
}
