package mep

import (
	"encoding/binary"
	"fmt"
)

// LKr MEP wire layout constants.
const (
	LKrHeaderLength     = 6
	LKrFragHeaderLength = 8

	// LKrFlagNonZS marks a fragment carrying non-zero-suppressed samples.
	LKrFlagNonZS uint8 = 0x01
)

// LKrFragment is one calorimeter event fragment within an LKr MEP.
// Unlike L0 fragments, it carries an absolute event number.
// Payload is a view into the MEP buffer.
type LKrFragment struct {
	EventNumber uint32
	Crate       uint8
	Flags       uint8
	Payload     []byte

	buf *Buffer
}

// NonZS determines whether this fragment belongs to a non-zero-suppressed batch.
func (f *LKrFragment) NonZS() bool {
	return f.Flags&LKrFlagNonZS != 0
}

// Release returns this fragment's reference on the MEP buffer.
func (f *LKrFragment) Release() {
	f.buf.release()
}

// LKrMEP is a parsed LKr multi-event packet.
type LKrMEP struct {
	SourceID uint8

	frags []*LKrFragment
	buf   *Buffer
}

// NumEvents returns the number of fragments.
// The count is fixed at parse time.
func (m *LKrMEP) NumEvents() int {
	return len(m.frags)
}

// Fragments returns the parsed fragments.
func (m *LKrMEP) Fragments() []*LKrFragment {
	return m.frags
}

// OnFree registers a hook invoked when the last fragment releases the buffer.
func (m *LKrMEP) OnFree(f func()) {
	m.buf.onFree = f
}

// ParseLKr parses an LKr MEP from a UDP payload.
// The source ID must be the configured LKr source and every crate must be in
// the expected crate set; otherwise the whole MEP fails and no fragment is
// returned.
func ParseLKr(payload []byte, sources *SourceSet) (*LKrMEP, error) {
	if len(payload) < LKrHeaderLength {
		return nil, fmt.Errorf("%w: %d octets", ErrTruncated, len(payload))
	}
	m := &LKrMEP{SourceID: payload[0]}
	eventCount := int(payload[1])
	mepLength := int(binary.LittleEndian.Uint16(payload[2:]))

	if mepLength != len(payload) {
		return nil, fmt.Errorf("%w: declared %d, have %d", ErrLengthMismatch, mepLength, len(payload))
	}
	if m.SourceID != sources.LKrID() {
		return nil, fmt.Errorf("%w: %d", ErrSourceConflict, m.SourceID)
	}
	if LKrHeaderLength+eventCount*LKrFragHeaderLength > len(payload) {
		return nil, fmt.Errorf("%w: %d fragments cannot fit in %d octets", ErrTruncated, eventCount, len(payload))
	}

	m.buf = newBuffer(payload, int32(eventCount))
	m.frags = make([]*LKrFragment, 0, eventCount)
	offset := LKrHeaderLength
	for i := 0; i < eventCount; i++ {
		if offset+LKrFragHeaderLength > len(payload) {
			return nil, fmt.Errorf("%w: fragment %d header at %d", ErrTruncated, i, offset)
		}
		fragLen := int(binary.LittleEndian.Uint16(payload[offset+6:]))
		if fragLen < LKrFragHeaderLength || offset+fragLen > len(payload) {
			return nil, fmt.Errorf("%w: fragment %d length %d at %d", ErrTruncated, i, fragLen, offset)
		}
		crate := payload[offset+5]
		if _, ok := sources.CrateIndex(crate); !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCrate, crate)
		}
		m.frags = append(m.frags, &LKrFragment{
			EventNumber: binary.LittleEndian.Uint32(payload[offset:]),
			Flags:       payload[offset+4],
			Crate:       crate,
			Payload:     payload[offset+LKrFragHeaderLength : offset+fragLen],
			buf:         m.buf,
		})
		offset += fragLen
	}
	return m, nil
}

// LKrFragmentSpec describes one fragment for MakeLKrMEP.
type LKrFragmentSpec struct {
	EventNumber uint32
	Crate       uint8
	NonZS       bool
	Payload     []byte
}

// MakeLKrMEP encodes an LKr MEP.
func MakeLKrMEP(sourceID uint8, frags ...LKrFragmentSpec) []byte {
	length := LKrHeaderLength
	for _, f := range frags {
		length += LKrFragHeaderLength + len(f.Payload)
	}
	mep := make([]byte, LKrHeaderLength, length)
	mep[0] = sourceID
	mep[1] = uint8(len(frags))
	binary.LittleEndian.PutUint16(mep[2:], uint16(length))
	for _, f := range frags {
		var hdr [LKrFragHeaderLength]byte
		binary.LittleEndian.PutUint32(hdr[:], f.EventNumber)
		if f.NonZS {
			hdr[4] = LKrFlagNonZS
		}
		hdr[5] = f.Crate
		binary.LittleEndian.PutUint16(hdr[6:], uint16(LKrFragHeaderLength+len(f.Payload)))
		mep = append(mep, hdr[:]...)
		mep = append(mep, f.Payload...)
	}
	return mep
}
