package mep

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// L0 MEP wire layout constants.
const (
	L0HeaderLength     = 8
	L0FragHeaderLength = 4
)

// Parsing errors.
var (
	ErrLengthMismatch = errors.New("declared MEP length differs from payload length")
	ErrTruncated      = errors.New("MEP truncated")
	ErrUnknownSource  = errors.New("unknown source ID")
	ErrUnknownCrate   = errors.New("unknown LKr crate")
	ErrSourceConflict = errors.New("source ID is not the LKr source")
)

// L0Fragment is one event fragment within an L0 MEP.
// Payload is a view into the MEP buffer.
type L0Fragment struct {
	EventNumber uint32
	SourceID    uint8
	Flags       uint8
	Payload     []byte

	buf *Buffer
}

// Release returns this fragment's reference on the MEP buffer.
// Each fragment must be released exactly once, either after being installed
// into an event slot and later released with that slot, or immediately when
// dropped.
func (f *L0Fragment) Release() {
	f.buf.release()
}

// L0MEP is a parsed L0 multi-event packet.
type L0MEP struct {
	SourceID         uint8
	FirstEventNumber uint32

	frags []*L0Fragment
	buf   *Buffer
}

// NumEvents returns the number of fragments.
// The count is fixed at parse time.
func (m *L0MEP) NumEvents() int {
	return len(m.frags)
}

// Fragments returns the parsed fragments.
func (m *L0MEP) Fragments() []*L0Fragment {
	return m.frags
}

// OnFree registers a hook invoked when the last fragment releases the buffer.
func (m *L0MEP) OnFree(f func()) {
	m.buf.onFree = f
}

// ParseL0 parses an L0 MEP from a UDP payload.
// The payload is retained as the MEP buffer; fragments reference it.
// Any validation failure, including a source ID outside the configured set,
// fails the whole MEP: no fragment is returned.
func ParseL0(payload []byte, sources *SourceSet) (*L0MEP, error) {
	if len(payload) < L0HeaderLength {
		return nil, fmt.Errorf("%w: %d octets", ErrTruncated, len(payload))
	}
	m := &L0MEP{
		SourceID:         payload[0],
		FirstEventNumber: binary.LittleEndian.Uint32(payload[1:]) & 0x00FFFFFF,
	}
	eventCount := int(payload[5])
	mepLength := int(binary.LittleEndian.Uint16(payload[6:]))

	if mepLength != len(payload) {
		return nil, fmt.Errorf("%w: declared %d, have %d", ErrLengthMismatch, mepLength, len(payload))
	}
	if !sources.HasL0(m.SourceID) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSource, m.SourceID)
	}
	if L0HeaderLength+eventCount*L0FragHeaderLength > len(payload) {
		return nil, fmt.Errorf("%w: %d fragments cannot fit in %d octets", ErrTruncated, eventCount, len(payload))
	}

	m.buf = newBuffer(payload, int32(eventCount))
	m.frags = make([]*L0Fragment, 0, eventCount)
	offset := L0HeaderLength
	for i := 0; i < eventCount; i++ {
		if offset+L0FragHeaderLength > len(payload) {
			return nil, fmt.Errorf("%w: fragment %d header at %d", ErrTruncated, i, offset)
		}
		fragLen := int(binary.LittleEndian.Uint16(payload[offset+2:]))
		if fragLen < L0FragHeaderLength || offset+fragLen > len(payload) {
			return nil, fmt.Errorf("%w: fragment %d length %d at %d", ErrTruncated, i, fragLen, offset)
		}
		m.frags = append(m.frags, &L0Fragment{
			EventNumber: m.FirstEventNumber + uint32(payload[offset]),
			SourceID:    m.SourceID,
			Flags:       payload[offset+1],
			Payload:     payload[offset+L0FragHeaderLength : offset+fragLen],
			buf:         m.buf,
		})
		offset += fragLen
	}
	return m, nil
}

// MakeL0MEP encodes an L0 MEP containing one fragment per payload,
// with event numbers firstEN, firstEN+1, and so on.
func MakeL0MEP(sourceID uint8, firstEN uint32, payloads ...[]byte) []byte {
	length := L0HeaderLength
	for _, p := range payloads {
		length += L0FragHeaderLength + len(p)
	}
	mep := make([]byte, L0HeaderLength, length)
	mep[0] = sourceID
	binary.LittleEndian.PutUint32(mep[1:], firstEN&0x00FFFFFF)
	mep[5] = uint8(len(payloads))
	binary.LittleEndian.PutUint16(mep[6:], uint16(length))
	for i, p := range payloads {
		var hdr [L0FragHeaderLength]byte
		hdr[0] = uint8(i)
		binary.LittleEndian.PutUint16(hdr[2:], uint16(L0FragHeaderLength+len(p)))
		mep = append(mep, hdr[:]...)
		mep = append(mep, p...)
	}
	return mep
}
