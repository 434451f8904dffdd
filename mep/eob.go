package mep

import (
	"encoding/binary"
	"fmt"
)

// EOBPayloadLength is the exact UDP payload size of an end-of-burst broadcast.
const EOBPayloadLength = 16

const eobFinishedBurstOffset = 4

// DecodeEOB extracts the finished burst ID from an end-of-burst broadcast.
// A payload whose size differs from EOBPayloadLength is rejected.
func DecodeEOB(payload []byte) (finishedBurstID uint32, e error) {
	if len(payload) != EOBPayloadLength {
		return 0, fmt.Errorf("%w: EOB payload is %d octets, expect %d", ErrLengthMismatch, len(payload), EOBPayloadLength)
	}
	return binary.LittleEndian.Uint32(payload[eobFinishedBurstOffset:]), nil
}

// MakeEOB encodes an end-of-burst broadcast payload.
func MakeEOB(finishedBurstID uint32) []byte {
	payload := make([]byte, EOBPayloadLength)
	binary.LittleEndian.PutUint32(payload[eobFinishedBurstOffset:], finishedBurstID)
	return payload
}
