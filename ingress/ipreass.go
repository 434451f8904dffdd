package ingress

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultReassemblyCapacity bounds how many incomplete datagrams are kept.
const DefaultReassemblyCapacity = 256

type reassKey struct {
	src   [4]byte
	ident uint16
	proto uint8
}

type reassPiece struct {
	offset  int
	payload []byte
}

type reassEntry struct {
	pieces  []reassPiece
	total   int // -1 until the last fragment arrives
	gotHead bool
}

// ReassemblyTable reassembles IPv4 fragments before upper-layer parsing.
// Datagrams are keyed by (source IP, IP identification, protocol); the table
// is bounded and evicts the least recently touched incomplete datagram.
// It is safe for concurrent use by multiple workers.
type ReassemblyTable struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewReassemblyTable creates a ReassemblyTable.
// capacity of zero selects DefaultReassemblyCapacity.
func NewReassemblyTable(capacity int) *ReassemblyTable {
	if capacity <= 0 {
		capacity = DefaultReassemblyCapacity
	}
	cache, _ := lru.New(capacity)
	return &ReassemblyTable{cache: cache}
}

// Add inserts one IPv4 fragment.
// fragOffset is in bytes; more reflects the More Fragments flag.
// When the datagram is complete, the reassembled IP payload is returned and
// the entry is removed; otherwise nil is returned.
func (tbl *ReassemblyTable) Add(src [4]byte, ident uint16, proto uint8, fragOffset int, more bool, payload []byte) []byte {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()

	key := reassKey{src: src, ident: ident, proto: proto}
	var entry *reassEntry
	if v, ok := tbl.cache.Get(key); ok {
		entry = v.(*reassEntry)
	} else {
		entry = &reassEntry{total: -1}
		tbl.cache.Add(key, entry)
	}

	entry.pieces = append(entry.pieces, reassPiece{offset: fragOffset, payload: append([]byte{}, payload...)})
	if fragOffset == 0 {
		entry.gotHead = true
	}
	if !more {
		entry.total = fragOffset + len(payload)
	}

	if !entry.gotHead || entry.total < 0 {
		return nil
	}
	sort.Slice(entry.pieces, func(i, j int) bool { return entry.pieces[i].offset < entry.pieces[j].offset })
	covered := 0
	for _, piece := range entry.pieces {
		if piece.offset > covered {
			return nil // hole
		}
		if end := piece.offset + len(piece.payload); end > covered {
			covered = end
		}
	}
	if covered < entry.total {
		return nil
	}

	full := make([]byte, entry.total)
	for _, piece := range entry.pieces {
		copy(full[piece.offset:], piece.payload)
	}
	tbl.cache.Remove(key)
	return full
}

// Len returns the number of incomplete datagrams currently held.
func (tbl *ReassemblyTable) Len() int {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	return tbl.cache.Len()
}
