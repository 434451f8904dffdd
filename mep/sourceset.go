package mep

import "fmt"

// SourceSet describes the configured detector subsystems: the expected L0
// source IDs, the distinguished LKr source ID, and the expected LKr crates.
type SourceSet struct {
	l0IDs      []uint8
	l0Index    [256]int16
	lkrID      uint8
	crates     []uint8
	crateIndex [256]int16
}

// NewSourceSet creates a SourceSet.
// l0IDs must not contain duplicates or the LKr source ID.
func NewSourceSet(l0IDs []uint8, lkrID uint8, crates []uint8) (*SourceSet, error) {
	set := &SourceSet{
		l0IDs:  append([]uint8{}, l0IDs...),
		lkrID:  lkrID,
		crates: append([]uint8{}, crates...),
	}
	for i := range set.l0Index {
		set.l0Index[i] = -1
		set.crateIndex[i] = -1
	}
	for i, id := range set.l0IDs {
		if id == lkrID {
			return nil, fmt.Errorf("source %d conflicts with LKr source ID", id)
		}
		if set.l0Index[id] >= 0 {
			return nil, fmt.Errorf("duplicate L0 source %d", id)
		}
		set.l0Index[id] = int16(i)
	}
	for i, crate := range set.crates {
		if set.crateIndex[crate] >= 0 {
			return nil, fmt.Errorf("duplicate LKr crate %d", crate)
		}
		set.crateIndex[crate] = int16(i)
	}
	return set, nil
}

// NumL0 returns the number of expected L0 sources.
func (set *SourceSet) NumL0() int {
	return len(set.l0IDs)
}

// HasL0 determines whether id is a configured L0 source.
func (set *SourceSet) HasL0(id uint8) bool {
	return set.l0Index[id] >= 0
}

// L0Index returns the dense index of an L0 source ID.
func (set *SourceSet) L0Index(id uint8) (index int, ok bool) {
	i := set.l0Index[id]
	return int(i), i >= 0
}

// LKrID returns the LKr source ID.
func (set *SourceSet) LKrID() uint8 {
	return set.lkrID
}

// NumCrates returns the number of expected LKr crates.
func (set *SourceSet) NumCrates() int {
	return len(set.crates)
}

// CrateIndex returns the dense index of an LKr crate ID.
func (set *SourceSet) CrateIndex(crate uint8) (index int, ok bool) {
	i := set.crateIndex[crate]
	return int(i), i >= 0
}
