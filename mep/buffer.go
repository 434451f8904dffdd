package mep

import "sync/atomic"

// Buffer is a reference-counted receive buffer.
// Each fragment parsed from an MEP holds one reference; releasing the last
// reference frees the buffer and invokes the free hook.
type Buffer struct {
	data   []byte
	refs   int32
	onFree func()
}

func newBuffer(data []byte, refs int32) *Buffer {
	return &Buffer{data: data, refs: refs}
}

func (b *Buffer) release() {
	if atomic.AddInt32(&b.refs, -1) != 0 {
		return
	}
	b.data = nil
	if b.onFree != nil {
		b.onFree()
	}
}

// Refs returns the current reference count.
func (b *Buffer) Refs() int {
	return int(atomic.LoadInt32(&b.refs))
}

// Released determines whether the buffer has been freed.
func (b *Buffer) Released() bool {
	return b.Refs() <= 0
}
