// Package netring provides receive rings for the ingress workers.
//
// A Ring is one slice of the host's receive path, owned by exactly one
// worker. Implementations cover an AF_PACKET mmap ring (the kernel-bypass
// deployment), a set of SO_REUSEPORT UDP sockets (unprivileged deployment and
// test harness), and an in-memory mock.
package netring

import "io"

// Ring is one receive-ring slice, owned by a single worker.
type Ring interface {
	io.Closer

	// Poll fetches the next frame in non-blocking mode.
	// The frame is copied into buf; n is its captured length.
	// ok is false when the ring is currently empty.
	Poll(buf []byte) (n int, ok bool, e error)
}

// Sender is implemented by rings capable of transmitting frames,
// such as ARP replies.
type Sender interface {
	Send(frame []byte) error
}

// DefaultFrameLength is the buffer size handed to Ring.Poll.
// It accommodates jumbo frames from the detector readout network.
const DefaultFrameLength = 9216
