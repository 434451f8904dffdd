//go:build linux

package netring

import (
	"errors"
	"fmt"
	"time"

	"github.com/gopacket/gopacket/afpacket"
)

// AfPacketConfig contains AfPacketRing configuration.
type AfPacketConfig struct {
	// Interface is the network interface name.
	Interface string

	// FanoutID, if nonzero, joins a PACKET_FANOUT group so that several
	// workers can each own a slice of the same interface's traffic.
	FanoutID uint16

	// PollTimeout bounds how long an empty ring blocks the kernel poll.
	// The default is 1ms.
	PollTimeout time.Duration
}

func (cfg *AfPacketConfig) applyDefaults() {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Millisecond
	}
}

// AfPacketRing is a Ring over an AF_PACKET mmap ring.
type AfPacketRing struct {
	tp *afpacket.TPacket
}

var (
	_ Ring   = (*AfPacketRing)(nil)
	_ Sender = (*AfPacketRing)(nil)
)

// NewAfPacketRing creates an AfPacketRing bound to a network interface.
func NewAfPacketRing(cfg AfPacketConfig) (*AfPacketRing, error) {
	cfg.applyDefaults()
	tp, e := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Interface),
		afpacket.OptPollTimeout(cfg.PollTimeout),
	)
	if e != nil {
		return nil, fmt.Errorf("afpacket.NewTPacket(%s): %w", cfg.Interface, e)
	}
	if cfg.FanoutID != 0 {
		if e := tp.SetFanout(afpacket.FanoutHash, cfg.FanoutID); e != nil {
			tp.Close()
			return nil, fmt.Errorf("SetFanout: %w", e)
		}
	}
	return &AfPacketRing{tp: tp}, nil
}

// Poll implements Ring.
func (r *AfPacketRing) Poll(buf []byte) (n int, ok bool, e error) {
	ci, e := r.tp.ReadPacketDataTo(buf)
	if e != nil {
		if errors.Is(e, afpacket.ErrTimeout) {
			return 0, false, nil
		}
		return 0, false, e
	}
	return ci.CaptureLength, true, nil
}

// Send implements Sender.
func (r *AfPacketRing) Send(frame []byte) error {
	return r.tp.WritePacketData(frame)
}

// Close implements Ring.
func (r *AfPacketRing) Close() error {
	r.tp.Close()
	return nil
}
