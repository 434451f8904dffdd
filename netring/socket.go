package netring

import (
	"fmt"
	"net"
	"time"

	"github.com/gogf/greuse"
	"go.uber.org/multierr"
	"inet.af/netaddr"
)

// UDPRingConfig contains UDPRing configuration.
type UDPRingConfig struct {
	// Host is the IP address presented as frame destination to the classifier.
	Host netaddr.IP

	// Ports are the UDP ports to listen on.
	Ports []uint16
}

// UDPRing is a Ring over SO_REUSEPORT UDP sockets. Several workers may open
// rings on the same port set; the kernel spreads datagrams among them.
// Received datagrams are re-wrapped into Ethernet frames so that the same
// classifier serves both this and the AF_PACKET path.
type UDPRing struct {
	host    netaddr.IP
	ports   []uint16
	conns   []net.PacketConn
	next    int
	scratch []byte
}

var _ Ring = (*UDPRing)(nil)

// NewUDPRing creates a UDPRing.
func NewUDPRing(cfg UDPRingConfig) (*UDPRing, error) {
	if len(cfg.Ports) == 0 {
		return nil, fmt.Errorf("no ports configured")
	}
	r := &UDPRing{
		host:    cfg.Host,
		ports:   append([]uint16{}, cfg.Ports...),
		scratch: make([]byte, DefaultFrameLength),
	}
	for _, port := range r.ports {
		conn, e := greuse.ListenPacket("udp4", fmt.Sprintf(":%d", port))
		if e != nil {
			r.Close()
			return nil, fmt.Errorf("greuse.ListenPacket(%d): %w", port, e)
		}
		r.conns = append(r.conns, conn)
	}
	return r, nil
}

// Poll implements Ring. Each call inspects every port once.
func (r *UDPRing) Poll(buf []byte) (n int, ok bool, e error) {
	for range r.conns {
		i := r.next
		r.next = (r.next + 1) % len(r.conns)

		conn := r.conns[i]
		conn.SetReadDeadline(time.Now().Add(time.Microsecond))
		length, addr, e := conn.ReadFrom(r.scratch)
		if e != nil {
			if ne, ok := e.(net.Error); ok && ne.Timeout() {
				continue
			}
			return 0, false, e
		}

		src := netaddr.IPPortFrom(netaddr.IPv4(0, 0, 0, 0), 0)
		if ua, ok := addr.(*net.UDPAddr); ok {
			if ipp, ok := netaddr.FromStdAddr(ua.IP, ua.Port, ua.Zone); ok {
				src = ipp
			}
		}
		frame, e := WrapDatagram(src, netaddr.IPPortFrom(r.host, r.ports[i]), r.scratch[:length])
		if e != nil {
			return 0, false, e
		}
		return copy(buf, frame), true, nil
	}
	return 0, false, nil
}

// Close implements Ring.
func (r *UDPRing) Close() error {
	var errs []error
	for _, conn := range r.conns {
		if conn != nil {
			errs = append(errs, conn.Close())
		}
	}
	return multierr.Combine(errs...)
}
