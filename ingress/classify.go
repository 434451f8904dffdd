package ingress

import (
	"bytes"
	"errors"
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"inet.af/netaddr"
)

// Ports assigns the ingress UDP ports.
type Ports struct {
	L0    uint16 `json:"l0"`
	LKr   uint16 `json:"lkr"`
	Straw uint16 `json:"straw"`
	EOB   uint16 `json:"eob"`
}

// Class identifies where a frame's UDP payload is routed.
type Class uint8

// Frame classes.
const (
	ClassL0 Class = iota
	ClassLKr
	ClassStraw
	ClassEOB
)

// Classification outcomes that bump a counter at the RX loop.
var (
	ErrBadLength   = errors.New("frame shorter than declared IP length")
	ErrUnknownPort = errors.New("unknown UDP destination port")
)

// Result describes one classified frame.
type Result struct {
	// Class selects the destination pipeline.
	Class Class

	// Payload is the UDP payload, possibly of a reassembled datagram.
	Payload []byte

	// FrameLength is the captured frame length, for byte accounting.
	FrameLength int

	// ARPReply, if non-nil, is a frame to transmit in response; no payload
	// is delivered in that case.
	ARPReply []byte
}

// Classifier parses Ethernet/IPv4/UDP headers defensively and routes frames.
// A Classifier is owned by a single worker; the reassembly table may be
// shared among workers.
type Classifier struct {
	hostIP  [4]byte
	hostMAC net.HardwareAddr
	ports   Ports
	reass   *ReassemblyTable

	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType
	eth     layers.Ethernet
	arp     layers.ARP
	ip4     layers.IPv4
}

// NewClassifier creates a Classifier.
func NewClassifier(hostIP netaddr.IP, hostMAC net.HardwareAddr, ports Ports, reass *ReassemblyTable) *Classifier {
	c := &Classifier{
		hostIP:  hostIP.As4(),
		hostMAC: hostMAC,
		ports:   ports,
		reass:   reass,
	}
	if len(c.hostMAC) == 0 {
		c.hostMAC = net.HardwareAddr{0x02, 0xEB, 0xFA, 0x00, 0x00, 0x01}
	}
	c.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet, &c.eth, &c.arp, &c.ip4)
	c.parser.IgnoreUnsupported = true
	return c
}

// Classify parses one frame.
// nil, nil indicates a silent drop (non-IP traffic, foreign destination, or
// an IP fragment whose datagram is not yet complete).
func (c *Classifier) Classify(frame []byte) (*Result, error) {
	c.decoded = c.decoded[:0]
	if e := c.parser.DecodeLayers(frame, &c.decoded); e != nil {
		return nil, nil
	}

	var haveIP4 bool
	for _, layerType := range c.decoded {
		switch layerType {
		case layers.LayerTypeARP:
			return c.classifyARP()
		case layers.LayerTypeIPv4:
			haveIP4 = true
		}
	}
	if !haveIP4 {
		return nil, nil
	}

	// Ethernet padding may extend the capture beyond the IP datagram, but a
	// capture shorter than the declared total length is a broken frame.
	if int(c.ip4.Length)+14 > len(frame) {
		return nil, ErrBadLength
	}
	if !bytes.Equal(c.ip4.DstIP.To4(), c.hostIP[:]) {
		return nil, nil
	}
	if c.ip4.Protocol != layers.IPProtocolUDP {
		return nil, nil
	}

	ipPayload := c.ip4.Payload
	if c.ip4.Flags&layers.IPv4MoreFragments != 0 || c.ip4.FragOffset > 0 {
		var src [4]byte
		copy(src[:], c.ip4.SrcIP.To4())
		ipPayload = c.reass.Add(src, c.ip4.Id, uint8(c.ip4.Protocol),
			int(c.ip4.FragOffset)*8, c.ip4.Flags&layers.IPv4MoreFragments != 0, ipPayload)
		if ipPayload == nil {
			return nil, nil
		}
	}

	var udp layers.UDP
	if e := udp.DecodeFromBytes(ipPayload, gopacket.NilDecodeFeedback); e != nil {
		return nil, ErrBadLength
	}
	if int(udp.Length) > len(ipPayload) {
		return nil, ErrBadLength
	}

	res := &Result{Payload: udp.Payload, FrameLength: len(frame)}
	switch uint16(udp.DstPort) {
	case c.ports.L0:
		res.Class = ClassL0
	case c.ports.LKr:
		res.Class = ClassLKr
	case c.ports.Straw:
		res.Class = ClassStraw
	case c.ports.EOB:
		res.Class = ClassEOB
	default:
		return nil, ErrUnknownPort
	}
	return res, nil
}

func (c *Classifier) classifyARP() (*Result, error) {
	if c.arp.Operation != layers.ARPRequest || !bytes.Equal(c.arp.DstProtAddress, c.hostIP[:]) {
		return nil, nil
	}
	reply, e := makeARPReply(&c.arp, c.hostMAC, c.hostIP)
	if e != nil {
		return nil, nil
	}
	return &Result{ARPReply: reply}, nil
}
