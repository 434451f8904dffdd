package ingress_test

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"inet.af/netaddr"

	"github.com/daqforge/ebfarm/core/testenv"
	"github.com/daqforge/ebfarm/ingress"
	"github.com/daqforge/ebfarm/netring"
)

var makeAR = testenv.MakeAR

var (
	hostIP  = netaddr.IPv4(10, 0, 194, 32)
	ports   = ingress.Ports{L0: 58913, LKr: 58915, Straw: 58916, EOB: 14162}
	hostMAC = net.HardwareAddr{0x02, 0xEB, 0xFA, 0x00, 0x00, 0x01}
)

func makeClassifier() *ingress.Classifier {
	return ingress.NewClassifier(hostIP, hostMAC, ports, ingress.NewReassemblyTable(0))
}

// udpFrame builds a frame destined to the host on the given port.
func udpFrame(t testing.TB, port uint16, payload []byte) []byte {
	frame, e := netring.WrapDatagram(
		netaddr.IPPortFrom(netaddr.IPv4(10, 0, 194, 1), 40000),
		netaddr.IPPortFrom(hostIP, port), payload)
	if e != nil {
		t.Fatal(e)
	}
	return frame
}

// arpRequest builds an ARP request for the given target IP.
func arpRequest(t testing.TB, target netaddr.IP) []byte {
	srcMAC := net.HardwareAddr{0x0A, 0x00, 0x27, 0x00, 0x00, 0x09}
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		EthernetType: layers.EthernetTypeARP,
	}
	src := netaddr.IPv4(10, 0, 194, 1).As4()
	dst := target.As4()
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   srcMAC,
		SourceProtAddress: src[:],
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    dst[:],
	}
	sb := gopacket.NewSerializeBuffer()
	if e := gopacket.SerializeLayers(sb, gopacket.SerializeOptions{FixLengths: true}, eth, arp); e != nil {
		t.Fatal(e)
	}
	return sb.Bytes()
}
