package ingress

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// makeARPReply builds a reply frame for an ARP request targeting hostIP.
func makeARPReply(req *layers.ARP, hostMAC net.HardwareAddr, hostIP [4]byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       hostMAC,
		DstMAC:       net.HardwareAddr(req.SourceHwAddress),
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPReply,
		SourceHwAddress:   hostMAC,
		SourceProtAddress: hostIP[:],
		DstHwAddress:      req.SourceHwAddress,
		DstProtAddress:    req.SourceProtAddress,
	}
	sb := gopacket.NewSerializeBuffer()
	if e := gopacket.SerializeLayers(sb, gopacket.SerializeOptions{FixLengths: true}, eth, arp); e != nil {
		return nil, e
	}
	return sb.Bytes(), nil
}
