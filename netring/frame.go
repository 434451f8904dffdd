package netring

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"inet.af/netaddr"
)

// Synthetic MAC addresses used when wrapping datagrams into Ethernet frames.
var (
	SyntheticLocalMAC  = net.HardwareAddr{0x02, 0xEB, 0xFA, 0x00, 0x00, 0x01}
	SyntheticRemoteMAC = net.HardwareAddr{0x02, 0xEB, 0xFA, 0x00, 0x00, 0x02}
)

// WrapDatagram encapsulates a UDP payload into a full Ethernet/IPv4/UDP
// frame. The UDP socket rings use it to present received datagrams to the
// frame classifier; tests use it to inject synthetic traffic.
func WrapDatagram(src, dst netaddr.IPPort, payload []byte) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       SyntheticRemoteMAC,
		DstMAC:       SyntheticLocalMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	srcIP, dstIP := src.IP().As4(), dst.IP().As4()
	ip4 := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(srcIP[:]),
		DstIP:    net.IP(dstIP[:]),
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(src.Port()),
		DstPort: layers.UDPPort(dst.Port()),
	}
	udp.SetNetworkLayerForChecksum(ip4)

	sb := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if e := gopacket.SerializeLayers(sb, opts, eth, ip4, udp, gopacket.Payload(payload)); e != nil {
		return nil, e
	}
	return sb.Bytes(), nil
}
