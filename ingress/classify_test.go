package ingress_test

import (
	"net"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"inet.af/netaddr"

	"github.com/daqforge/ebfarm/ingress"
	"github.com/daqforge/ebfarm/netring"
)

func TestClassifyPorts(t *testing.T) {
	assert, require := makeAR(t)
	cls := makeClassifier()

	for class, port := range map[ingress.Class]uint16{
		ingress.ClassL0:    ports.L0,
		ingress.ClassLKr:   ports.LKr,
		ingress.ClassStraw: ports.Straw,
		ingress.ClassEOB:   ports.EOB,
	} {
		frame := udpFrame(t, port, []byte{0xA0, 0xA1})
		res, e := cls.Classify(frame)
		require.NoError(e)
		require.NotNil(res)
		assert.Equal(class, res.Class)
		assert.Equal([]byte{0xA0, 0xA1}, res.Payload)
		assert.Equal(len(frame), res.FrameLength)
	}

	_, e := cls.Classify(udpFrame(t, 9999, []byte{0xA0}))
	assert.ErrorIs(e, ingress.ErrUnknownPort)
}

func TestClassifyPadding(t *testing.T) {
	assert, require := makeAR(t)
	cls := makeClassifier()

	// Ethernet padding beyond the declared IP length is tolerated
	frame := append(udpFrame(t, ports.L0, []byte{0xA0}), make([]byte, 16)...)
	res, e := cls.Classify(frame)
	require.NoError(e)
	require.NotNil(res)
	assert.Equal([]byte{0xA0}, res.Payload)

	// a capture shorter than the declared IP length is dropped
	full := udpFrame(t, ports.L0, []byte{0xA0, 0xA1, 0xA2, 0xA3})
	res, _ = cls.Classify(full[:len(full)-3])
	assert.Nil(res)
}

func TestClassifyForeign(t *testing.T) {
	assert, _ := makeAR(t)
	cls := makeClassifier()

	// frame destined to another host: silent drop
	frame, e := netring.WrapDatagram(
		netaddr.IPPortFrom(netaddr.IPv4(10, 0, 194, 1), 40000),
		netaddr.IPPortFrom(netaddr.IPv4(10, 0, 194, 99), ports.L0), []byte{0xA0})
	assert.NoError(e)
	res, e := cls.Classify(frame)
	assert.Nil(res)
	assert.NoError(e)

	// not Ethernet/IP at all
	res, e = cls.Classify([]byte{0x01, 0x02, 0x03})
	assert.Nil(res)
	assert.NoError(e)
}

func TestClassifyARP(t *testing.T) {
	assert, require := makeAR(t)
	cls := makeClassifier()

	res, e := cls.Classify(arpRequest(t, hostIP))
	require.NoError(e)
	require.NotNil(res)
	require.NotNil(res.ARPReply)

	pkt := gopacket.NewPacket(res.ARPReply, layers.LayerTypeEthernet, gopacket.Default)
	arp, _ := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
	require.NotNil(arp)
	assert.EqualValues(layers.ARPReply, arp.Operation)
	ip := hostIP.As4()
	assert.Equal(ip[:], []byte(arp.SourceProtAddress))
	assert.Equal([]byte(hostMAC), []byte(arp.SourceHwAddress))

	// request for a different IP is ignored
	res, e = cls.Classify(arpRequest(t, netaddr.IPv4(10, 0, 194, 77)))
	assert.Nil(res)
	assert.NoError(e)
}

func TestClassifyFragmented(t *testing.T) {
	assert, require := makeAR(t)
	cls := makeClassifier()

	full := udpFrame(t, ports.L0, []byte{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7})
	ipPayload := full[14+20:] // UDP header + payload
	cut := 8

	srcIP := netaddr.IPv4(10, 0, 194, 1).As4()
	dstIP := hostIP.As4()
	makeFrag := func(offset int, more bool, chunk []byte) []byte {
		eth := &layers.Ethernet{
			SrcMAC:       netring.SyntheticRemoteMAC,
			DstMAC:       netring.SyntheticLocalMAC,
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip4 := &layers.IPv4{
			Version:    4,
			TTL:        64,
			Id:         0x4242,
			Protocol:   layers.IPProtocolUDP,
			SrcIP:      net.IP(srcIP[:]),
			DstIP:      net.IP(dstIP[:]),
			FragOffset: uint16(offset / 8),
		}
		if more {
			ip4.Flags = layers.IPv4MoreFragments
		}
		sb := gopacket.NewSerializeBuffer()
		e := gopacket.SerializeLayers(sb, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
			eth, ip4, gopacket.Payload(chunk))
		require.NoError(e)
		return sb.Bytes()
	}

	// deliver the tail first: datagram incomplete
	res, e := cls.Classify(makeFrag(cut, false, ipPayload[cut:]))
	assert.Nil(res)
	assert.NoError(e)

	// head completes the datagram
	res, e = cls.Classify(makeFrag(0, true, ipPayload[:cut]))
	require.NoError(e)
	require.NotNil(res)
	assert.Equal(ingress.ClassL0, res.Class)
	assert.Equal([]byte{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7}, res.Payload)
}
