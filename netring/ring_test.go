package netring_test

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gabstv/freeport"
	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"go4.org/must"
	"inet.af/netaddr"

	"github.com/daqforge/ebfarm/core/testenv"
	"github.com/daqforge/ebfarm/netring"
)

var makeAR = testenv.MakeAR

func TestMockRing(t *testing.T) {
	assert, _ := makeAR(t)

	ring := netring.NewMockRing()
	defer must.Close(ring)

	buf := make([]byte, netring.DefaultFrameLength)
	_, ok, e := ring.Poll(buf)
	assert.False(ok)
	assert.NoError(e)

	ring.Push([]byte{0x01, 0x02, 0x03})
	n, ok, e := ring.Poll(buf)
	assert.True(ok)
	assert.NoError(e)
	assert.Equal([]byte{0x01, 0x02, 0x03}, buf[:n])

	assert.NoError(ring.Send([]byte{0xEE}))
	assert.Len(ring.Sent(), 1)
}

func TestWrapDatagram(t *testing.T) {
	assert, require := makeAR(t)

	src := netaddr.IPPortFrom(netaddr.IPv4(192, 168, 1, 50), 40000)
	dst := netaddr.IPPortFrom(netaddr.IPv4(192, 168, 1, 10), 58913)
	frame, e := netring.WrapDatagram(src, dst, []byte{0xA0, 0xA1})
	require.NoError(e)

	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	ip4, _ := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	require.NotNil(ip4)
	assert.Equal("192.168.1.10", ip4.DstIP.String())
	udp, _ := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	require.NotNil(udp)
	assert.EqualValues(58913, udp.DstPort)
	assert.Equal([]byte{0xA0, 0xA1}, udp.Payload)
}

func TestUDPRing(t *testing.T) {
	assert, require := makeAR(t)

	port, e := freeport.UDP()
	require.NoError(e)

	ring, e := netring.NewUDPRing(netring.UDPRingConfig{
		Host:  netaddr.IPv4(127, 0, 0, 1),
		Ports: []uint16{uint16(port)},
	})
	require.NoError(e)
	defer must.Close(ring)

	buf := make([]byte, netring.DefaultFrameLength)
	_, ok, e := ring.Poll(buf)
	assert.False(ok)
	assert.NoError(e)

	conn, e := net.Dial("udp4", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(e)
	defer must.Close(conn)
	_, e = conn.Write([]byte{0xB0, 0xB1, 0xB2})
	require.NoError(e)

	var n int
	for i := 0; i < 100; i++ {
		n, ok, e = ring.Poll(buf)
		require.NoError(e)
		if ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(ok, "datagram not delivered")

	pkt := gopacket.NewPacket(buf[:n], layers.LayerTypeEthernet, gopacket.Default)
	udp, _ := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	require.NotNil(udp)
	assert.EqualValues(port, udp.DstPort)
	assert.Equal([]byte{0xB0, 0xB1, 0xB2}, udp.Payload)
}
