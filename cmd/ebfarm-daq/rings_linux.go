//go:build linux

package main

import "github.com/daqforge/ebfarm/netring"

func newAfPacketFactory(ifname string, fanoutID uint16) func(int) (netring.Ring, error) {
	return func(int) (netring.Ring, error) {
		return netring.NewAfPacketRing(netring.AfPacketConfig{
			Interface: ifname,
			FanoutID:  fanoutID,
		})
	}
}
