//go:build !linux

package main

import (
	"errors"

	"github.com/daqforge/ebfarm/netring"
)

func newAfPacketFactory(string, uint16) func(int) (netring.Ring, error) {
	return func(int) (netring.Ring, error) {
		return nil, errors.New("AF_PACKET rings require linux")
	}
}
