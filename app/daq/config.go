package daq

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"github.com/pkg/math"
	"inet.af/netaddr"

	"github.com/daqforge/ebfarm/core/nnduration"
	"github.com/daqforge/ebfarm/ingress"
)

// DefaultPoolCapacity is the default number of event slots.
// It must exceed the maximum in-flight event window so that dense in-order
// event numbers never collide in the steady state.
const DefaultPoolCapacity = 16384

// Config contains farm configuration.
type Config struct {
	// HostIP is this node's address on the readout network.
	HostIP netaddr.IP `json:"hostIP"`

	// Ports assigns the ingress UDP ports.
	Ports ingress.Ports `json:"ports"`

	// FirstBurstID is the initial burst epoch.
	FirstBurstID uint32 `json:"firstBurstID"`

	// NumWorkers is the event-builder fan-out count.
	// The default is the number of CPUs, at least 2.
	NumWorkers int `json:"numWorkers"`

	// PoolCapacity is the event slot count; default DefaultPoolCapacity.
	PoolCapacity int `json:"poolCapacity"`

	// L0Sources are the expected L0 source IDs.
	L0Sources []uint8 `json:"l0Sources"`

	// LKrSourceID is the calorimeter source ID.
	LKrSourceID uint8 `json:"lkrSourceID"`

	// LKrCrates are the expected calorimeter crate IDs.
	LKrCrates []uint8 `json:"lkrCrates"`

	// BurstGrace is the delay after EOB reception before the epoch may
	// advance; default 1s.
	BurstGrace nnduration.Milliseconds `json:"burstGrace,omitempty"`

	// ReassemblyCapacity bounds the IP fragment table.
	ReassemblyCapacity int `json:"reassemblyCapacity,omitempty"`

	// MaxPollFailures is how many consecutive ring errors a worker tolerates.
	MaxPollFailures int `json:"maxPollFailures,omitempty"`
}

func (cfg *Config) applyDefaults() {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = math.MaxInt(2, runtime.NumCPU())
	}
	if cfg.PoolCapacity <= 0 {
		cfg.PoolCapacity = DefaultPoolCapacity
	}
}

// Validate checks the configuration.
func (cfg Config) Validate() error {
	if cfg.HostIP.IsZero() || !cfg.HostIP.Is4() {
		return errors.New("hostIP must be an IPv4 address")
	}
	ports := []uint16{cfg.Ports.L0, cfg.Ports.LKr, cfg.Ports.Straw, cfg.Ports.EOB}
	seen := map[uint16]bool{}
	for _, port := range ports {
		if port == 0 {
			return errors.New("every ingress port must be assigned")
		}
		if seen[port] {
			return fmt.Errorf("duplicate ingress port %d", port)
		}
		seen[port] = true
	}
	if len(cfg.L0Sources) == 0 {
		return errors.New("l0Sources must not be empty")
	}
	if len(cfg.LKrCrates) == 0 {
		return errors.New("lkrCrates must not be empty")
	}
	return nil
}

// DecodeConfig parses a JSON configuration document.
// Unknown fields are rejected.
func DecodeConfig(j []byte) (cfg Config, e error) {
	decoder := json.NewDecoder(bytes.NewReader(j))
	decoder.DisallowUnknownFields()
	if e = decoder.Decode(&cfg); e != nil {
		return Config{}, e
	}
	return cfg, nil
}
