// Package eventbuild implements the event-building state machine and the
// two-level software trigger pipeline.
//
// Fragments from many detector subsystems converge in a fixed-capacity pool
// of event slots. The L1 builder fires once all L0 sources have delivered;
// the L2 builder fires once the calorimeter set completes, and hands accepted
// events to a storage sink.
package eventbuild

import "github.com/daqforge/ebfarm/core/logging"

var logger = logging.New("eventbuild")
