// Package daq composes the event-building farm: receive rings, ingress
// workers, MEP dispatch, the two trigger builders, and the storage sink.
package daq

import "github.com/daqforge/ebfarm/core/logging"

var logger = logging.New("daq")
