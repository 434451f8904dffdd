// Package ingress polls receive rings, classifies frames, reassembles
// IP-level fragments, and routes UDP payloads into the event-building
// pipeline.
package ingress

import "github.com/daqforge/ebfarm/core/logging"

var logger = logging.New("ingress")
