// Package events distributes pipeline lifecycle notifications, such as burst
// epoch changes, to registered listeners.
package events

import (
	"io"

	"github.com/chuckpreslar/emission"
	"go.uber.org/zap"

	"github.com/daqforge/ebfarm/core/logging"
)

var logger = logging.New("events")

// Event names a pipeline notification.
// Packages declare their events as typed constants.
type Event string

// Emitter delivers events synchronously to registered listeners.
// A panicking listener is logged and skipped; it never unwinds into the
// worker that emitted the event.
type Emitter struct {
	em *emission.Emitter
}

// NewEmitter creates an Emitter.
func NewEmitter() *Emitter {
	em := emission.NewEmitter()
	em.RecoverWith(func(event, listener any, e error) {
		logger.Error("listener failure",
			zap.Any("event", event),
			zap.Error(e),
		)
	})
	return &Emitter{em: em}
}

// Emit invokes the listeners of an event on the calling goroutine.
func (emitter *Emitter) Emit(event Event, arguments ...any) {
	emitter.em.EmitSync(event, arguments...)
}

// On registers a callback when an event occurs.
// Returns an io.Closer that cancels the callback registration.
func (emitter *Emitter) On(event Event, listener any) io.Closer {
	emitter.em.On(event, listener)
	return canceler{emitter.em, event, listener}
}

// Once registers a one-time callback when an event occurs.
// Returns an io.Closer that cancels the callback registration.
func (emitter *Emitter) Once(event Event, listener any) io.Closer {
	emitter.em.Once(event, listener)
	return canceler{emitter.em, event, listener}
}

type canceler struct {
	em       *emission.Emitter
	event    Event
	listener any
}

func (c canceler) Close() error {
	c.em.Off(c.event, c.listener)
	return nil
}
