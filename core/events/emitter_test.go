package events_test

import (
	"testing"

	"github.com/daqforge/ebfarm/core/events"
	"github.com/daqforge/ebfarm/core/testenv"
)

var makeAR = testenv.MakeAR

const evtTest events.Event = "test-event"

func TestEmitter(t *testing.T) {
	assert, _ := makeAR(t)

	emitter := events.NewEmitter()
	hit := 0
	defer emitter.On(evtTest, func(delta int) { hit += delta }).Close()

	once := emitter.Once(evtTest, func(delta int) { hit += 100 * delta })
	defer once.Close()

	emitter.Emit(evtTest, 1)
	assert.Equal(101, hit)

	emitter.Emit(evtTest, 1)
	assert.Equal(102, hit)

	cancel := emitter.On(evtTest, func(delta int) { hit += 10000 * delta })
	cancel.Close()
	emitter.Emit(evtTest, 1)
	assert.Equal(103, hit)
}

func TestEmitterListenerFailure(t *testing.T) {
	assert, _ := makeAR(t)

	emitter := events.NewEmitter()
	hit := 0
	defer emitter.On(evtTest, func(int) { panic("listener bug") }).Close()
	defer emitter.On(evtTest, func(delta int) { hit += delta }).Close()

	// the panicking listener is recovered; the emitting goroutine survives
	assert.NotPanics(func() { emitter.Emit(evtTest, 1) })
	assert.Equal(1, hit)
}
