package nnduration_test

import (
	"testing"
	"time"

	"github.com/daqforge/ebfarm/core/nnduration"
	"github.com/daqforge/ebfarm/core/testenv"
)

var (
	makeAR   = testenv.MakeAR
	fromJSON = testenv.FromJSON
)

func TestMilliseconds(t *testing.T) {
	assert, _ := makeAR(t)

	var d nnduration.Milliseconds
	fromJSON(`1000`, &d)
	assert.EqualValues(1000, d)
	assert.Equal(time.Second, d.Duration())

	fromJSON(`"2s"`, &d)
	assert.EqualValues(2000, d)

	var zero nnduration.Milliseconds
	assert.Equal(time.Second, zero.DurationOr(1000))
}

func TestNanoseconds(t *testing.T) {
	assert, _ := makeAR(t)

	var d nnduration.Nanoseconds
	fromJSON(`"1us"`, &d)
	assert.EqualValues(1000, d)
	assert.Equal(time.Microsecond, d.Duration())
}
