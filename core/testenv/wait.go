package testenv

import (
	"testing"
	"time"
)

// WaitFor polls cond until it holds, failing the test after 5 seconds.
// Ingress workers deliver asynchronously, so tests observing counters or
// sink records must wait for the pipeline to drain rather than assert
// immediately.
func WaitFor(t testing.TB, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}
