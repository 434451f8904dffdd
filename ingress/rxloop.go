package ingress

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/math"
	"go.uber.org/zap"

	"github.com/daqforge/ebfarm/eventbuild"
	"github.com/daqforge/ebfarm/netring"
)

// Backoff bounds for an empty ring.
const (
	backoffInitial = time.Microsecond
	backoffMaximum = 10 * time.Millisecond
)

// DefaultMaxPollFailures is how many consecutive ring poll errors are
// tolerated before the worker exits.
const DefaultMaxPollFailures = 8

// ErrRingFailure indicates the ring failed repeatedly and the worker exited.
var ErrRingFailure = errors.New("ring poll failure")

// IdleFunc is invoked when the ring is empty, before the backoff sleep.
// Returning true indicates work was done and resets the backoff.
type IdleFunc func() bool

// RxLoop is one ingress worker. It owns a ring slice and a classifier, and
// processes each frame to completion on its own goroutine: multiple frames
// proceed in parallel across workers, but an individual frame is
// single-threaded from ingress through verdict.
type RxLoop struct {
	id    int
	ring  netring.Ring
	cls   *Classifier
	demux *Demux
	cnt   *eventbuild.Counters

	// Idle, if non-nil, runs when the ring is empty.
	Idle IdleFunc

	// MaxPollFailures overrides DefaultMaxPollFailures when positive.
	MaxPollFailures int

	stopping atomic.Bool
	logger   *zap.Logger
}

// NewRxLoop creates an RxLoop.
func NewRxLoop(id int, ring netring.Ring, cls *Classifier, demux *Demux, cnt *eventbuild.Counters) *RxLoop {
	return &RxLoop{
		id:     id,
		ring:   ring,
		cls:    cls,
		demux:  demux,
		cnt:    cnt,
		logger: logger.With(zap.Int("worker", id)),
	}
}

// Stop requests cooperative termination before the next poll.
func (w *RxLoop) Stop() {
	w.stopping.Store(true)
}

// Run polls the ring until Stop or a fatal ring failure.
// An empty ring backs off exponentially from 1µs to 10ms; any successful
// receive resets the backoff.
func (w *RxLoop) Run() error {
	buf := make([]byte, netring.DefaultFrameLength)
	backoff := backoffInitial
	failures := 0
	maxFailures := w.MaxPollFailures
	if maxFailures <= 0 {
		maxFailures = DefaultMaxPollFailures
	}

	w.logger.Info("worker started")
	for !w.stopping.Load() {
		n, ok, e := w.ring.Poll(buf)
		if e != nil {
			failures++
			if failures >= maxFailures {
				w.logger.Error("ring failure, worker exiting", zap.Error(e))
				return fmt.Errorf("%w: %s", ErrRingFailure, e)
			}
			continue
		}
		failures = 0

		if !ok {
			if w.Idle != nil && w.Idle() {
				backoff = backoffInitial
				continue
			}
			time.Sleep(backoff)
			backoff = time.Duration(math.MinInt64(int64(backoff)*2, int64(backoffMaximum)))
			continue
		}
		backoff = backoffInitial

		frame := make([]byte, n)
		copy(frame, buf[:n])
		w.processFrame(frame)
	}
	w.logger.Info("worker stopped")
	return nil
}

func (w *RxLoop) processFrame(frame []byte) {
	res, e := w.cls.Classify(frame)
	switch {
	case e != nil:
		switch {
		case errors.Is(e, ErrUnknownPort):
			w.cnt.UnknownPortFrames.Add(1)
		default:
			w.cnt.MalformedFrames.Add(1)
		}
		return
	case res == nil:
		return
	case res.ARPReply != nil:
		if sender, ok := w.ring.(netring.Sender); ok {
			if e := sender.Send(res.ARPReply); e != nil {
				w.logger.Warn("ARP reply send failed", zap.Error(e))
			}
		}
		return
	}
	w.demux.Dispatch(res)
}
