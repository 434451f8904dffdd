package daq

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/daqforge/ebfarm/core/events"
	"github.com/daqforge/ebfarm/eventbuild"
	"github.com/daqforge/ebfarm/ingress"
	"github.com/daqforge/ebfarm/mep"
	"github.com/daqforge/ebfarm/netring"
)

// RingFactory opens the receive-ring slice of one worker.
type RingFactory func(worker int) (netring.Ring, error)

// Options supplies the pipeline collaborators.
type Options struct {
	// NewRing opens one ring per worker. Required.
	NewRing RingFactory

	// L1 computes the level-1 trigger decision; default accepts every event.
	L1 eventbuild.L1Processor

	// L2 computes the level-2 trigger decision; default accepts every event.
	L2 eventbuild.L2Processor

	// Sink receives accepted events; default eventbuild.Discard.
	Sink eventbuild.Sink

	// Straw consumes straw-tracker frames; default ingress.NopStraw.
	Straw ingress.StrawReceiver

	// HostMAC is used for ARP replies; default a locally administered address.
	HostMAC net.HardwareAddr

	// Idle runs on each worker when its ring is empty.
	Idle ingress.IdleFunc
}

func (opts *Options) applyDefaults() {
	if opts.L1 == nil {
		opts.L1 = eventbuild.L1Func(func(*eventbuild.Event) uint8 { return 2 })
	}
	if opts.L2 == nil {
		opts.L2 = eventbuild.L2Funcs{
			ComputeFunc:        func(*eventbuild.Event) uint8 { return 1 },
			OnNonZSLKrDataFunc: func(*eventbuild.Event) uint8 { return 1 },
		}
	}
	if opts.Sink == nil {
		opts.Sink = eventbuild.Discard{}
	}
	if opts.Straw == nil {
		opts.Straw = &ingress.NopStraw{}
	}
}

// Pipeline is an assembled event-building farm node.
type Pipeline struct {
	cfg     Config
	sources *mep.SourceSet
	cnt     *eventbuild.Counters
	burst   *eventbuild.BurstManager
	pool    *eventbuild.Pool
	emitter *events.Emitter

	rings   []netring.Ring
	workers []*ingress.RxLoop

	wg   sync.WaitGroup
	errs chan error
}

// New creates a Pipeline.
func New(cfg Config, opts Options) (*Pipeline, error) {
	cfg.applyDefaults()
	if e := cfg.Validate(); e != nil {
		return nil, e
	}
	if opts.NewRing == nil {
		return nil, fmt.Errorf("NewRing is required")
	}
	opts.applyDefaults()

	sources, e := mep.NewSourceSet(cfg.L0Sources, cfg.LKrSourceID, cfg.LKrCrates)
	if e != nil {
		return nil, fmt.Errorf("source set: %w", e)
	}
	pool, e := eventbuild.NewPool(cfg.PoolCapacity, sources)
	if e != nil {
		return nil, e
	}

	p := &Pipeline{
		cfg:     cfg,
		sources: sources,
		cnt:     eventbuild.NewCounters(),
		emitter: events.NewEmitter(),
		pool:    pool,
		errs:    make(chan error, cfg.NumWorkers),
	}
	p.burst = eventbuild.NewBurstManager(cfg.FirstBurstID, cfg.BurstGrace.Duration(), p.emitter)

	l2b := eventbuild.NewL2Builder(pool, opts.L2, opts.Sink, p.cnt)
	l1b := eventbuild.NewL1Builder(pool, opts.L1, l2b, p.cnt)
	d := &dispatcher{
		sources: sources,
		cnt:     p.cnt,
		burst:   p.burst,
		l1:      l1b,
		l2:      l2b,
	}
	demux := &ingress.Demux{
		L0:    d.handleL0,
		LKr:   d.handleLKr,
		EOB:   d.handleEOB,
		Straw: opts.Straw,
	}

	reass := ingress.NewReassemblyTable(cfg.ReassemblyCapacity)
	for i := 0; i < cfg.NumWorkers; i++ {
		ring, e := opts.NewRing(i)
		if e != nil {
			p.closeRings()
			return nil, fmt.Errorf("NewRing(%d): %w", i, e)
		}
		p.rings = append(p.rings, ring)

		cls := ingress.NewClassifier(cfg.HostIP, opts.HostMAC, cfg.Ports, reass)
		w := ingress.NewRxLoop(i, ring, cls, demux, p.cnt)
		w.Idle = opts.Idle
		w.MaxPollFailures = cfg.MaxPollFailures
		p.workers = append(p.workers, w)
	}

	logger.Info("pipeline assembled",
		zap.Stringer("hostIP", cfg.HostIP),
		zap.Int("numWorkers", cfg.NumWorkers),
		zap.Int("poolCapacity", cfg.PoolCapacity),
		zap.Uint32("firstBurstID", cfg.FirstBurstID),
	)
	return p, nil
}

// Counters returns the counters holder.
func (p *Pipeline) Counters() *eventbuild.Counters {
	return p.cnt
}

// Burst returns the burst epoch manager.
func (p *Pipeline) Burst() *eventbuild.BurstManager {
	return p.burst
}

// Emitter returns the event emitter carrying EvtEOB and EvtBurstAdvance.
func (p *Pipeline) Emitter() *events.Emitter {
	return p.emitter
}

// Launch starts the ingress workers.
func (p *Pipeline) Launch() {
	for _, w := range p.workers {
		w := w
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if e := w.Run(); e != nil {
				p.errs <- e
			}
		}()
	}
}

// Errors exposes fatal worker failures.
func (p *Pipeline) Errors() <-chan error {
	return p.errs
}

// Close stops the workers, discards in-flight events, and closes the rings.
func (p *Pipeline) Close() error {
	for _, w := range p.workers {
		w.Stop()
	}
	p.wg.Wait()
	return p.closeRings()
}

func (p *Pipeline) closeRings() error {
	var errs []error
	for _, ring := range p.rings {
		errs = append(errs, ring.Close())
	}
	p.rings = nil
	return multierr.Combine(errs...)
}
