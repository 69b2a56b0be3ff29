package cs3

import (
	"context"
	"log/slog"
	"sync"
	"time"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
)

// Default sensor sampling period
const DefaultPollPeriod = 100 * time.Millisecond

// FrameInjector receives the event frames produced by the poller,
// typically the RX injection path of the simulated chip
type FrameInjector interface {
	QueueRx(frames ...mcp2515sim.Frame)
}

// Poller periodically samples the set of triggered sensors from the
// controller, diffs against the previous snapshot and injects one
// sensor event frame per transition.
type Poller struct {
	logger     *slog.Logger
	controller Controller
	injector   FrameInjector
	period     time.Duration
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	triggered  map[uint32]bool
}

func NewPoller(controller Controller, injector FrameInjector, period time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if period <= 0 {
		period = DefaultPollPeriod
	}
	return &Poller{
		logger:     logger.With("service", "[SENSOR]"),
		controller: controller,
		injector:   injector,
		period:     period,
		triggered:  map[uint32]bool{},
	}
}

// Start sensor polling, this will run inside of a go routine.
// Call Stop() to stop polling or cancel the context.
// Call Wait() to wait for end of execution.
func (p *Poller) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
	return nil
}

// Stop sensor polling, idempotent
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Wait for polling to finish (blocking)
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	p.logger.Info("starting sensor polling", "period", p.period)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("exited sensor polling")
			return
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll performs a single sample/diff cycle. All events of one cycle
// are injected in a single batch.
func (p *Poller) Poll() {
	current := map[uint32]bool{}
	for _, train := range p.controller.Trains() {
		for _, id := range train.TriggeredSensors() {
			current[id] = true
		}
	}

	var events []mcp2515sim.Frame
	for id := range current {
		if !p.triggered[id] {
			p.logger.Debug("sensor triggered", "sensor", id)
			events = append(events, MakeSensorEvent(id, false, true))
		}
	}
	for id := range p.triggered {
		if !current[id] {
			p.logger.Debug("sensor released", "sensor", id)
			events = append(events, MakeSensorEvent(id, true, false))
		}
	}
	if len(events) > 0 {
		p.injector.QueueRx(events...)
	}
	p.triggered = current
}
