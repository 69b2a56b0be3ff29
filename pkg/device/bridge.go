package device

import (
	"context"
	"log/slog"
	"time"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
	"github.com/marklinsim/mcp2515sim/pkg/cs3"
)

// Bridge runs the CS3 layer directly on a CAN bus, without the SPI
// engine in between. Commands arrive as CAN frames and replies are
// sent back on the same bus, which lets the simulation world face a
// real socketcan interface.
type Bridge struct {
	logger     *slog.Logger
	bus        mcp2515sim.Bus
	dispatcher *cs3.Dispatcher
	poller     *cs3.Poller
	ackDelay   time.Duration
}

func NewBridge(bus mcp2515sim.Bus, controller cs3.Controller, cfg Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SwitchAckDelay <= 0 {
		cfg.SwitchAckDelay = DefaultSwitchAckDelay
	}
	b := &Bridge{
		logger:     logger.With("service", "[BRIDGE]"),
		bus:        bus,
		dispatcher: cs3.NewDispatcher(controller, logger),
		ackDelay:   cfg.SwitchAckDelay,
	}
	b.poller = cs3.NewPoller(controller, b, cfg.PollPeriod, logger)
	return b
}

// Handle dispatches one received frame, implements
// [mcp2515sim.FrameListener]
func (b *Bridge) Handle(frame mcp2515sim.Frame) {
	if err := frame.Validate(); err != nil {
		b.logger.Warn("dropping malformed frame", "err", err)
		return
	}
	// Replies on a shared bus loop back, only commands are dispatched
	if frame.EID&mcp2515sim.ResponseBit != 0 {
		return
	}
	result := b.dispatcher.Dispatch(frame)
	b.send(result.Immediate)
	if len(result.Delayed) > 0 {
		delayed := result.Delayed
		time.AfterFunc(b.ackDelay, func() {
			b.send(delayed)
		})
	}
}

// QueueRx sends poller events out on the bus, implements
// [cs3.FrameInjector]
func (b *Bridge) QueueRx(frames ...mcp2515sim.Frame) {
	b.send(frames)
}

func (b *Bridge) send(frames []mcp2515sim.Frame) {
	for _, frame := range frames {
		if err := b.bus.Send(frame); err != nil {
			b.logger.Warn("error sending frame", "err", err)
		}
	}
}

// Start subscribes to the bus and starts sensor polling
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.bus.Subscribe(b); err != nil {
		return err
	}
	return b.poller.Start(ctx)
}

// Stop background sensor polling, idempotent
func (b *Bridge) Stop() {
	b.poller.Stop()
}

// Wait for background tasks to finish (blocking)
func (b *Bridge) Wait() {
	b.poller.Wait()
}
