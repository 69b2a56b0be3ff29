// Package device assembles the SPI protocol engine, the CS3 command
// dispatcher and the sensor poller into a single simulated device.
package device

import (
	"context"
	"log/slog"
	"sync"
	"time"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
	"github.com/marklinsim/mcp2515sim/pkg/cs3"
	"github.com/marklinsim/mcp2515sim/pkg/mcp2515"
)

// Default delay before the second acknowledgement of a switch command
const DefaultSwitchAckDelay = 20 * time.Millisecond

type Config struct {
	PollPeriod     time.Duration // sensor sampling period
	SwitchAckDelay time.Duration // delay of the second switch acknowledgement
}

// Device is the complete simulated chip. The SPI byte path, the RX
// injection path and the poll tick are mutually exclusive, one mutex
// serializes them so that all side effects of a byte are observed
// atomically.
type Device struct {
	logger     *slog.Logger
	mu         sync.Mutex
	chip       *mcp2515.Chip
	dispatcher *cs3.Dispatcher
	poller     *cs3.Poller
	ackDelay   time.Duration
}

func New(controller cs3.Controller, intLine mcp2515.IntLineListener, cfg Config, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SwitchAckDelay <= 0 {
		cfg.SwitchAckDelay = DefaultSwitchAckDelay
	}
	d := &Device{
		logger:     logger.With("service", "[DEVICE]"),
		chip:       mcp2515.NewChip(intLine, logger),
		dispatcher: cs3.NewDispatcher(controller, logger),
		ackDelay:   cfg.SwitchAckDelay,
	}
	d.poller = cs3.NewPoller(controller, d, cfg.PollPeriod, logger)
	return d
}

// Step feeds one SPI byte to the chip and returns the response byte.
// A frame reconstructed from the byte is dispatched as a CS3 command
// and the replies are queued back through the RX path.
func (d *Device) Step(tx byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	rx, frame := d.chip.Step(tx)
	if frame == nil {
		return rx
	}
	if err := frame.Validate(); err != nil {
		d.logger.Warn("dropping malformed frame", "err", err)
		return rx
	}
	result := d.dispatcher.Dispatch(*frame)
	if len(result.Immediate) > 0 {
		d.chip.QueueRx(result.Immediate...)
	}
	if len(result.Delayed) > 0 {
		delayed := result.Delayed
		time.AfterFunc(d.ackDelay, func() {
			d.QueueRx(delayed...)
		})
	}
	return rx
}

// QueueRx injects inbound frames, implements [cs3.FrameInjector].
// Malformed frames are dropped.
func (d *Device) QueueRx(frames ...mcp2515sim.Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, frame := range frames {
		if err := frame.Validate(); err != nil {
			d.logger.Warn("dropping malformed frame", "err", err)
			continue
		}
		d.chip.QueueRx(frame)
	}
}

// Register reads one register of the underlying chip
func (d *Device) Register(addr uint8) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chip.Register(addr)
}

// IntAsserted reports the current state of the simulated INT pin
func (d *Device) IntAsserted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chip.IntAsserted()
}

// Start background sensor polling.
// Call Stop() to stop polling or cancel the context.
func (d *Device) Start(ctx context.Context) error {
	return d.poller.Start(ctx)
}

// Stop background sensor polling, idempotent
func (d *Device) Stop() {
	d.poller.Stop()
}

// Wait for background tasks to finish (blocking)
func (d *Device) Wait() {
	d.poller.Wait()
}
