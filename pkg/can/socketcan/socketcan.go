// Wrapper for socketcan (the implementation used is brutella/can),
// letting the bridge face a real CAN interface.
package socketcan

import (
	"log/slog"

	"github.com/brutella/can"
	mcp2515sim "github.com/marklinsim/mcp2515sim"
	pkgcan "github.com/marklinsim/mcp2515sim/pkg/can"
	"golang.org/x/sys/unix"
)

func init() {
	pkgcan.RegisterBackend("socketcan", NewSocketcanBus)
}

type Bus struct {
	logger   *slog.Logger
	bus      *can.Bus
	listener mcp2515sim.FrameListener
}

func NewSocketcanBus(channel string) (mcp2515sim.Bus, error) {
	bus, err := can.NewBusForInterfaceWithName(channel)
	if err != nil {
		return nil, err
	}
	return &Bus{logger: slog.Default(), bus: bus}, nil
}

// "Connect" implementation of Bus interface
func (b *Bus) Connect(...any) error {
	go func() {
		if err := b.bus.ConnectAndPublish(); err != nil {
			b.logger.Error("socketcan receive loop has closed", "err", err)
		}
	}()
	return nil
}

// "Disconnect" implementation of Bus interface
func (b *Bus) Disconnect() error {
	return b.bus.Disconnect()
}

// "Send" implementation of Bus interface. Frames go out with the
// 29-bit extended identifier.
func (b *Bus) Send(frame mcp2515sim.Frame) error {
	out := can.Frame{
		ID:     frame.ExtendedID() | unix.CAN_EFF_FLAG,
		Length: frame.DLC,
		Data:   frame.Data,
	}
	return b.bus.Publish(out)
}

// "Subscribe" implementation of Bus interface
func (b *Bus) Subscribe(listener mcp2515sim.FrameListener) error {
	b.listener = listener
	b.bus.Subscribe(b)
	return nil
}

// brutella/can specific "Handle" implementation
func (b *Bus) Handle(frame can.Frame) {
	if b.listener == nil {
		return
	}
	dlc := frame.Length
	if dlc > mcp2515sim.MaxDlc {
		dlc = mcp2515sim.MaxDlc
	}
	b.listener.Handle(mcp2515sim.FrameFromExtendedID(frame.ID&unix.CAN_EFF_MASK, dlc, frame.Data))
}
