package cs3

import (
	"encoding/binary"
	"log/slog"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
)

// Direction of a track switch
type SwitchDirection uint8

const (
	SwitchStraight SwitchDirection = iota
	SwitchCurve
)

func (d SwitchDirection) String() string {
	if d == SwitchStraight {
		return "STRAIGHT"
	}
	return "CURVE"
}

// Controller is the narrow surface of the downstream simulation world
// consumed by the CS3 layer. All operations are fire-and-forget.
type Controller interface {
	Stop()
	Go()
	Halt()
	SetTrainSpeed(trainId uint32, speed uint8, light bool)
	ReverseTrain(trainId uint32)
	SetSwitch(switchId uint32, dir SwitchDirection)
	Trains() []Train
}

// Train is a handle onto one train of the simulation world
type Train interface {
	TriggeredSensors() []uint32
}

// Result of dispatching one command frame. Immediate frames are
// emitted right away, delayed frames after a consumer-chosen delay.
// Only switch commands produce a delayed frame, a second identical
// acknowledgement.
type Result struct {
	Immediate []mcp2515sim.Frame
	Delayed   []mcp2515sim.Frame
}

// Dispatcher interprets decoded CAN frames as CS3 commands and drives
// the controller. It remembers the last commanded light flag per train
// because CS3 transmits light independently of speed while the
// controller is set in one call.
type Dispatcher struct {
	logger     *slog.Logger
	controller Controller
	lights     map[uint32]bool
}

func NewDispatcher(controller Controller, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:     logger.With("service", "[CS3]"),
		controller: controller,
		lights:     map[uint32]bool{},
	}
}

// Dispatch interprets one frame and returns the frames to feed back.
// Every command is acknowledged, including unknown ones. Controller
// calls never fail from the dispatcher's point of view.
func (d *Dispatcher) Dispatch(frame mcp2515sim.Frame) Result {
	command := DecodeCommand(frame)
	result := Result{Immediate: []mcp2515sim.Frame{MakeAck(frame)}}

	switch command {

	case CommandSystem:
		if frame.DLC < 5 {
			d.logger.Warn("short system frame", "frame", frame)
			return result
		}
		switch sub := frame.Data[4]; sub {
		case SystemStop:
			d.logger.Info("system stop")
			d.controller.Stop()
		case SystemGo:
			d.logger.Info("system go")
			d.controller.Go()
		case SystemHalt:
			d.logger.Info("system halt")
			d.controller.Halt()
		default:
			d.logger.Warn("unknown system sub-command", "sub", sub)
		}

	case CommandSpeed:
		if frame.DLC < 4 {
			d.logger.Warn("short speed frame", "frame", frame)
			return result
		}
		trainId := binary.BigEndian.Uint32(frame.Data[0:4])
		if frame.DLC < 6 {
			// Speed query, the acknowledgement is the whole answer
			d.logger.Debug("speed query", "train", trainId)
			return result
		}
		cs3Speed := binary.BigEndian.Uint16(frame.Data[4:6])
		speed := SimSpeed(int(cs3Speed))
		light := d.lights[trainId]
		d.logger.Info("set speed", "train", trainId, "cs3", cs3Speed, "speed", speed, "light", light)
		d.controller.SetTrainSpeed(trainId, speed, light)

	case CommandDirection:
		if frame.DLC < 4 {
			d.logger.Warn("short direction frame", "frame", frame)
			return result
		}
		trainId := binary.BigEndian.Uint32(frame.Data[0:4])
		d.logger.Info("reverse", "train", trainId)
		d.controller.ReverseTrain(trainId)

	case CommandLight:
		if frame.DLC < 6 {
			d.logger.Warn("short light frame", "frame", frame)
			return result
		}
		trainId := binary.BigEndian.Uint32(frame.Data[0:4])
		on := frame.Data[5] != 0
		// Takes effect on the next speed command for this train
		d.lights[trainId] = on
		d.logger.Info("light", "train", trainId, "on", on)

	case CommandSwitch:
		if frame.DLC < 5 {
			d.logger.Warn("short switch frame", "frame", frame)
			return result
		}
		switchId := DecodeSwitchId(binary.BigEndian.Uint32(frame.Data[0:4]))
		dir := SwitchCurve
		if frame.Data[4] == 1 {
			dir = SwitchStraight
		}
		d.logger.Info("set switch", "switch", switchId, "dir", dir)
		d.controller.SetSwitch(switchId, dir)
		// Switch commands are acknowledged twice
		result.Delayed = []mcp2515sim.Frame{MakeAck(frame)}

	default:
		d.logger.Warn("unknown command", "command", uint8(command), "frame", frame)
	}
	return result
}
