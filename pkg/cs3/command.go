// Package cs3 implements the Märklin CS3 command dialect riding on
// CAN : command extraction from the identifier bits, acknowledgement
// frames, the train/switch/system commands and sensor events.
package cs3

import (
	"encoding/binary"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
)

// A CS3 command, carried in bits 24..17 of the 29-bit CAN identifier
type Command uint8

const (
	CommandSystem    Command = 0x00
	CommandSpeed     Command = 0x04
	CommandDirection Command = 0x05
	CommandLight     Command = 0x06
	CommandSwitch    Command = 0x0B
	CommandSensor    Command = 0x11
)

var CommandDescription = map[Command]string{
	CommandSystem:    "SYSTEM",
	CommandSpeed:     "SPEED",
	CommandDirection: "DIRECTION",
	CommandLight:     "LIGHT",
	CommandSwitch:    "SWITCH",
	CommandSensor:    "SENSOR",
}

// SYSTEM sub-commands, carried in data[4]
const (
	SystemStop uint8 = 0
	SystemGo   uint8 = 1
	SystemHalt uint8 = 2
)

// Switch identifiers are transmitted with this offset on the wire
const switchIdBase uint32 = 0x3000

// Number of speed steps understood by the simulation
const MaxSimSpeed uint8 = 14

// Full scale of the CS3 speed field
const maxCS3Speed = 1000

// DecodeCommand extracts the command from a frame's identifier bits :
// the low 7 bits of the standard id and the top bit of the extended id
func DecodeCommand(frame mcp2515sim.Frame) Command {
	return Command(byte(frame.ID<<1)&0xFE | byte(frame.EID>>17)&0x01)
}

// MakeAck builds the acknowledgement for a frame : an identical copy
// with the response bit set. DLC and data are preserved.
func MakeAck(frame mcp2515sim.Frame) mcp2515sim.Frame {
	frame.EID |= mcp2515sim.ResponseBit
	return frame
}

// MakeSensorEvent builds the unsolicited frame reporting a sensor
// transition from old to new. The identifier reconstitutes the sensor
// command with the response bit set, the payload carries the full
// sensor id big-endian plus both states.
func MakeSensorEvent(sensorId uint32, old bool, new bool) mcp2515sim.Frame {
	frame := mcp2515sim.Frame{
		ID:  0x08,
		EID: 1<<17 | (sensorId & 0xFFFF) | mcp2515sim.ResponseBit,
		DLC: 8,
	}
	binary.BigEndian.PutUint32(frame.Data[0:4], sensorId)
	if old {
		frame.Data[4] = 1
	}
	if new {
		frame.Data[5] = 1
	}
	return frame
}

// SimSpeed maps a CS3 speed (0..1000) to a simulation speed step
// (0..14), rounding to nearest and clamping out-of-range input
func SimSpeed(cs3Speed int) uint8 {
	if cs3Speed <= 0 {
		return 0
	}
	if cs3Speed >= maxCS3Speed {
		return MaxSimSpeed
	}
	return uint8((cs3Speed*int(MaxSimSpeed) + maxCS3Speed/2) / maxCS3Speed)
}

// DecodeSwitchId maps a wire-encoded switch identifier to the
// 1-based identifier used by the simulation
func DecodeSwitchId(encoded uint32) uint32 {
	return encoded - switchIdBase + 1
}
