package cs3

import (
	"testing"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
	"github.com/stretchr/testify/assert"
)

// Build a frame whose identifier bits encode the given command
func commandFrame(command Command, data ...byte) mcp2515sim.Frame {
	frame := mcp2515sim.Frame{
		ID:  uint16(command) >> 1,
		EID: uint32(command&0x01) << 17,
		DLC: uint8(len(data)),
	}
	copy(frame.Data[:], data)
	return frame
}

func TestDecodeCommand(t *testing.T) {
	for command := range CommandDescription {
		assert.Equal(t, command, DecodeCommand(commandFrame(command)))
	}
}

func TestAckPreservesCommand(t *testing.T) {
	frames := []mcp2515sim.Frame{
		commandFrame(CommandSpeed, 0, 0, 0, 1, 1, 0xF4),
		commandFrame(CommandSwitch, 0, 0, 0x30, 0, 1),
		commandFrame(CommandSystem, 0, 0, 0, 0, SystemGo),
	}
	for _, frame := range frames {
		ack := MakeAck(frame)
		assert.Equal(t, DecodeCommand(frame), DecodeCommand(ack))
		assert.NotZero(t, ack.EID&mcp2515sim.ResponseBit)
		assert.Equal(t, frame.DLC, ack.DLC)
		assert.Equal(t, frame.Data, ack.Data)
	}
}

func TestMakeSensorEvent(t *testing.T) {
	frame := MakeSensorEvent(42, false, true)
	assert.Equal(t, CommandSensor, DecodeCommand(frame))
	assert.Equal(t, uint16(0x08), frame.ID)
	assert.NotZero(t, frame.EID&mcp2515sim.ResponseBit)
	assert.Equal(t, uint8(8), frame.DLC)
	assert.Equal(t, [8]byte{0, 0, 0, 42, 0, 1, 0, 0}, frame.Data)

	t.Run("sensor id round trips", func(t *testing.T) {
		frame := MakeSensorEvent(0xDEADBEEF, true, false)
		assert.Equal(t, [8]byte{0xDE, 0xAD, 0xBE, 0xEF, 1, 0, 0, 0}, frame.Data)
		assert.Nil(t, frame.Validate())
	})
}

func TestSimSpeed(t *testing.T) {
	assert.Equal(t, uint8(0), SimSpeed(0))
	assert.Equal(t, uint8(7), SimSpeed(500))
	assert.Equal(t, uint8(14), SimSpeed(1000))
	assert.Equal(t, uint8(14), SimSpeed(1001))
	assert.Equal(t, uint8(0), SimSpeed(-5))
	assert.Equal(t, uint8(0), SimSpeed(1))
	assert.Equal(t, uint8(1), SimSpeed(36))
}

func TestDecodeSwitchId(t *testing.T) {
	assert.Equal(t, uint32(1), DecodeSwitchId(0x3000))
	assert.Equal(t, uint32(10), DecodeSwitchId(0x3009))
}
