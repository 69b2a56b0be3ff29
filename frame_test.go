package mcp2515sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFrameBounds(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		frame, err := NewFrame(0x7FF, 0x3FFFF, []byte{1, 2, 3})
		assert.Nil(t, err)
		assert.Equal(t, uint8(3), frame.DLC)
		assert.Equal(t, [8]byte{1, 2, 3}, frame.Data)
	})
	t.Run("id out of range", func(t *testing.T) {
		_, err := NewFrame(0x800, 0, nil)
		assert.ErrorIs(t, err, ErrFrameBounds)
	})
	t.Run("eid out of range", func(t *testing.T) {
		_, err := NewFrame(0, 0x40000, nil)
		assert.ErrorIs(t, err, ErrFrameBounds)
	})
	t.Run("too much data", func(t *testing.T) {
		_, err := NewFrame(0, 0, make([]byte, 9))
		assert.ErrorIs(t, err, ErrFrameBounds)
	})
}

func TestFrameFromTxHeader(t *testing.T) {
	header := [5]byte{0x00, 0x48, 0x00, 0x00, 0x06}
	frame := FrameFromTxHeader(header, []byte{0, 0, 0, 1, 1, 0xF4})
	assert.Equal(t, uint16(0x02), frame.ID)
	assert.Equal(t, uint32(0), frame.EID)
	assert.Equal(t, uint8(6), frame.DLC)
	assert.Equal(t, [8]byte{0, 0, 0, 1, 1, 0xF4}, frame.Data)

	t.Run("extended id bits", func(t *testing.T) {
		header := [5]byte{0x12, 0xAB, 0xCD, 0xEF, 0x02}
		frame := FrameFromTxHeader(header, []byte{9, 8})
		assert.Equal(t, uint16(0x12)<<3|0x05, frame.ID)
		assert.Equal(t, uint32(0x03)<<16|0xCD<<8|0xEF, frame.EID)
	})
	t.Run("dlc nibble clamped", func(t *testing.T) {
		header := [5]byte{0x00, 0x00, 0x00, 0x00, 0x0F}
		frame := FrameFromTxHeader(header, make([]byte, 8))
		assert.Equal(t, uint8(8), frame.DLC)
	})
}

func TestRxBlockRoundTrip(t *testing.T) {
	frames := []Frame{
		{ID: 0x08, EID: 1<<17 | 0x10000 | 42, DLC: 8, Data: [8]byte{0, 0, 0, 42, 0, 1, 0, 0}},
		{ID: 0x7FF, EID: 0x3FFFF, DLC: 0},
		{ID: 0x02, EID: 0, DLC: 6, Data: [8]byte{0, 0, 0, 1, 1, 0xF4}},
	}
	for _, frame := range frames {
		block := frame.MarshalRxBlock()
		assert.Equal(t, frame, UnmarshalRxBlock(block[:]))
	}
}

func TestExtendedIDRoundTrip(t *testing.T) {
	frame := Frame{ID: 0x0B >> 1, EID: 1 << 17, DLC: 5, Data: [8]byte{0, 0, 0x30, 0, 1}}
	assert.Equal(t, uint32(frame.ID)<<18|frame.EID, frame.ExtendedID())
	assert.Equal(t, frame, FrameFromExtendedID(frame.ExtendedID(), frame.DLC, frame.Data))
}
