// Package mcp2515sim simulates an MCP2515 stand-alone CAN controller
// carrying the Märklin CS3 command protocol, so that an unmodified SPI
// host driver can run against it instead of real silicon.
package mcp2515sim

import (
	"errors"
	"fmt"
)

const (
	// Max standard CAN ID is 0x7FF (11 bits)
	MaxStandardId = 0x7FF

	// Max extended ID part is 18 bits
	MaxExtendedId = 0x3FFFF

	// Max number of data bytes in a frame
	MaxDlc = 8

	// Bit 16 of the extended ID marks a CS3 response frame
	ResponseBit uint32 = 0x10000
)

var ErrFrameBounds = errors.New("frame field out of range")

// A CAN frame as carried between the SPI engine and the CS3 layer.
// ID is the 11-bit standard identifier, EID the 18-bit extended part.
type Frame struct {
	ID   uint16
	EID  uint32
	DLC  uint8
	Data [8]byte
}

// Create a new frame, checking field ranges
func NewFrame(id uint16, eid uint32, data []byte) (Frame, error) {
	frame := Frame{ID: id, EID: eid, DLC: uint8(len(data))}
	copy(frame.Data[:], data)
	if err := frame.Validate(); err != nil {
		return Frame{}, err
	}
	return frame, nil
}

// Check that all fields are within their wire ranges
func (f Frame) Validate() error {
	if f.ID > MaxStandardId {
		return fmt.Errorf("%w : id %#x", ErrFrameBounds, f.ID)
	}
	if f.EID > MaxExtendedId {
		return fmt.Errorf("%w : eid %#x", ErrFrameBounds, f.EID)
	}
	if f.DLC > MaxDlc {
		return fmt.Errorf("%w : dlc %v", ErrFrameBounds, f.DLC)
	}
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("id=%#03x eid=%#05x dlc=%v data=% x", f.ID, f.EID, f.DLC, f.Data[:f.DLC])
}

// Interface for handling a received CAN frame
type FrameListener interface {
	Handle(frame Frame)
}

// A CAN Bus interface
type Bus interface {
	Connect(...any) error                   // Connect to the CAN bus
	Disconnect() error                      // Disconnect from CAN bus
	Send(frame Frame) error                 // Send a frame on the bus
	Subscribe(callback FrameListener) error // Subscribe to all received CAN frames
}
