package mcp2515

import (
	mcp2515sim "github.com/marklinsim/mcp2515sim"
)

// RX injection. Inbound frames wait in a FIFO until RX buffer 0 is
// free, at most one frame is resident in RXB0 at any time. Residency
// is indicated by the RX0IF flag, clearing it hands the buffer back.

// QueueRx appends frames to the RX queue in order and loads the head
// into RXB0 if it is free. Emits at most one interrupt edge.
func (c *Chip) QueueRx(frames ...mcp2515sim.Frame) {
	for _, frame := range frames {
		c.rxQueue.Push(frame)
	}
	c.tryLoadNext()
	c.updateIntLine()
}

// PendingRx returns the number of frames waiting behind RXB0
func (c *Chip) PendingRx() int {
	return c.rxQueue.Len()
}

// Load the queue head into the RXB0 registers if RX0IF is clear
func (c *Chip) tryLoadNext() {
	if c.registers[RegCANINTF]&IntRX0IF != 0 {
		return
	}
	frame, ok := c.rxQueue.Pop()
	if !ok {
		return
	}
	block := frame.MarshalRxBlock()
	copy(c.registers[RegRXB0SIDH:], block[:5+frame.DLC])
	c.registers[RegCANINTF] |= IntRX0IF
	c.logger.Debug("rx frame loaded", "frame", frame)
}

// Recompute the interrupt line and report on change. Intermediate
// transitions within one input byte collapse to the final state.
func (c *Chip) updateIntLine() {
	asserted := c.registers[RegCANINTF]&c.registers[RegCANINTE] != 0
	if asserted == c.intAsserted {
		return
	}
	c.intAsserted = asserted
	c.intLine.IntLineChanged(asserted)
}

// IntAsserted reports the current state of the simulated INT pin
func (c *Chip) IntAsserted() bool {
	return c.intAsserted
}
