// Package mcp2515 implements the SPI-facing half of the simulation :
// a byte-granular protocol engine with a 256-byte register file, TX
// frame reconstruction, RX frame injection and the INT pin.
package mcp2515

import (
	"log/slog"

	mcp2515sim "github.com/marklinsim/mcp2515sim"
	"github.com/marklinsim/mcp2515sim/internal/fifo"
)

// SPI decoder states. Idle is the initial state and is re-entered
// after any terminal byte of a transaction.
type spiState uint8

const (
	stateIdle spiState = iota
	stateWriteAddr
	stateWriteData
	stateTxHeader
	stateTxData
	stateReadAddr
	stateReadData
	stateBitModifyAddr
	stateBitModifyMask
	stateBitModifyData
	stateReadStatusDummy
)

// Listener for edges of the simulated interrupt line. Asserted
// conventionally maps to an active-low physical level, the mapping is
// the consumer's job.
type IntLineListener interface {
	IntLineChanged(asserted bool)
}

type noopIntLine struct{}

func (noopIntLine) IntLineChanged(bool) {}

// Chip is the simulated MCP2515. It is driven one SPI byte at a time
// through Step and fed inbound frames through QueueRx. Chip itself is
// not goroutine safe, callers serialize access.
type Chip struct {
	logger      *slog.Logger
	registers   [256]byte
	state       spiState
	addr        uint8 // current auto-increment address
	bitModAddr  uint8
	bitModMask  uint8
	txHeader    [5]byte
	txData      [8]byte
	txCount     uint8
	txDlc       uint8
	rxQueue     *fifo.Fifo
	intLine     IntLineListener
	intAsserted bool
}

func NewChip(intLine IntLineListener, logger *slog.Logger) *Chip {
	if logger == nil {
		logger = slog.Default()
	}
	if intLine == nil {
		intLine = noopIntLine{}
	}
	return &Chip{
		logger:  logger.With("service", "[MCP2515]"),
		rxQueue: fifo.NewFifo(),
		intLine: intLine,
	}
}

// Step feeds one SPI byte into the chip and returns the full-duplex
// response byte. At most one reconstructed TX frame surfaces per call.
// All side effects of the byte, including at most one interrupt edge,
// are applied before Step returns.
func (c *Chip) Step(tx byte) (byte, *mcp2515sim.Frame) {
	rx, frame := c.process(tx)
	c.updateIntLine()
	return rx, frame
}

func (c *Chip) process(tx byte) (byte, *mcp2515sim.Frame) {
	switch c.state {

	case stateIdle:
		c.dispatchInstruction(tx)
		return 0, nil

	case stateWriteAddr:
		c.addr = tx
		if tx == RegTXB0SIDH {
			c.state = stateTxHeader
			c.txCount = 0
		} else {
			c.state = stateWriteData
		}
		return 0, nil

	case stateWriteData:
		// Chip-select framing is implicit in the stream, an opcode
		// where a data byte was expected starts a new transaction
		if isInstruction(tx) {
			c.state = stateIdle
			return c.process(tx)
		}
		addr := c.addr
		c.addr++
		c.store(addr, tx)
		return 0, nil

	case stateTxHeader:
		c.txHeader[c.txCount] = tx
		c.registers[RegTXB0SIDH+c.txCount] = tx
		c.txCount++
		if c.txCount < 5 {
			return 0, nil
		}
		c.txDlc = c.txHeader[4] & 0x0F
		if c.txDlc > mcp2515sim.MaxDlc {
			c.txDlc = mcp2515sim.MaxDlc
		}
		if c.txDlc == 0 {
			return 0, c.emitTx()
		}
		c.state = stateTxData
		c.txCount = 0
		return 0, nil

	case stateTxData:
		c.txData[c.txCount] = tx
		c.registers[RegTXB0SIDH+5+c.txCount] = tx
		c.txCount++
		if c.txCount == c.txDlc {
			return 0, c.emitTx()
		}
		return 0, nil

	case stateReadAddr:
		c.addr = tx
		c.state = stateReadData
		return 0, nil

	case stateReadData:
		if isInstruction(tx) {
			c.state = stateIdle
			return c.process(tx)
		}
		rx := c.registers[c.addr]
		c.addr++
		return rx, nil

	case stateBitModifyAddr:
		c.bitModAddr = tx
		c.state = stateBitModifyMask
		return 0, nil

	case stateBitModifyMask:
		c.bitModMask = tx
		c.state = stateBitModifyData
		return 0, nil

	case stateBitModifyData:
		old := c.registers[c.bitModAddr]
		c.registers[c.bitModAddr] = (old &^ c.bitModMask) | (tx & c.bitModMask)
		if c.bitModAddr == RegCANINTF {
			c.tryLoadNext()
		}
		c.state = stateIdle
		return 0, nil

	case stateReadStatusDummy:
		c.state = stateIdle
		return c.readStatus(), nil
	}
	return 0, nil
}

func (c *Chip) dispatchInstruction(tx byte) {
	switch tx {
	case InstrWrite:
		c.state = stateWriteAddr
	case InstrRead:
		c.state = stateReadAddr
	case InstrBitModify:
		c.state = stateBitModifyAddr
	case InstrReadStatus:
		c.state = stateReadStatusDummy
	default:
		// Garbage between transactions, matches real chip-select behaviour
		c.logger.Debug("ignoring unknown instruction", "byte", tx)
	}
}

func isInstruction(tx byte) bool {
	switch tx {
	case InstrWrite, InstrRead, InstrBitModify, InstrReadStatus:
		return true
	}
	return false
}

// Store a value written with the WRITE instruction and apply the
// side effects of the target register
func (c *Chip) store(addr uint8, value byte) {
	if addr == RegTXB0CTRL && value&BitTXREQ != 0 {
		// Transmission completes instantaneously
		value &^= BitTXREQ
	}
	c.registers[addr] = value
	if addr == RegCANINTF {
		c.tryLoadNext()
	}
}

// Finish reconstruction of the TX buffer 0 frame
func (c *Chip) emitTx() *mcp2515sim.Frame {
	frame := mcp2515sim.FrameFromTxHeader(c.txHeader, c.txData[:c.txDlc])
	c.registers[RegCANINTF] |= IntTX0IF
	c.state = stateIdle
	c.logger.Debug("tx frame reconstructed", "frame", frame)
	return &frame
}

// Composite status snapshot returned by the READ STATUS instruction
func (c *Chip) readStatus() byte {
	var status byte
	intf := c.registers[RegCANINTF]
	if intf&IntRX0IF != 0 {
		status |= 1 << 0
	}
	if intf&IntRX1IF != 0 {
		status |= 1 << 1
	}
	if c.registers[RegTXB0CTRL]&BitTXREQ != 0 {
		status |= 1 << 2
	}
	if intf&IntTX0IF != 0 {
		status |= 1 << 3
	}
	if c.registers[RegTXB1CTRL]&BitTXREQ != 0 {
		status |= 1 << 4
	}
	if intf&IntTX1IF != 0 {
		status |= 1 << 5
	}
	if c.registers[RegTXB2CTRL]&BitTXREQ != 0 {
		status |= 1 << 6
	}
	if intf&IntTX2IF != 0 {
		status |= 1 << 7
	}
	return status
}

// Register returns the current value at addr, mainly for inspection
func (c *Chip) Register(addr uint8) byte {
	return c.registers[addr]
}
