package mcp2515

// Register map addresses used by the simulation.
// The register file is a full 256-byte space, everything not listed
// here behaves as plain memory.
const (
	RegCANINTE  uint8 = 0x2B // Interrupt enable
	RegCANINTF  uint8 = 0x2C // Interrupt flags
	RegTXB0CTRL uint8 = 0x30 // TX buffer 0 control
	RegTXB0SIDH uint8 = 0x31 // TX buffer 0, start of 5-byte header + 8 data
	RegTXB1CTRL uint8 = 0x40 // TX buffer 1 control
	RegTXB2CTRL uint8 = 0x50 // TX buffer 2 control
	RegRXB0SIDH uint8 = 0x61 // RX buffer 0, start of 5-byte header + 8 data
)

// CANINTF / CANINTE flag bits, identical layout in both registers
const (
	IntRX0IF uint8 = 0x01
	IntRX1IF uint8 = 0x02
	IntTX0IF uint8 = 0x04
	IntTX1IF uint8 = 0x08
	IntTX2IF uint8 = 0x10
)

// TXBnCTRL bit 3, message transmit request
const BitTXREQ uint8 = 0x08

// SPI instruction opcodes
const (
	InstrWrite      byte = 0x02
	InstrRead       byte = 0x03
	InstrBitModify  byte = 0x05
	InstrReadStatus byte = 0xA0
)
