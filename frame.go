package mcp2515sim

// Wire layouts for the MCP2515 TX and RX buffer register blocks.
// A buffer block is 5 header bytes (SIDH, SIDL, EID8, EID0, DLC)
// followed by up to 8 data bytes.

// Length of a full buffer block
const BufferBlockSize = 13

// Decode a frame from a 5-byte TX buffer header and its data bytes.
// The SIDL extended-id-enable bit (0x08) is not re-exposed and must
// not be assumed set by callers.
func FrameFromTxHeader(header [5]byte, data []byte) Frame {
	dlc := header[4] & 0x0F
	if dlc > MaxDlc {
		dlc = MaxDlc
	}
	frame := Frame{
		ID:  uint16(header[0])<<3 | uint16(header[1]>>5)&0x07,
		EID: uint32(header[1]&0x03)<<16 | uint32(header[2])<<8 | uint32(header[3]),
		DLC: dlc,
	}
	copy(frame.Data[:], data[:dlc])
	return frame
}

// Encode the frame as an RX buffer block (RXB0SIDH onwards)
func (f Frame) MarshalRxBlock() [BufferBlockSize]byte {
	var block [BufferBlockSize]byte
	block[0] = byte(f.ID >> 3)
	block[1] = byte(f.ID&0x07)<<5 | 0x08 | byte(f.EID>>16)&0x03
	block[2] = byte(f.EID >> 8)
	block[3] = byte(f.EID)
	block[4] = f.DLC
	copy(block[5:], f.Data[:f.DLC])
	return block
}

// Decode a frame from an RX buffer block, the inverse of MarshalRxBlock
func UnmarshalRxBlock(block []byte) Frame {
	var header [5]byte
	copy(header[:], block[:5])
	return FrameFromTxHeader(header, block[5:])
}

// The full 29-bit extended CAN identifier, standard part in the top 11 bits
func (f Frame) ExtendedID() uint32 {
	return uint32(f.ID)<<18 | f.EID
}

// Build a frame from a 29-bit extended CAN identifier
func FrameFromExtendedID(canId uint32, dlc uint8, data [8]byte) Frame {
	return Frame{
		ID:   uint16(canId>>18) & MaxStandardId,
		EID:  canId & MaxExtendedId,
		DLC:  dlc & 0x0F,
		Data: data,
	}
}
