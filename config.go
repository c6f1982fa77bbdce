package spiflash

// Endianness selects how multi-byte addresses are serialized onto the wire.
type Endianness uint8

const (
	// LittleEndian emits the low address byte first (0x01020304 -> 04 03 02).
	LittleEndian Endianness = iota
	// BigEndian emits the high address byte first (0x01020304 -> 02 03 04
	// with a 3-byte address; bytes above the address width are dropped).
	// This is the conventional wire order for SPI NOR flash.
	BigEndian
)

// CommandTable holds the opcodes for a given chip, found in its datasheet.
// A zero opcode means "not supported"; the engine substitutes behavior
// where it can (fast-read falls back to plain read; erase sizes with no
// opcode are simply never selected by the planner).
type CommandTable struct {
	WriteDisable uint8
	WriteEnable  uint8

	PageProgram   uint8
	ReadData      uint8
	ReadDataFast  uint8
	WriteSR       uint8
	ReadSR        uint8
	BlockErase4   uint8
	BlockErase8   uint8
	BlockErase16  uint8
	BlockErase32  uint8
	BlockErase64  uint8
	ChipErase     uint8
	DeviceID      uint8
	JedecID       uint8

	// SRBusyBit identifies the busy bit in the status register, typically 0x01.
	SRBusyBit uint8
}

// StandardCommandTable returns the conventional Winbond/SPI-NOR opcode set.
func StandardCommandTable() CommandTable {
	return CommandTable{
		WriteDisable: 0x04,
		WriteEnable:  0x06,
		PageProgram:  0x02,
		ReadData:     0x03,
		ReadDataFast: 0x0b,
		WriteSR:      0x01,
		ReadSR:       0x05,
		BlockErase4:  0x20,
		BlockErase32: 0x52,
		BlockErase64: 0xd8,
		ChipErase:    0xc7,
		DeviceID:     0x90,
		JedecID:      0x9f,
		SRBusyBit:    0x01,
	}
}

// ChipConfig describes flash geometry and nominal operation timings, as
// found in the chip's datasheet. If a busy/ready GPIO is wired separately,
// the *Ms fields may all be left zero; the engine then skips the busy wait
// entirely, with neither a wait nor a status-register poll.
type ChipConfig struct {
	// Size is the total flash size in bytes.
	Size uint32
	// PageSize is the page-program granularity in bytes (typically 256).
	PageSize uint32
	// AddrSize is the address width in bytes (2, 3, or 4).
	AddrSize uint8
	// AddrDummySize is extra dummy bytes appended after the address on
	// read/fast-read/write/erase-block commands (usually 0).
	AddrDummySize uint8
	// AddrEndian selects the address byte order. BigEndian is the norm.
	AddrEndian Endianness

	SRWriteMs      uint32
	PageProgramMs  uint32
	BlockErase4Ms  uint32
	BlockErase8Ms  uint32
	BlockErase16Ms uint32
	BlockErase32Ms uint32
	BlockErase64Ms uint32
	ChipEraseMs    uint32
}
