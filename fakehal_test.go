package spiflash

// fakeHAL is an in-memory SPI NOR chip for exercising the engine without
// real hardware: a backing byte array plus a status register that can be
// scripted to report busy for a fixed number of polls. It records every
// CS edge, wait, and transmitted frame so tests can assert wire traces.
//
// The chip decodes commands the way real silicon does: bytes accumulate
// while CS is asserted and form one frame. Write-style commands (write
// enable, page program, erase, write SR, register writes) take effect when
// CS deasserts; read-style commands execute as soon as the engine asks for
// response bytes. This matters for page program, where the opcode+address
// call and the data call arrive as separate transactions under one CS
// cycle — only the assembled frame is meaningful.
type fakeHAL struct {
	cmd *CommandTable
	cfg *ChipConfig

	mem []byte
	sr  byte
	reg byte

	// busyPolls is how many more ReadSR responses should report busy
	// before the chip reports ready.
	busyPolls int

	eraseSize map[uint8]uint32

	frame []byte

	csLog   []bool
	waitLog []uint32
	txLog   [][]byte
	txCount int
}

func newFakeHAL(cmd *CommandTable, cfg *ChipConfig, memSize uint32) *fakeHAL {
	h := &fakeHAL{
		cmd: cmd,
		cfg: cfg,
		mem: make([]byte, memSize),
	}
	h.eraseSize = map[uint8]uint32{}
	if cmd.BlockErase4 != 0 {
		h.eraseSize[cmd.BlockErase4] = 4 * 1024
	}
	if cmd.BlockErase8 != 0 {
		h.eraseSize[cmd.BlockErase8] = 8 * 1024
	}
	if cmd.BlockErase16 != 0 {
		h.eraseSize[cmd.BlockErase16] = 16 * 1024
	}
	if cmd.BlockErase32 != 0 {
		h.eraseSize[cmd.BlockErase32] = 32 * 1024
	}
	if cmd.BlockErase64 != 0 {
		h.eraseSize[cmd.BlockErase64] = 64 * 1024
	}
	for i := range h.mem {
		h.mem[i] = 0xff
	}
	return h
}

func (h *fakeHAL) CS(d *Driver, asserted bool) {
	h.csLog = append(h.csLog, asserted)
	if asserted {
		h.frame = h.frame[:0]
		return
	}
	if len(h.frame) > 0 {
		h.execFrame(h.frame, nil)
		h.frame = h.frame[:0]
	}
}

func (h *fakeHAL) Wait(d *Driver, ms uint32) {
	h.waitLog = append(h.waitLog, ms)
}

func (h *fakeHAL) SPITxRx(d *Driver, tx, rx []byte) error {
	h.txCount++
	h.txLog = append(h.txLog, append([]byte(nil), tx...))
	h.frame = append(h.frame, tx...)
	if len(rx) > 0 {
		err := h.execFrame(h.frame, rx)
		h.frame = h.frame[:0]
		return err
	}
	return nil
}

func decodeAddr(cfg *ChipConfig, b []byte) uint32 {
	var addr uint32
	for i := uint8(0); i < cfg.AddrSize; i++ {
		var shift uint8
		if cfg.AddrEndian == BigEndian {
			shift = 8 * (cfg.AddrSize - 1 - i)
		} else {
			shift = 8 * i
		}
		addr |= uint32(b[i]) << shift
	}
	return addr
}

func (h *fakeHAL) execFrame(frame, rx []byte) error {
	if len(frame) == 0 {
		return nil
	}
	opcode := frame[0]
	addrSz := int(h.cfg.AddrSize)

	switch {
	case opcode == h.cmd.WriteEnable && len(frame) == 1:
		return nil

	case opcode == h.cmd.ReadSR && len(frame) == 1 && len(rx) == 1:
		if h.busyPolls > 0 {
			h.busyPolls--
			rx[0] = h.sr | h.cmd.SRBusyBit
		} else {
			rx[0] = h.sr
		}
		return nil

	case opcode == h.cmd.JedecID && len(frame) == 1:
		copy(rx, []byte{0xef, 0x40, 0x18})
		return nil

	case opcode == h.cmd.DeviceID && len(frame) == 1:
		copy(rx, []byte{0xef, 0x15, 0x00})
		return nil

	case opcode == h.cmd.WriteSR && len(frame) == 2:
		h.sr = frame[1]
		return nil

	case opcode == h.cmd.PageProgram:
		addr := decodeAddr(h.cfg, frame[1:1+addrSz])
		copy(h.mem[addr:], frame[1+addrSz:])
		return nil

	case opcode == h.cmd.ReadData || opcode == h.cmd.ReadDataFast:
		addr := decodeAddr(h.cfg, frame[1:1+addrSz])
		copy(rx, h.mem[addr:addr+uint32(len(rx))])
		return nil

	case opcode == h.cmd.ChipErase && len(frame) == 1:
		for i := range h.mem {
			h.mem[i] = 0xff
		}
		return nil
	}

	if size, ok := h.eraseSize[opcode]; ok {
		addr := decodeAddr(h.cfg, frame[1:1+addrSz])
		for i := uint32(0); i < size; i++ {
			h.mem[addr+i] = 0xff
		}
		return nil
	}

	// Arbitrary hardware-specific register: one opcode byte addresses it,
	// a second data byte (if present) writes it.
	if len(frame) == 2 {
		h.reg = frame[1]
		return nil
	}
	if len(rx) == 1 {
		rx[0] = h.reg
	}
	return nil
}
