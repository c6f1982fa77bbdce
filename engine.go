package spiflash

// begin executes the "begin" action for the current step: assert CS where
// needed, assemble the scratch frame, and issue one transport transaction.
// Both the sync loop and the async entry point call it identically.
func (d *Driver) begin() error {
	r := &d.req

	if r.op == OpIdle {
		return ErrBadState
	}

	if r.busyPreCheck {
		d.hal.CS(d, true)
		return d.hal.SPITxRx(d, []byte{d.cmdTbl.ReadSR}, r.srBuf[:])
	}

	switch r.op {
	case opWriteWREN, opEraseBlockWREN, opEraseChipWREN, opWriteSRWREN, opWriteRegWREN:
		d.hal.CS(d, true)
		return d.hal.SPITxRx(d, []byte{d.cmdTbl.WriteEnable}, nil)

	case opWriteAddr:
		d.hal.CS(d, true)
		n := d.composeCmdAddr(d.cmdTbl.PageProgram, r.addr)
		return d.hal.SPITxRx(d, d.scratch[:n], nil)

	case opWriteData:
		chunk := pageChunk(d.cfg, r.addr, r.length)
		wr := r.writeBuf[:chunk]
		r.writeBuf = r.writeBuf[chunk:]
		r.length -= chunk
		r.addr += chunk
		r.waitPeriodMs = d.cfg.PageProgramMs
		r.busyCheckWait = bcwWait
		return d.hal.SPITxRx(d, wr, nil)

	case opEraseBlockEras:
		size := largestErase(d.cmdTbl, r.addr, r.length)
		op := eraseOpcode(d.cmdTbl, size)
		if op == 0 {
			return ErrBadConfig
		}
		d.hal.CS(d, true)
		n := d.composeCmdAddr(op, r.addr)
		r.addr += size
		r.length -= size
		r.waitPeriodMs = eraseTimeMs(d.cfg, size)
		r.busyCheckWait = bcwWait
		return d.hal.SPITxRx(d, d.scratch[:n], nil)

	case opEraseChipEras:
		d.hal.CS(d, true)
		d.scratch[0] = d.cmdTbl.ChipErase
		r.waitPeriodMs = d.cfg.ChipEraseMs
		r.busyCheckWait = bcwWait
		return d.hal.SPITxRx(d, d.scratch[:1], nil)

	case opWriteSRData:
		d.scratch[0] = d.cmdTbl.WriteSR
		d.scratch[1] = r.srWrite
		d.hal.CS(d, true)
		r.waitPeriodMs = d.cfg.SRWriteMs
		r.busyCheckWait = bcwWait
		return d.hal.SPITxRx(d, d.scratch[:2], nil)

	case OpRead:
		d.hal.CS(d, true)
		n := d.composeCmdAddr(d.cmdTbl.ReadData, r.addr)
		return d.hal.SPITxRx(d, d.scratch[:n], r.readBuf)

	case OpFastRead:
		d.hal.CS(d, true)
		n := d.composeFastReadCmdAddr(r.addr)
		return d.hal.SPITxRx(d, d.scratch[:n], r.readBuf)

	case OpReadJEDEC:
		d.hal.CS(d, true)
		return d.hal.SPITxRx(d, []byte{d.cmdTbl.JedecID}, r.idBuf[:])

	case OpReadProduct:
		d.hal.CS(d, true)
		return d.hal.SPITxRx(d, []byte{d.cmdTbl.DeviceID}, r.idBuf[:])

	case OpReadSR, OpReadSRBusy:
		d.hal.CS(d, true)
		return d.hal.SPITxRx(d, []byte{d.cmdTbl.ReadSR}, r.srBuf[:])

	case OpReadReg:
		d.hal.CS(d, true)
		return d.hal.SPITxRx(d, []byte{r.regNbr}, r.regBuf[:])

	case opWriteRegDataWait, opWriteRegData:
		d.hal.CS(d, true)
		if r.op == opWriteRegData {
			r.busyCheckWait = bcwIdle
		} else {
			r.busyCheckWait = bcwWait
		}
		return d.hal.SPITxRx(d, d.scratch[:2], nil)

	default:
		return ErrInternal
	}
}

// composeCmdAddr writes opcode, the configured address frame, and any
// configured address dummy bytes into the scratch buffer, returning the
// total frame length.
func (d *Driver) composeCmdAddr(opcode uint8, addr uint32) int {
	d.scratch[0] = opcode
	composeAddress(d.cfg, addr, d.scratch[1:])
	n := 1 + int(d.cfg.AddrSize) + int(d.cfg.AddrDummySize)
	for i := 1 + int(d.cfg.AddrSize); i < n; i++ {
		d.scratch[i] = 0
	}
	return n
}

// composeFastReadCmdAddr is composeCmdAddr plus the one mandatory extra
// dummy byte fast-read always inserts between the address and the data
// phase, on top of any configured address dummies.
func (d *Driver) composeFastReadCmdAddr(addr uint32) int {
	d.scratch[0] = d.cmdTbl.ReadDataFast
	composeAddress(d.cfg, addr, d.scratch[1:])
	dummyStart := 1 + int(d.cfg.AddrSize)
	d.scratch[dummyStart] = 0 // mandatory fast-read dummy
	n := dummyStart + 1 + int(d.cfg.AddrDummySize)
	for i := dummyStart + 1; i < n; i++ {
		d.scratch[i] = 0
	}
	return n
}

// end executes the "end" action for the step that was just carried out by
// the transport: deassert CS where appropriate, consume the result, and
// decide the next step.
func (d *Driver) end(transportErr error) error {
	r := &d.req

	if transportErr != nil {
		d.finalize()
		return transportErr
	}

	if r.busyPreCheck {
		d.hal.CS(d, false)
		if d.isHWBusy(r.srBuf[0]) {
			d.finalize()
			return ErrHwBusy
		}
		r.busyPreCheck = false
		return d.begin()
	}

	if r.op == OpIdle {
		return ErrBadState
	}

	switch r.busyCheckWait {
	case bcwWait:
		d.hal.CS(d, false)
		if r.waitPeriodMs == 0 {
			r.busyCheckWait = bcwIdle
		} else {
			r.busyCheckWait = bcwReadSR
		}
		d.hal.Wait(d, r.waitPeriodMs)
		return nil
	case bcwReadSR:
		r.busyCheckWait = bcwCheck
		d.hal.CS(d, true)
		return d.hal.SPITxRx(d, []byte{d.cmdTbl.ReadSR}, r.srBuf[:])
	case bcwCheck:
		d.hal.CS(d, false)
		if d.isHWBusy(r.srBuf[0]) {
			r.waitPeriodMs = decrWait(r.waitPeriodMs)
			r.busyCheckWait = bcwReadSR
			d.hal.Wait(d, r.waitPeriodMs)
			return nil
		}
		r.busyCheckWait = bcwIdle
	case bcwIdle:
		// nothing to do
	}

	switch r.op {
	case opWriteWREN:
		d.hal.CS(d, false)
		r.op = opWriteAddr
	case opWriteAddr:
		r.op = opWriteData
	case opWriteData:
		if r.length == 0 {
			r.op = OpIdle
		} else {
			r.op = opWriteWREN
		}

	case opEraseBlockWREN:
		d.hal.CS(d, false)
		r.op = opEraseBlockEras
	case opEraseBlockEras:
		if r.length == 0 {
			r.op = OpIdle
		} else {
			r.op = opEraseBlockWREN
		}

	case opWriteSRWREN:
		d.hal.CS(d, false)
		r.op = opWriteSRData
	case opWriteSRData:
		r.op = OpIdle

	case opEraseChipWREN:
		d.hal.CS(d, false)
		r.op = opEraseChipEras
	case opEraseChipEras:
		r.op = OpIdle

	case OpRead, OpFastRead:
		r.op = OpIdle

	case OpReadReg:
		if r.regDst != nil {
			*r.regDst = r.regBuf[0]
		}
		r.op = OpIdle

	case OpReadJEDEC:
		if r.idDst != nil {
			*r.idDst = idFromBuf(r.idBuf)
		}
		r.op = OpIdle

	case OpReadProduct:
		if r.idDst != nil {
			*r.idDst = idFromBuf(r.idBuf)
		}
		r.op = OpIdle

	case OpReadSR:
		if r.srDst != nil {
			*r.srDst = r.srBuf[0]
		}
		r.op = OpIdle

	case OpReadSRBusy:
		if r.busyDst != nil {
			*r.busyDst = d.isHWBusy(r.srBuf[0])
		}
		r.op = OpIdle

	case opWriteRegWREN:
		d.hal.CS(d, false)
		r.op = opWriteRegDataWait
	case opWriteRegDataWait, opWriteRegData:
		r.op = OpIdle

	default:
		d.finalize()
		return ErrInternal
	}

	if r.op != OpIdle {
		return d.begin()
	}

	d.hal.CS(d, false)
	d.finalize()
	return nil
}

func idFromBuf(b [3]byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func (d *Driver) isHWBusy(sr byte) bool {
	return sr&d.cmdTbl.SRBusyBit != 0
}

// finalize returns the request to a clean idle state. It clears the
// busy-pre-check hint (SetCouldBeBusy applies to one request only, per its
// doc comment) along with every per-request payload field, so a stale
// buffer or destination pointer from a finished request can never leak
// into the next one.
func (d *Driver) finalize() {
	d.req.reset()
}

// exe starts executing the current request, either driving the sync loop
// to completion or kicking off the first async step.
func (d *Driver) exe() error {
	if d.req.couldBeBusy {
		d.req.busyPreCheck = true
	}

	err := d.begin()

	if !d.async {
		for err == nil && d.req.op != OpIdle {
			err = d.AsyncTrigger(err)
		}
	}
	if err != nil || !d.async {
		d.finalize()
	}

	return err
}

// AsyncTrigger must be called by the host after every asynchronous HAL
// completion (a finished SPITxRx or an elapsed Wait), even when the
// completion failed. It advances the engine one step and, if the operation
// has finished or aborted, invokes the configured AsyncCallback exactly
// once.
func (d *Driver) AsyncTrigger(completionErr error) error {
	completedOp := d.req.op
	err := d.end(completionErr)

	if err != nil || d.req.op == OpIdle {
		if err != nil {
			d.finalize()
		}
		if d.async && d.asyncCB != nil {
			d.asyncCB(d, completedOp, err)
		}
	}
	return err
}
