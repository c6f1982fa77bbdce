// Package spiflash is a portable operation engine for SPI-attached NOR
// flash memories. It serializes logical requests (write, erase, read,
// status/register access) into the chip-select-framed SPI command
// sequences a generic SPI NOR part expects, inserting write-enable
// prologues, splitting writes at page boundaries, greedily choosing erase
// granularities, and polling the status register with a shrinking backoff
// while the chip is busy.
//
// The engine itself never touches a bus: all I/O goes through a HAL
// supplied by the host (see the HAL interface), so the same state machine
// drives both a blocking transport and a cooperative-asynchronous one.
package spiflash

import "fmt"

// HAL is the hardware abstraction the engine drives. Implementations may
// block (synchronous HAL) or post a completion and return immediately
// (asynchronous HAL, paired with a Driver constructed with WithAsync) —
// the engine itself doesn't care which, it always issues exactly one
// transport call or wait per step and waits to be re-entered.
type HAL interface {
	// SPITxRx carries out one SPI transaction. If tx is non-empty it is
	// transmitted first; then, if rx is non-empty, rx bytes are
	// received into it. CS framing is the engine's responsibility —
	// implementations must not touch CS here. In synchronous use this
	// blocks until the transaction completes and returns its result.
	// In asynchronous use, it schedules the transaction and returns
	// immediately; once done, the host must call d.AsyncTrigger with
	// the result.
	SPITxRx(d *Driver, tx, rx []byte) error

	// CS asserts (true) or deasserts (false) chip select.
	CS(d *Driver, asserted bool)

	// Wait pauses for ms milliseconds (0 returns immediately). In
	// asynchronous use it arms a timer and returns immediately; once
	// the timer fires, the host must call d.AsyncTrigger(nil).
	Wait(d *Driver, ms uint32)
}

// AsyncCallback is invoked exactly once per operation when running in
// asynchronous mode, after the engine returns to idle or aborts. op
// identifies the step being executed at completion or abort; err is nil on
// success.
type AsyncCallback func(d *Driver, op Operation, err error)

// Driver is one SPI NOR flash operation engine instance. It executes at
// most one logical operation at a time; a zero Driver is not usable, use
// New. Multiple Drivers (multiple chips) are fully independent — there is
// no package-level state.
type Driver struct {
	cfg    *ChipConfig
	cmdTbl *CommandTable
	hal    HAL

	asyncCB AsyncCallback
	async   bool

	userData any

	req     request
	scratch [16]byte
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithAsync puts the driver in asynchronous mode and registers the
// completion callback. Without this option the driver runs synchronously
// and cb is never used.
func WithAsync(cb AsyncCallback) Option {
	return func(d *Driver) {
		d.async = true
		d.asyncCB = cb
	}
}

// WithUserData attaches an opaque value the HAL can retrieve via
// Driver.UserData. The engine never inspects or mutates it.
func WithUserData(v any) Option {
	return func(d *Driver) {
		d.userData = v
	}
}

// New builds a Driver bound to the given chip geometry, opcode table, and
// HAL. cfg and cmdTbl are retained by reference and must not be mutated
// while the driver is in use.
func New(cfg *ChipConfig, cmdTbl *CommandTable, hal HAL, opts ...Option) *Driver {
	d := &Driver{cfg: cfg, cmdTbl: cmdTbl, hal: hal}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// UserData returns the opaque value supplied via WithUserData, for use by
// HAL implementations that need to recover their own context from the
// *Driver argument they're handed.
func (d *Driver) UserData() any { return d.userData }

// IsBusy reports whether an operation is currently in flight. It performs
// no I/O.
func (d *Driver) IsBusy() bool { return d.req.op != OpIdle }

// SetCouldBeBusy hints that the chip may still be busy from a prior
// operation (e.g. after a power cycle of unknown timing). When set, the
// next request performs a single status-register pre-check before doing
// anything else; if the chip reports busy, the request fails with
// ErrHwBusy instead of being attempted. The hint is consumed by the next
// request, whether or not that request ends up using it.
func (d *Driver) SetCouldBeBusy(busy bool) {
	d.req.couldBeBusy = busy
}

func (d *Driver) start(op Operation) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.op = op
	return d.exe()
}

// Write programs buf starting at addr, splitting at page boundaries and
// re-issuing write-enable before each page. Pre-erase is the caller's
// responsibility.
func (d *Driver) Write(addr uint32, buf []byte) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.addr = addr
	d.req.writeBuf = buf
	d.req.length = uint32(len(buf))
	return d.start(opWriteWREN)
}

// Read reads len(buf) bytes starting at addr into buf using the plain read
// command.
func (d *Driver) Read(addr uint32, buf []byte) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.addr = addr
	d.req.readBuf = buf
	return d.start(OpRead)
}

// FastRead reads len(buf) bytes starting at addr using the fast-read
// command if the command table supports it; otherwise it transparently
// falls back to a plain Read, producing the identical wire trace.
func (d *Driver) FastRead(addr uint32, buf []byte) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.addr = addr
	d.req.readBuf = buf
	op := OpFastRead
	if d.cmdTbl.ReadDataFast == 0 {
		op = OpRead
	}
	return d.start(op)
}

// Erase erases [addr, addr+length) using the largest supported,
// naturally-aligned erase blocks that fit. length must be a
// multiple of the smallest supported erase block and addr must be aligned
// to whatever block size ends up covering it, else ErrErasureUnaligned is
// returned and no SPI activity is emitted.
func (d *Driver) Erase(addr, length uint32) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	if largestErase(d.cmdTbl, addr, length) == 0 {
		return ErrErasureUnaligned
	}
	d.req.addr = addr
	d.req.length = length
	return d.start(opEraseBlockWREN)
}

// ChipErase erases the entire chip.
func (d *Driver) ChipErase() error {
	return d.start(opEraseChipWREN)
}

// ReadSR reads the status register byte into dst.
func (d *Driver) ReadSR(dst *byte) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.srDst = dst
	return d.start(OpReadSR)
}

// ReadSRBusy reads the status register and writes whether the busy bit is
// set into dst.
func (d *Driver) ReadSRBusy(dst *bool) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.busyDst = dst
	return d.start(OpReadSRBusy)
}

// WriteSR writes sr to the status register, preceded by write-enable.
func (d *Driver) WriteSR(sr byte) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.srWrite = sr
	return d.start(opWriteSRWREN)
}

// ReadJEDECID reads the chip's 3-byte JEDEC ID into the low bytes of dst.
func (d *Driver) ReadJEDECID(dst *uint32) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.idDst = dst
	return d.start(OpReadJEDEC)
}

// ReadProductID reads the chip's 3-byte product/device ID into the low
// bytes of dst.
func (d *Driver) ReadProductID(dst *uint32) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.idDst = dst
	return d.start(OpReadProduct)
}

// ReadReg reads an arbitrary hardware-specific single-byte register.
func (d *Driver) ReadReg(reg byte, dst *byte) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.req.regNbr = reg
	d.req.regDst = dst
	return d.start(OpReadReg)
}

// WriteReg writes data to an arbitrary hardware-specific single-byte
// register. If writeEnable is set, a write-enable is issued first and
// waitMs is the initial wait before the first status-register poll. If
// writeEnable is false, the register is written directly with no wait.
func (d *Driver) WriteReg(reg, data byte, writeEnable bool, waitMs uint32) error {
	if d.req.op != OpIdle {
		return ErrBusyDriver
	}
	d.scratch[0] = reg
	d.scratch[1] = data
	if writeEnable {
		d.req.waitPeriodMs = waitMs
		return d.start(opWriteRegWREN)
	}
	return d.start(opWriteRegData)
}

func (d *Driver) String() string {
	return fmt.Sprintf("spiflash.Driver{op=%s async=%t}", d.req.op, d.async)
}
