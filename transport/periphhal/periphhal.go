// Package periphhal implements spiflash.HAL over periph.io's SPI/GPIO
// abstractions, for flash chips wired to a host SPI controller or an
// FT2232H-class USB-to-SPI adapter.
package periphhal

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"

	"github.com/gentam/spiflash"
)

// HAL adapts a periph.io spi.Conn and a chip-select gpio.PinIO to
// spiflash.HAL. CS and Wait in the spiflash.HAL interface return no error,
// so a CS failure is latched and surfaced on the following SPITxRx call
// instead of being silently dropped.
type HAL struct {
	conn spi.Conn
	cs   gpio.PinIO

	pendingCSErr error
}

var _ spiflash.HAL = (*HAL)(nil)

// New wraps an already-connected spi.Conn and its chip-select pin.
func New(conn spi.Conn, cs gpio.PinIO) *HAL {
	return &HAL{conn: conn, cs: cs}
}

var hostInitialized atomic.Bool

// OpenFT2232H locates an FT2232H-class adapter (the same family the
// icebreaker/iCE40 boards expose), opens its MPSSE SPI port at clock, and
// returns a HAL driving chip select on ADBUS4. Only SPI mode 0 and mode 2
// are usable on FTDI's MPSSE engine; mode 0 is what SPI NOR parts expect.
func OpenFT2232H(clock physic.Frequency) (*HAL, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("periphhal: host init: %w", err)
		}
	}

	const (
		vendorID  = 0x0403
		productID = 0x6010
	)

	var dev *ftdi.FT232H
	info := ftdi.Info{}
	for _, d := range ftdi.All() {
		d.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := d.(*ftdi.FT232H); ok {
			dev = ft
			break
		}
	}
	if dev == nil {
		return nil, errors.New("periphhal: no FT2232H adapter found")
	}

	port, err := dev.SPI()
	if err != nil {
		return nil, fmt.Errorf("periphhal: SPI port: %w", err)
	}
	conn, err := port.Connect(clock, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("periphhal: connect: %w", err)
	}

	return New(conn, dev.D4), nil
}

// SPITxRx clocks out tx, then clocks in len(rx) further bytes and copies
// them into rx. SPI is inherently full-duplex, so periph.io's spi.Conn.Tx
// needs equal-length write/read buffers; tx's half of the reply is
// discarded and rx's half of the write side is zero-filled dummy bytes,
// mirroring the combined-buffer Tx(buf, buf) pattern used for single-phase
// transactions, generalized to the engine's split tx/rx framing.
func (h *HAL) SPITxRx(d *spiflash.Driver, tx, rx []byte) error {
	if h.pendingCSErr != nil {
		err := h.pendingCSErr
		h.pendingCSErr = nil
		return err
	}

	n := len(tx) + len(rx)
	if n == 0 {
		return nil
	}
	w := make([]byte, n)
	copy(w, tx)
	r := make([]byte, n)
	if err := h.conn.Tx(w, r); err != nil {
		return err
	}
	if len(rx) > 0 {
		copy(rx, r[len(tx):])
	}
	return nil
}

// CS drives the chip-select pin low (asserted) or high (deasserted).
func (h *HAL) CS(d *spiflash.Driver, asserted bool) {
	level := gpio.High
	if asserted {
		level = gpio.Low
	}
	if err := h.cs.Out(level); err != nil {
		h.pendingCSErr = err
	}
}

// Wait blocks the calling goroutine for ms milliseconds. periphhal only
// supports synchronous drivers; pair it with a Driver built without
// spiflash.WithAsync.
func (h *HAL) Wait(d *spiflash.Driver, ms uint32) {
	if ms == 0 {
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
