// Package gobothal implements spiflash.HAL over a Gobot SPI connection, for
// boards where Gobot already owns the bus (e.g. a NanoPi's sysfs adaptor).
package gobothal

import (
	"fmt"
	"time"

	gobotspi "gobot.io/x/gobot/v2/drivers/spi"

	"github.com/gentam/spiflash"
)

// spiOps is the subset of a Gobot SPI connection this package needs. Most
// Gobot adaptors (sysfs, periph-backed, chip-specific) implement it.
type spiOps interface {
	ReadCommandData(command []byte, data []byte) error
	WriteBytes(data []byte) error
}

// HAL adapts a Gobot spi.Driver to spiflash.HAL. Gobot's underlying
// connections toggle chip-select automatically around each call, but the
// engine asserts CS once and may issue several SPITxRx calls before
// deasserting it (e.g. a page-program opcode+address call immediately
// followed by the data call, both under one CS cycle). HAL reconstructs
// that by buffering write-only bytes issued while CS is held and flushing
// them as a single WriteBytes call when CS is released, so the physical
// bus sees one continuous transaction instead of several fragmented ones.
type HAL struct {
	driver *gobotspi.Driver

	held       bool
	pendingTx  []byte
	pendingErr error
}

var _ spiflash.HAL = (*HAL)(nil)

// New wraps a started Gobot SPI driver. The caller is responsible for
// calling driver.Start() first.
func New(driver *gobotspi.Driver) *HAL {
	return &HAL{driver: driver}
}

func (h *HAL) ops() (spiOps, error) {
	ops, ok := h.driver.Connection().(spiOps)
	if !ok {
		return nil, fmt.Errorf("gobothal: connection does not support ReadCommandData/WriteBytes")
	}
	return ops, nil
}

// SPITxRx sends tx and, if rx is non-empty, reads len(rx) further bytes
// into it. Write-only calls made while CS is held are buffered rather than
// issued immediately — see the HAL doc comment.
func (h *HAL) SPITxRx(d *spiflash.Driver, tx, rx []byte) error {
	if h.pendingErr != nil {
		err := h.pendingErr
		h.pendingErr = nil
		return err
	}

	if len(rx) == 0 {
		if len(tx) == 0 {
			return nil
		}
		if h.held {
			h.pendingTx = append(h.pendingTx, tx...)
			return nil
		}
		ops, err := h.ops()
		if err != nil {
			return err
		}
		return ops.WriteBytes(tx)
	}

	if len(h.pendingTx) > 0 {
		ops, err := h.ops()
		if err != nil {
			h.pendingTx = nil
			return err
		}
		flush := h.pendingTx
		h.pendingTx = nil
		if err := ops.WriteBytes(flush); err != nil {
			return err
		}
	}

	ops, err := h.ops()
	if err != nil {
		return err
	}
	return ops.ReadCommandData(tx, rx)
}

// CS marks the start (asserted) or end (deasserted) of a logical
// transaction. Deasserting flushes any buffered write-only bytes as one
// physical WriteBytes call.
func (h *HAL) CS(d *spiflash.Driver, asserted bool) {
	if asserted {
		h.held = true
		h.pendingTx = h.pendingTx[:0]
		return
	}

	h.held = false
	if len(h.pendingTx) == 0 {
		return
	}
	flush := h.pendingTx
	h.pendingTx = nil
	ops, err := h.ops()
	if err != nil {
		h.pendingErr = err
		return
	}
	if err := ops.WriteBytes(flush); err != nil {
		h.pendingErr = err
	}
}

// Wait blocks for ms milliseconds. gobothal only supports synchronous
// drivers; pair it with a Driver built without spiflash.WithAsync.
func (h *HAL) Wait(d *spiflash.Driver, ms uint32) {
	if ms == 0 {
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
