package spiflash

import "fmt"

// Err is an engine-internal failure code. It implements error so it can be
// returned and matched with errors.Is/errors.As like any other Go error.
// Transport failures returned by a HAL are never converted to Err; they
// propagate as-is.
type Err int

const (
	// ErrBusyDriver is returned when a request arrives while another
	// operation is in flight. The driver's state is left untouched.
	ErrBusyDriver Err = iota + 1
	// ErrHwBusy is returned when a busy pre-check (see SetCouldBeBusy)
	// finds the chip still busy. No operation was started.
	ErrHwBusy
	// ErrErasureUnaligned is returned when an erase length is not a
	// multiple of the smallest supported erase block, or an erase
	// address is not aligned to any supported block.
	ErrErasureUnaligned
	// ErrBadConfig is returned when the erase planner selected a block
	// size whose opcode is missing from the command table. This should
	// not occur with a consistent command table; it is defensive.
	ErrBadConfig
	// ErrBadState is returned when the engine is re-entered with no
	// operation in flight. Indicates a driver bug.
	ErrBadState
	// ErrInternal marks an unreachable code path.
	ErrInternal
)

func (e Err) Error() string {
	switch e {
	case ErrBusyDriver:
		return "spiflash: driver busy with another operation"
	case ErrHwBusy:
		return "spiflash: chip reported busy on pre-check"
	case ErrErasureUnaligned:
		return "spiflash: erase range unaligned to smallest supported block"
	case ErrBadConfig:
		return "spiflash: planner selected an unsupported erase size"
	case ErrBadState:
		return "spiflash: engine re-entered while idle"
	case ErrInternal:
		return "spiflash: internal error"
	default:
		return fmt.Sprintf("spiflash: unknown error code %d", int(e))
	}
}
