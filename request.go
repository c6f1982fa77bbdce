package spiflash

// Operation names a step of the engine's state machine.
// It doubles as the payload reported to an AsyncCallback: on completion (or
// abort) it identifies which step the engine was executing.
type Operation uint8

const (
	OpIdle Operation = iota

	opWriteWREN
	opWriteAddr
	opWriteData

	opEraseBlockWREN
	opEraseBlockEras

	opEraseChipWREN
	opEraseChipEras

	opWriteSRWREN
	opWriteSRData

	opWriteRegWREN
	opWriteRegDataWait
	opWriteRegData

	OpRead
	OpFastRead

	OpReadSR
	OpReadSRBusy

	OpReadJEDEC
	OpReadProduct

	OpReadReg
)

func (op Operation) String() string {
	switch op {
	case OpIdle:
		return "idle"
	case opWriteWREN:
		return "write/wren"
	case opWriteAddr:
		return "write/addr"
	case opWriteData:
		return "write/data"
	case opEraseBlockWREN:
		return "erase/wren"
	case opEraseBlockEras:
		return "erase/erase"
	case opEraseChipWREN:
		return "chip-erase/wren"
	case opEraseChipEras:
		return "chip-erase/erase"
	case opWriteSRWREN:
		return "write-sr/wren"
	case opWriteSRData:
		return "write-sr/data"
	case opWriteRegWREN:
		return "write-reg/wren"
	case opWriteRegDataWait:
		return "write-reg/data-wait"
	case opWriteRegData:
		return "write-reg/data"
	case OpRead:
		return "read"
	case OpFastRead:
		return "fast-read"
	case OpReadSR:
		return "read-sr"
	case OpReadSRBusy:
		return "read-sr-busy"
	case OpReadJEDEC:
		return "read-jedec"
	case OpReadProduct:
		return "read-product"
	case OpReadReg:
		return "read-reg"
	default:
		return "unknown"
	}
}

// busyCheckState is the busy-wait sub-machine's own state. It runs
// interleaved with the main operation state above.
type busyCheckState uint8

const (
	bcwIdle busyCheckState = iota
	bcwWait
	bcwReadSR
	bcwCheck
)

// request holds the mutable state of an in-flight operation. Only one
// request is ever active per Driver. The payload fields below are plain,
// separately typed slices/pointers/arrays; exactly one of them is
// meaningful at a time, determined by op.
type request struct {
	op Operation

	addr uint32
	// length is the remaining byte count of a write or an erase (mutually
	// exclusive, selected by op). Reads use len(readBuf) instead.
	length uint32

	writeBuf []byte // cursor into the caller's write source
	readBuf  []byte // cursor into the caller's read destination

	idDst   *uint32 // caller destination for read_jedec_id / read_product_id
	srDst   *byte   // caller destination for read_sr
	busyDst *bool   // caller destination for read_sr_busy
	regDst  *byte   // caller destination for read_reg

	// Transport receive buffers. Addressable array fields so begin() can
	// hand the engine's own slice of them straight to the HAL as rx.
	srBuf  [1]byte // most recently read status register byte
	regBuf [1]byte // most recently read register byte
	idBuf  [3]byte // most recently read JEDEC/product id

	srWrite byte // byte queued by WriteSR, to be written to the SR
	regNbr  uint8

	// busy-wait sub-machine
	waitPeriodMs  uint32
	couldBeBusy   bool
	busyPreCheck  bool
	busyCheckWait busyCheckState
}

func (r *request) reset() {
	*r = request{}
}
