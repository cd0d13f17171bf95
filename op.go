package aio

import "fmt"

// Opcode selects an asynchronous operation. The values match the
// kernel's IOCB_CMD_* constants.
type Opcode uint16

const (
	// OpRead reads into Op.Buf (or Op.Buffer) at Op.Offset.
	OpRead Opcode = 0
	// OpWrite writes Op.Buf (or Op.Buffer) at Op.Offset.
	OpWrite Opcode = 1
	// OpFsync flushes file data and metadata.
	OpFsync Opcode = 2
	// OpFdatasync flushes file data.
	OpFdatasync Opcode = 3
	// OpReadv scatters a read across Op.Vec.
	OpReadv Opcode = 7
	// OpWritev gathers a write from Op.Vec.
	OpWritev Opcode = 8
)

func (o Opcode) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpFsync:
		return "fsync"
	case OpFdatasync:
		return "fdatasync"
	case OpReadv:
		return "readv"
	case OpWritev:
		return "writev"
	default:
		return fmt.Sprintf("opcode(%d)", uint16(o))
	}
}

// Op describes one operation to submit. The memory referenced by Buf,
// Vec or Buffer belongs to the kernel until the operation's callback
// runs and must not be touched by the caller in the meantime.
type Op struct {
	Buf    []byte   // OpRead, OpWrite
	Vec    [][]byte // OpReadv, OpWritev
	Buffer *Buffer  // OpRead, OpWrite; exclusive with Buf
	Offset int64
	Fd     int
	Code   Opcode
}

func (op *Op) validate() error {
	if op.Fd < 0 {
		return fmt.Errorf("%w: negative fd %d", ErrInvalidOp, op.Fd)
	}
	switch op.Code {
	case OpRead, OpWrite:
		if op.Vec != nil {
			return fmt.Errorf("%w: %s does not take a vector", ErrInvalidOp, op.Code)
		}
		if op.Buffer != nil && op.Buf != nil {
			return fmt.Errorf("%w: both Buf and Buffer set", ErrInvalidOp)
		}
		if op.Buffer != nil && op.Buffer.Busy() {
			return ErrBufferBusy
		}
	case OpReadv, OpWritev:
		if op.Buf != nil || op.Buffer != nil {
			return fmt.Errorf("%w: %s takes a vector", ErrInvalidOp, op.Code)
		}
	case OpFsync, OpFdatasync:
		if op.Buf != nil || op.Vec != nil || op.Buffer != nil {
			return fmt.Errorf("%w: %s takes no buffer", ErrInvalidOp, op.Code)
		}
	default:
		return fmt.Errorf("%w: %v", ErrInvalidOp, op.Code)
	}
	return nil
}
