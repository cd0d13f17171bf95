package aio

import "unsafe"

// iocbFlagResfd asks the kernel to signal iocb.resfd on completion.
const iocbFlagResfd = 1 << 0

// iocb mirrors struct iocb from linux/aio_abi.h on little endian
// targets.
type iocb struct {
	data      uint64 // returned as ioEvent.data; holds the Key
	key       uint32 // overwritten by the kernel on submit
	rwFlags   int32
	opcode    uint16
	reqprio   int16
	fildes    uint32
	buf       uint64
	nbytes    uint64
	offset    int64
	reserved2 uint64
	flags     uint32
	resfd     uint32
}

// ioEvent mirrors struct io_event.
type ioEvent struct {
	data uint64
	obj  uint64
	res  int64
	res2 int64
}

// iovec mirrors struct iovec.
type iovec struct {
	base *byte
	len  uintptr
}

func bufAddr(p []byte) uint64 {
	return uint64(uintptr(unsafe.Pointer(unsafe.SliceData(p))))
}

// prepare fills s.cb for op and retains every piece of memory the
// kernel will reference, so the collector keeps it alive until the
// slot is released.
func (s *slot) prepare(op *Op, key Key, resfd int) {
	s.cb = iocb{
		data:   uint64(key),
		opcode: uint16(op.Code),
		fildes: uint32(op.Fd),
		offset: op.Offset,
		flags:  iocbFlagResfd,
		resfd:  uint32(resfd),
	}
	s.code = op.Code

	switch op.Code {
	case OpRead, OpWrite:
		p := op.Buf
		if op.Buffer != nil {
			op.Buffer.lease()
			s.lease = op.Buffer
			p = op.Buffer.b
		}
		s.buf = p
		s.cb.buf = bufAddr(p)
		s.cb.nbytes = uint64(len(p))
	case OpReadv, OpWritev:
		s.iov = s.iov[:0]
		for _, v := range op.Vec {
			s.iov = append(s.iov, iovec{base: unsafe.SliceData(v), len: uintptr(len(v))})
		}
		s.vec = op.Vec
		if len(s.iov) > 0 {
			s.cb.buf = uint64(uintptr(unsafe.Pointer(&s.iov[0])))
		}
		s.cb.nbytes = uint64(len(s.iov))
	}
}
