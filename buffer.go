package aio

import "unsafe"

// DirectIOAlignment is the buffer alignment O_DIRECT file descriptors
// require on most block devices.
const DirectIOAlignment = 512

// Buffer is a caller-owned byte buffer whose contents cannot be
// reached while an operation that references it is pending. Submitting
// a Buffer leases it to the operation; the lease ends just before the
// operation's callback runs.
type Buffer struct {
	b    []byte
	busy bool
}

// NewBuffer allocates a Buffer of size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{b: make([]byte, size)}
}

// NewAlignedBuffer allocates a Buffer of size bytes whose first byte
// is aligned to align, which must be a power of two.
func NewAlignedBuffer(size, align int) *Buffer {
	if align <= 0 || align&(align-1) != 0 {
		panic("aio: alignment must be a power of two")
	}
	raw := make([]byte, size+align-1)
	off := 0
	if len(raw) > 0 {
		if rem := int(uintptr(unsafe.Pointer(&raw[0])) & uintptr(align-1)); rem != 0 {
			off = align - rem
		}
	}
	return &Buffer{b: raw[off : off+size : off+size]}
}

// Bytes returns the buffer contents. It panics while the buffer is
// leased to a pending operation.
func (b *Buffer) Bytes() []byte {
	if b.busy {
		panic("aio: buffer accessed while operation pending")
	}
	return b.b
}

// Len returns the buffer size. It is safe to call at any time.
func (b *Buffer) Len() int {
	return len(b.b)
}

// Busy reports whether the buffer is leased to a pending operation.
func (b *Buffer) Busy() bool {
	return b.busy
}

func (b *Buffer) lease() {
	b.busy = true
}

func (b *Buffer) release() {
	b.busy = false
}
