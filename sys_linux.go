//go:build linux

package aio

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// New creates a Context with room for capacity concurrent operations.
// It acquires an eventfd completion channel and a kernel AIO queue of
// the same capacity, releasing both if either cannot be acquired.
func New(capacity int, opts ...Option) (*Context, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	note, err := newEventFD()
	if err != nil {
		return nil, fmt.Errorf("aio: eventfd: %w", err)
	}
	kern, err := setupQueue(capacity)
	if err != nil {
		_ = note.close()
		return nil, fmt.Errorf("aio: io_setup(%d): %w", capacity, err)
	}
	return newContext(capacity, kern, note, opts...), nil
}

// ResultError converts a completion result into an error. It returns
// nil for non-negative results.
func ResultError(res int64) error {
	if res >= 0 {
		return nil
	}
	return unix.Errno(-res)
}

// kernelQueue is an aio_context_t.
type kernelQueue struct {
	id uint64
}

func setupQueue(nr int) (*kernelQueue, error) {
	q := new(kernelQueue)
	_, _, e := unix.Syscall(unix.SYS_IO_SETUP, uintptr(nr), uintptr(unsafe.Pointer(&q.id)), 0)
	if e != 0 {
		return nil, e
	}
	return q, nil
}

func (q *kernelQueue) submit(cb *iocb) error {
	cbs := [1]*iocb{cb}
	for {
		n, _, e := unix.Syscall(unix.SYS_IO_SUBMIT, uintptr(q.id), 1, uintptr(unsafe.Pointer(&cbs[0])))
		switch {
		case e == unix.EINTR:
			continue
		case e != 0:
			return e
		case n != 1:
			return unix.EAGAIN
		}
		return nil
	}
}

func (q *kernelQueue) getEvents(events []ioEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	for {
		n, _, e := unix.Syscall6(unix.SYS_IO_GETEVENTS, uintptr(q.id), 1, uintptr(len(events)),
			uintptr(unsafe.Pointer(&events[0])), 0, 0)
		if e == unix.EINTR {
			continue
		}
		if e != 0 {
			return 0, e
		}
		return int(n), nil
	}
}

func (q *kernelQueue) cancel(cb *iocb) (int64, error) {
	var ev ioEvent
	_, _, e := unix.Syscall(unix.SYS_IO_CANCEL, uintptr(q.id), uintptr(unsafe.Pointer(cb)), uintptr(unsafe.Pointer(&ev)))
	switch e {
	case 0:
		return ev.res, nil
	case unix.EINPROGRESS:
		return 0, fmt.Errorf("%w: %w", ErrCancelInProgress, e)
	default:
		return 0, e
	}
}

func (q *kernelQueue) destroy() error {
	if _, _, e := unix.Syscall(unix.SYS_IO_DESTROY, uintptr(q.id), 0, 0); e != 0 {
		return fmt.Errorf("aio: io_destroy: %w", e)
	}
	return nil
}

// eventFD is the completion channel.
type eventFD int

func newEventFD() (eventFD, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, err
	}
	return eventFD(fd), nil
}

func (e eventFD) fd() int {
	return int(e)
}

func (e eventFD) read() (uint64, error) {
	var buf [8]byte
	for {
		_, err := unix.Read(int(e), buf[:])
		switch err {
		case nil:
			return binary.NativeEndian.Uint64(buf[:]), nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, nil
		default:
			return 0, err
		}
	}
}

func (e eventFD) close() error {
	return unix.Close(int(e))
}
