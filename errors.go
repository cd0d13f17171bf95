package aio

import (
	"errors"
	"fmt"
)

var (
	ErrClosed           = errors.New("aio: context closed")
	ErrInvalidCapacity  = errors.New("aio: capacity must be positive")
	ErrInvalidKey       = errors.New("aio: key out of range")
	ErrStaleKey         = errors.New("aio: key does not refer to a pending operation")
	ErrCancelInProgress = errors.New("aio: cancellation in progress")
	ErrBufferBusy       = errors.New("aio: buffer leased to a pending operation")
	ErrInvalidOp        = errors.New("aio: invalid operation")
	ErrNilCallback      = errors.New("aio: nil completion callback")
	ErrNotSupported     = errors.New("aio: kernel aio not supported on this platform")
)

// SubmitError is returned when the kernel rejects an operation. The
// slot is already back in the pool and the callback will not run.
type SubmitError struct {
	Op  Opcode
	Fd  int
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("aio: submit %s fd=%d: %v", e.Op, e.Fd, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// CancelError is returned when the kernel refuses to cancel an
// operation, typically because it is already completing. The
// operation stays pending and its callback fires through Drain.
type CancelError struct {
	Key Key
	Err error
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("aio: cancel %v: %v", e.Key, e.Err)
}

func (e *CancelError) Unwrap() error {
	return e.Err
}
