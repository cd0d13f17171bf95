//go:build !linux

package aio

import (
	"context"
	"syscall"
)

// New always fails with ErrNotSupported outside Linux.
func New(capacity int, opts ...Option) (*Context, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return nil, ErrNotSupported
}

// ResultError converts a completion result into an error.
func ResultError(res int64) error {
	if res >= 0 {
		return nil
	}
	return syscall.Errno(-res)
}

func defaultWaiter() Waiter {
	return WaiterFunc(func(context.Context, int) error { return ErrNotSupported })
}
