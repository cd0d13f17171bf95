package aio

import "context"

// Waiter blocks until the completion channel fd is readable, ctx is
// done, or waiting fails. Drain treats any error as "nothing ready",
// so a Waiter can bound how long a drain may block by honouring the
// deadline of ctx.
type Waiter interface {
	Wait(ctx context.Context, fd int) error
}

// WaiterFunc adapts a function to the Waiter interface.
type WaiterFunc func(ctx context.Context, fd int) error

// Wait calls f(ctx, fd).
func (f WaiterFunc) Wait(ctx context.Context, fd int) error {
	return f(ctx, fd)
}
