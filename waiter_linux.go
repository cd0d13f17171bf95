//go:build linux

package aio

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultPollInterval bounds how long a PollWaiter sleeps in poll(2)
// before it rechecks its context.
const DefaultPollInterval = 100 * time.Millisecond

// PollWaiter waits for the completion channel with poll(2). It wakes
// at least every Interval to observe cancellation of ctx.
type PollWaiter struct {
	Interval time.Duration
}

// Wait implements Waiter.
func (w PollWaiter) Wait(ctx context.Context, fd int) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		timeout := interval
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < timeout {
				timeout = max(left, 0)
			}
		}
		ms := int((timeout + time.Millisecond - 1) / time.Millisecond)
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("aio: poll: %w", err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return fmt.Errorf("aio: poll: completion channel revents %#x", fds[0].Revents)
		}
		return nil
	}
}

func defaultWaiter() Waiter {
	return PollWaiter{}
}
