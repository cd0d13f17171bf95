package main

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/webriots/aio/task"
)

// copier copies src to dst through a task scheduler, keeping up to
// depth chunks in flight.
type copier struct {
	sched  *task.Scheduler
	log    zerolog.Logger
	src    int
	dst    int
	size   int64
	chunk  int
	depth  int
	next   int64        // next offset to claim; touched only by tasks
	copied atomic.Int64 // bytes written, read by the progress reporter
	err    error
}

func (c *copier) run(ctx context.Context) error {
	err := c.sched.Run(ctx, func(_ context.Context, t *task.Task) {
		group := t.Group()
		for i := 0; i < c.depth; i++ {
			group.Go(c.worker)
		}
		if err := group.Wait(t); err != nil {
			c.fail(err)
			return
		}
		if err := t.Fdatasync(c.dst); err != nil {
			c.fail(err)
		}
	})
	if err != nil {
		return err
	}
	return c.err
}

func (c *copier) worker(ctx context.Context, t *task.Task) error {
	buf := make([]byte, c.chunk)
	for ctx.Err() == nil && c.next < c.size {
		off := c.next
		n := int(min(int64(c.chunk), c.size-off))
		c.next += int64(n)

		if err := c.copyChunk(t, buf[:n], off); err != nil {
			return err
		}
	}
	return context.Cause(ctx)
}

// copyChunk reads p from src at off and writes it to dst, retrying
// short transfers.
func (c *copier) copyChunk(t *task.Task, p []byte, off int64) error {
	for done := 0; done < len(p); {
		n, err := t.Read(c.src, p[done:], off+int64(done))
		if err != nil {
			return err
		}
		if n == 0 {
			// src shrank underneath us
			p = p[:done]
			break
		}
		done += n
	}

	for done := 0; done < len(p); {
		n, err := t.Write(c.dst, p[done:], off+int64(done))
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		done += n
		c.copied.Add(int64(n))
	}

	c.log.Trace().Int64("off", off).Int("len", len(p)).Msg("chunk copied")
	return nil
}

func (c *copier) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}
