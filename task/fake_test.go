package task

import (
	"context"

	"github.com/webriots/aio"
)

type queued struct {
	op   aio.Op
	done aio.CompletionFunc
	data any
}

// fakeEngine completes every queued operation on Drain. Reads fill the
// buffer with the low byte of each file offset.
type fakeEngine struct {
	capacity  int
	queue     []queued
	hold      bool // Drain completes nothing
	submitErr error
	drainErr  error
	result    func(aio.Op) int64
	submits   int
	drains    int
	reads     int
}

func newFakeEngine(capacity int) *fakeEngine {
	return &fakeEngine{capacity: capacity}
}

func (e *fakeEngine) Submit(op aio.Op, done aio.CompletionFunc, data any) (aio.Key, error) {
	if e.submitErr != nil {
		return 0, e.submitErr
	}
	for len(e.queue) >= e.capacity && !e.hold {
		e.finish()
	}
	e.submits++
	e.queue = append(e.queue, queued{op: op, done: done, data: data})
	return aio.Key(len(e.queue)), nil
}

func (e *fakeEngine) Drain(context.Context) (int, error) {
	e.drains++
	if e.drainErr != nil {
		return 0, e.drainErr
	}
	if e.hold {
		return 0, nil
	}
	return e.finish(), nil
}

func (e *fakeEngine) finish() int {
	q := e.queue
	e.queue = nil
	for _, c := range q {
		c.done(e.complete(c.op), c.data)
	}
	return len(q)
}

func (e *fakeEngine) complete(op aio.Op) int64 {
	if e.result != nil {
		return e.result(op)
	}
	switch op.Code {
	case aio.OpRead:
		e.reads++
		for i := range op.Buf {
			op.Buf[i] = byte(op.Offset + int64(i))
		}
		return int64(len(op.Buf))
	case aio.OpWrite:
		return int64(len(op.Buf))
	case aio.OpReadv, aio.OpWritev:
		var n int
		for _, v := range op.Vec {
			n += len(v)
		}
		return int64(n)
	default:
		return 0
	}
}
