package aio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"
)

// seqMask keeps the submission tag non-negative when it wraps.
const seqMask = 0x7FFFFFFFFFFFFFFF

// CompletionFunc receives the outcome of one operation: a byte count
// or zero on success, a negated errno on failure (see ResultError).
// data is the value passed to Submit, untouched.
type CompletionFunc func(res int64, data any)

// kernel is the queue side of the AIO facility.
type kernel interface {
	submit(cb *iocb) error
	// getEvents blocks until at least one result is available and
	// fills as many of events as it can.
	getEvents(events []ioEvent) (int, error)
	// cancel returns the cancelled operation's result when the kernel
	// reports it synchronously, or ErrCancelInProgress when the result
	// will arrive through getEvents.
	cancel(cb *iocb) (int64, error)
	destroy() error
}

// notifier is the completion channel side of the AIO facility.
type notifier interface {
	fd() int
	// read returns and resets the number of completions signalled
	// since the previous read. It returns zero when none are pending.
	read() (uint64, error)
	close() error
}

// Context is an asynchronous I/O submission engine with a fixed
// number of request slots. See the package documentation for the
// ownership rules.
type Context struct {
	kern    kernel
	note    notifier
	waiter  Waiter
	pool    *pool
	events  []ioEvent
	backlog deque.Deque[ioEvent]
	// unfetched counts completions signalled on the channel but not
	// yet taken from the kernel ring.
	unfetched uint64
	log       zerolog.Logger
	seq       int64
	closed    bool
}

func newContext(capacity int, kern kernel, note notifier, opts ...Option) *Context {
	o := resolveOptions(opts)
	c := &Context{
		kern:   kern,
		note:   note,
		waiter: o.waiter,
		pool:   newPool(capacity),
		events: make([]ioEvent, o.batch),
		log:    o.log,
	}
	c.log.Info().Int("capacity", capacity).Int("eventfd", note.fd()).Msg("aio context created")
	return c
}

// Cap returns the maximum number of concurrent operations.
func (c *Context) Cap() int {
	return c.pool.cap()
}

// Active returns the number of slots holding a pending operation.
func (c *Context) Active() int {
	return c.pool.active()
}

// Free returns the number of slots available for submission.
// Active()+Free() always equals Cap().
func (c *Context) Free() int {
	return c.pool.free.Len()
}

// Seq returns the submission tag of the most recent Submit.
func (c *Context) Seq() int64 {
	return c.seq
}

// Fd returns the completion channel descriptor, for callers that
// integrate the engine with their own poller.
func (c *Context) Fd() int {
	return c.note.fd()
}

// Submit issues op and returns the key identifying it. If every slot
// is in use, Submit first drains completions, running their callbacks,
// until a slot frees up. done runs exactly once, later, from Drain,
// Cancel or Close. If Submit returns an error, done never runs.
func (c *Context) Submit(op Op, done CompletionFunc, data any) (Key, error) {
	return c.SubmitContext(context.Background(), op, done, data)
}

// SubmitContext is Submit with a context that bounds how long it may
// wait for a free slot.
func (c *Context) SubmitContext(ctx context.Context, op Op, done CompletionFunc, data any) (Key, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if done == nil {
		return 0, ErrNilCallback
	}
	if err := op.validate(); err != nil {
		return 0, err
	}

	for c.pool.full() {
		if _, err := c.drain(ctx); err != nil {
			return 0, err
		}
		if c.pool.full() {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
	}
	if op.Buffer != nil && op.Buffer.Busy() {
		// A callback run by the drain above resubmitted it.
		return 0, ErrBufferBusy
	}

	key, s := c.pool.acquire()
	c.seq = (c.seq + 1) & seqMask
	s.seq = c.seq
	s.done = done
	s.data = data
	s.prepare(&op, key, c.note.fd())

	if err := c.kern.submit(&s.cb); err != nil {
		c.pool.release(key.Index())
		c.log.Debug().Err(err).Stringer("op", op.Code).Int("fd", op.Fd).Msg("aio submit rejected")
		return 0, &SubmitError{Op: op.Code, Fd: op.Fd, Err: err}
	}
	return key, nil
}

// Drain waits for the completion channel and dispatches every
// operation it reports, running each callback exactly once. It returns
// the number of callbacks run.
//
// If the Waiter fails, Drain returns 0 and a nil error; the caller is
// expected to call it again. If fetching results fails after some
// callbacks already ran, Drain returns that partial count and a nil
// error.
func (c *Context) Drain(ctx context.Context) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	return c.drain(ctx)
}

func (c *Context) drain(ctx context.Context) (int, error) {
	// Results fetched by an earlier call whose callback panicked.
	if c.backlog.Len() > 0 {
		return c.dispatch(), nil
	}

	if c.unfetched == 0 {
		if err := c.waiter.Wait(ctx, c.note.fd()); err != nil {
			c.log.Debug().Err(err).Msg("aio wait interrupted")
			return 0, nil
		}
		finished, err := c.note.read()
		if err != nil {
			return 0, fmt.Errorf("aio: read completion channel: %w", err)
		}
		c.unfetched = finished
	}

	dispatched := 0
	for c.unfetched > 0 {
		count := min(c.unfetched, uint64(len(c.events)))
		n, err := c.kern.getEvents(c.events[:count])
		if err != nil {
			if dispatched > 0 {
				c.log.Debug().Err(err).Int("dispatched", dispatched).Msg("aio getevents failed after partial drain")
				return dispatched, nil
			}
			return 0, fmt.Errorf("aio: io_getevents: %w", err)
		}
		if n == 0 {
			c.unfetched = 0
			break
		}
		for i := range c.events[:n] {
			c.backlog.PushBack(c.events[i])
		}
		// Callbacks may panic or drain again, so the count is settled
		// before any of them runs.
		c.unfetched -= uint64(n)
		dispatched += c.dispatch()
	}
	return dispatched, nil
}

// dispatch runs the callbacks of every result in the backlog. If a
// callback panics, the results behind it stay in the backlog for the
// next drain.
func (c *Context) dispatch() int {
	n := 0
	for c.backlog.Len() > 0 {
		ev := c.backlog.PopFront()
		if c.complete(Key(ev.data), ev.res) {
			n++
		}
	}
	return n
}

// complete frees the slot for key and runs its callback.
func (c *Context) complete(key Key, res int64) bool {
	s, err := c.pool.lookup(key)
	if err != nil {
		c.log.Error().Err(err).Stringer("key", key).Msg("aio completion for unknown slot")
		return false
	}
	done, data := s.done, s.data
	c.pool.release(key.Index())
	done(res, data)
	return true
}

// Cancel attempts to cancel the pending operation identified by key.
//
// If the kernel cancels it synchronously, the callback runs before
// Cancel returns and the slot is immediately reusable. If the kernel
// accepts the request but delivers the result asynchronously, Cancel
// returns ErrCancelInProgress and the callback runs from a later
// Drain. Any other failure is a *CancelError and leaves the operation
// pending. Either way the callback runs exactly once.
//
// Keys that are out of range or no longer pending are rejected with
// ErrInvalidKey or ErrStaleKey.
func (c *Context) Cancel(key Key) error {
	if c.closed {
		return ErrClosed
	}
	s, err := c.pool.lookup(key)
	if err != nil {
		return fmt.Errorf("%w: %v", err, key)
	}
	res, err := c.kern.cancel(&s.cb)
	switch {
	case err == nil:
		c.complete(key, res)
		return nil
	case errors.Is(err, ErrCancelInProgress):
		return err
	default:
		c.log.Debug().Err(err).Stringer("key", key).Stringer("op", s.code).Msg("aio cancel refused")
		return &CancelError{Key: key, Err: err}
	}
}

// Close waits for every pending operation to complete, running their
// callbacks, then releases the kernel queue and completion channel.
// Close is idempotent.
func (c *Context) Close() error {
	return c.Shutdown(context.Background())
}

// Shutdown is Close with a context bounding the wait for pending
// operations. Operations still pending when ctx is done, or when a
// drain fails, are torn down by the kernel without running their
// callbacks.
func (c *Context) Shutdown(ctx context.Context) error {
	if c.closed {
		return nil
	}
	for c.Active() > 0 && ctx.Err() == nil {
		if _, err := c.drain(ctx); err != nil {
			c.log.Warn().Err(err).Int("active", c.Active()).Msg("aio drain failed during close")
			break
		}
	}
	if n := c.Active(); n > 0 {
		c.log.Warn().Int("active", n).Msg("aio context closed with pending operations")
	}

	c.closed = true
	err := errors.Join(c.kern.destroy(), c.note.close())
	for i := range c.pool.slots {
		c.pool.slots[i].reset()
	}
	c.backlog.Clear()
	c.unfetched = 0
	c.log.Info().Err(err).Msg("aio context closed")
	return err
}
