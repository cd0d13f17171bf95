package aio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errFake = errors.New("fake failure")

// fakeKernel is an in-memory kernel queue. Operations stay pending
// until the test finishes them, unless auto is set.
type fakeKernel struct {
	note      *fakeNote
	pending   map[uint64]iocb
	ready     []ioEvent
	submitErr error
	// getErrs are returned by successive getEvents calls, nil entries
	// meaning success.
	getErrs   []error
	getCalls  int
	batchSeen []int
	// cancel decides the outcome of io_cancel; nil means EAGAIN-like
	// refusal.
	cancelFn  func(cb *iocb) (int64, error)
	auto      func(cb *iocb) int64
	destroyed bool
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{
		note:    new(fakeNote),
		pending: make(map[uint64]iocb),
	}
}

func (k *fakeKernel) submit(cb *iocb) error {
	if k.submitErr != nil {
		return k.submitErr
	}
	k.pending[cb.data] = *cb
	if k.auto != nil {
		k.finish(Key(cb.data), k.auto(cb))
	}
	return nil
}

// finish completes the pending operation for key with res.
func (k *fakeKernel) finish(key Key, res int64) {
	if _, ok := k.pending[uint64(key)]; !ok {
		panic("fake kernel: finish of unknown key " + key.String())
	}
	delete(k.pending, uint64(key))
	k.ready = append(k.ready, ioEvent{data: uint64(key), res: res})
	k.note.count++
}

// finishAll completes every pending operation with res.
func (k *fakeKernel) finishAll(res int64) {
	for data := range k.pending {
		k.finish(Key(data), res)
	}
}

func (k *fakeKernel) getEvents(events []ioEvent) (int, error) {
	k.batchSeen = append(k.batchSeen, len(events))
	if k.getCalls < len(k.getErrs) {
		err := k.getErrs[k.getCalls]
		k.getCalls++
		if err != nil {
			return 0, err
		}
	} else {
		k.getCalls++
	}
	n := copy(events, k.ready)
	k.ready = k.ready[n:]
	return n, nil
}

func (k *fakeKernel) cancel(cb *iocb) (int64, error) {
	if k.cancelFn == nil {
		return 0, errFake
	}
	res, err := k.cancelFn(cb)
	if err == nil {
		delete(k.pending, cb.data)
	}
	return res, err
}

func (k *fakeKernel) destroy() error {
	k.destroyed = true
	return nil
}

type fakeNote struct {
	count   uint64
	readErr error
	closed  bool
}

func (n *fakeNote) fd() int {
	return 42
}

func (n *fakeNote) read() (uint64, error) {
	if n.readErr != nil {
		return 0, n.readErr
	}
	c := n.count
	n.count = 0
	return c, nil
}

func (n *fakeNote) close() error {
	n.closed = true
	return nil
}

// readyWaiter never blocks.
var readyWaiter = WaiterFunc(func(context.Context, int) error { return nil })

func newTestContext(t *testing.T, capacity int, opts ...Option) (*Context, *fakeKernel) {
	t.Helper()
	k := newFakeKernel()
	opts = append([]Option{WithWaiter(readyWaiter)}, opts...)
	c := newContext(capacity, k, k.note, opts...)
	return c, k
}

// recorder collects callback invocations.
type recorder struct {
	calls []call
}

type call struct {
	res  int64
	data any
}

func (r *recorder) done(res int64, data any) {
	r.calls = append(r.calls, call{res: res, data: data})
}

func (r *recorder) count(data any) int {
	n := 0
	for _, c := range r.calls {
		if c.data == data {
			n++
		}
	}
	return n
}

func requireBalanced(t *testing.T, c *Context) {
	t.Helper()
	require.Equal(t, c.Cap(), c.Active()+c.Free())
}
