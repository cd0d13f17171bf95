package aio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	r := require.New(t)

	c, _ := newTestContext(t, 8)

	r.Equal(8, c.Cap())
	r.Equal(0, c.Active())
	r.Equal(8, c.Free())
	r.Equal(int64(0), c.Seq())
	r.Equal(42, c.Fd())
}

func TestSubmitDrain(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 4)
	var rec recorder

	for i := 0; i < 3; i++ {
		_, err := c.Write(3, make([]byte, 16), int64(i*16), rec.done, i)
		r.NoError(err)
		requireBalanced(t, c)
	}
	r.Equal(3, c.Active())
	r.Equal(int64(3), c.Seq())

	k.finishAll(16)
	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(3, n)
	r.Len(rec.calls, 3)
	for i := 0; i < 3; i++ {
		r.Equal(1, rec.count(i))
	}
	for _, call := range rec.calls {
		r.Equal(int64(16), call.res)
	}
	r.Equal(0, c.Active())
	requireBalanced(t, c)

	n, err = c.Drain(context.Background())
	r.NoError(err)
	r.Zero(n)
}

func TestSubmitBackpressure(t *testing.T) {
	r := require.New(t)

	k := newFakeKernel()
	waits := 0
	waiter := WaiterFunc(func(context.Context, int) error {
		waits++
		k.finishAll(4)
		return nil
	})
	c := newContext(2, k, k.note, WithWaiter(waiter))
	var rec recorder

	_, err := c.Write(3, []byte("aaaa"), 0, rec.done, "A")
	r.NoError(err)
	_, err = c.Write(3, []byte("bbbb"), 4, rec.done, "B")
	r.NoError(err)
	r.Equal(2, c.Active())
	r.Zero(waits)

	keyC, err := c.Write(3, []byte("cccc"), 8, rec.done, "C")
	r.NoError(err)
	r.Equal(1, waits)
	r.Equal(1, rec.count("A"))
	r.Equal(1, rec.count("B"))
	r.Zero(rec.count("C"))
	r.Equal(1, c.Active())
	requireBalanced(t, c)

	_, pending := k.pending[uint64(keyC)]
	r.True(pending)
}

func TestSubmitBackpressureContext(t *testing.T) {
	r := require.New(t)

	k := newFakeKernel()
	ctx, cancel := context.WithCancel(context.Background())
	waiter := WaiterFunc(func(ctx context.Context, _ int) error {
		cancel()
		return ctx.Err()
	})
	c := newContext(1, k, k.note, WithWaiter(waiter))
	var rec recorder

	_, err := c.Write(3, []byte("x"), 0, rec.done, nil)
	r.NoError(err)

	_, err = c.SubmitContext(ctx, Op{Code: OpWrite, Fd: 3, Buf: []byte("y")}, rec.done, nil)
	r.ErrorIs(err, context.Canceled)
	r.Equal(1, c.Active())
	r.Empty(rec.calls)
}

func TestZeroLengthRead(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 2)
	var rec recorder

	key, err := c.Read(3, []byte{}, 0, rec.done, "empty")
	r.NoError(err)
	cb := k.pending[uint64(key)]
	r.Zero(cb.nbytes)
	r.Equal(uint16(OpRead), cb.opcode)

	k.finish(key, 0)
	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(1, n)
	r.Equal([]call{{res: 0, data: "empty"}}, rec.calls)
}

func TestSubmitRejected(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 2)
	var rec recorder
	k.submitErr = errFake

	_, err := c.Fsync(3, rec.done, nil)
	r.ErrorIs(err, errFake)
	var serr *SubmitError
	r.True(errors.As(err, &serr))
	r.Equal(OpFsync, serr.Op)
	r.Equal(3, serr.Fd)

	r.Equal(0, c.Active())
	r.Equal(2, c.Free())
	r.Empty(rec.calls)

	k.submitErr = nil
	key, err := c.Fsync(3, rec.done, nil)
	r.NoError(err)
	r.Equal(1, c.Active())
	r.Equal(uint32(2), key.Generation())
}

func TestSubmitInvalid(t *testing.T) {
	r := require.New(t)

	c, _ := newTestContext(t, 2)
	var rec recorder

	cases := []Op{
		{Code: OpWrite, Fd: -1},
		{Code: Opcode(99), Fd: 3},
		{Code: OpWrite, Fd: 3, Buf: []byte("x"), Buffer: NewBuffer(1)},
		{Code: OpRead, Fd: 3, Vec: [][]byte{{1}}},
		{Code: OpReadv, Fd: 3, Buf: []byte("x")},
		{Code: OpFdatasync, Fd: 3, Buf: []byte("x")},
	}
	for _, op := range cases {
		_, err := c.Submit(op, rec.done, nil)
		r.ErrorIs(err, ErrInvalidOp, "op %+v", op)
	}

	_, err := c.Submit(Op{Code: OpFsync, Fd: 3}, nil, nil)
	r.ErrorIs(err, ErrNilCallback)

	r.Equal(0, c.Active())
	r.Equal(int64(0), c.Seq())
}

func TestDrainWaiterFailure(t *testing.T) {
	r := require.New(t)

	k := newFakeKernel()
	fail := true
	waiter := WaiterFunc(func(context.Context, int) error {
		if fail {
			return errFake
		}
		return nil
	})
	c := newContext(2, k, k.note, WithWaiter(waiter))
	var rec recorder

	key, err := c.Write(3, []byte("x"), 0, rec.done, nil)
	r.NoError(err)
	k.finish(key, 1)

	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Zero(n)
	r.Empty(rec.calls)

	fail = false
	n, err = c.Drain(context.Background())
	r.NoError(err)
	r.Equal(1, n)
	r.Len(rec.calls, 1)
}

func TestDrainReadFailure(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 2)
	k.note.readErr = errFake

	n, err := c.Drain(context.Background())
	r.ErrorIs(err, errFake)
	r.Zero(n)
}

func TestDrainBatches(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 128)
	var rec recorder

	for i := 0; i < 70; i++ {
		_, err := c.Read(3, make([]byte, 1), int64(i), rec.done, i)
		r.NoError(err)
	}
	k.finishAll(1)

	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(70, n)
	r.Equal([]int{32, 32, 6}, k.batchSeen)
	r.Len(rec.calls, 70)
	r.Equal(0, c.Active())
}

func TestDrainBatchSizeOption(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 16, WithBatchSize(4), WithBatchSize(0))
	var rec recorder

	for i := 0; i < 10; i++ {
		_, err := c.Read(3, make([]byte, 1), int64(i), rec.done, i)
		r.NoError(err)
	}
	k.finishAll(1)

	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(10, n)
	r.Equal([]int{4, 4, 2}, k.batchSeen)
}

func TestDrainPartialFailure(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 64)
	var rec recorder

	for i := 0; i < 40; i++ {
		_, err := c.Read(3, make([]byte, 1), int64(i), rec.done, i)
		r.NoError(err)
	}
	k.finishAll(1)
	k.getErrs = []error{nil, errFake}

	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(32, n)
	r.Len(rec.calls, 32)
	r.Equal(8, c.Active())
	requireBalanced(t, c)

	// the rest is fetched without a new signal
	n, err = c.Drain(context.Background())
	r.NoError(err)
	r.Equal(8, n)
	r.Len(rec.calls, 40)
	r.Zero(c.Active())
}

func TestDrainFetchFailure(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 4)
	var rec recorder

	key, err := c.Read(3, make([]byte, 1), 0, rec.done, nil)
	r.NoError(err)
	k.finish(key, 1)
	k.getErrs = []error{errFake}

	n, err := c.Drain(context.Background())
	r.ErrorIs(err, errFake)
	r.Zero(n)
	r.Empty(rec.calls)
	r.Equal(1, c.Active())

	n, err = c.Drain(context.Background())
	r.NoError(err)
	r.Equal(1, n)
	r.Len(rec.calls, 1)
	r.Zero(c.Active())
}

func TestDrainCallbackPanic(t *testing.T) {
	r := require.New(t)

	k := newFakeKernel()
	waits := 0
	waiter := WaiterFunc(func(context.Context, int) error {
		waits++
		return nil
	})
	c := newContext(4, k, k.note, WithWaiter(waiter))
	var rec recorder

	boom := func(int64, any) { panic("boom") }
	first, err := c.Write(3, []byte("a"), 0, boom, nil)
	r.NoError(err)
	second, err := c.Write(3, []byte("b"), 1, rec.done, "second")
	r.NoError(err)
	third, err := c.Write(3, []byte("c"), 2, rec.done, "third")
	r.NoError(err)
	k.finish(first, 1)
	k.finish(second, 1)
	k.finish(third, 1)

	r.PanicsWithValue("boom", func() { _, _ = c.Drain(context.Background()) })
	r.Equal(2, c.Active())
	requireBalanced(t, c)
	r.Equal(1, waits)

	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(2, n)
	r.Equal(1, waits)
	r.Equal(1, rec.count("second"))
	r.Equal(1, rec.count("third"))
	r.Equal(0, c.Active())
}

func TestDrainCallbackPanicMidBatch(t *testing.T) {
	r := require.New(t)

	k := newFakeKernel()
	waits := 0
	waiter := WaiterFunc(func(context.Context, int) error {
		waits++
		return nil
	})
	c := newContext(4, k, k.note, WithWaiter(waiter), WithBatchSize(1))
	var rec recorder

	boom := func(int64, any) { panic("boom") }
	first, err := c.Write(3, []byte("a"), 0, boom, nil)
	r.NoError(err)
	second, err := c.Write(3, []byte("b"), 1, rec.done, "second")
	r.NoError(err)
	third, err := c.Write(3, []byte("c"), 2, rec.done, "third")
	r.NoError(err)
	k.finish(first, 1)
	k.finish(second, 1)
	k.finish(third, 1)

	r.PanicsWithValue("boom", func() { _, _ = c.Drain(context.Background()) })
	r.Equal(2, c.Active())
	r.Len(k.ready, 2)
	r.Zero(k.note.count)

	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(2, n)
	r.Equal(1, waits)
	r.Equal([]int{1, 1, 1}, k.batchSeen)
	r.Equal(1, rec.count("second"))
	r.Equal(1, rec.count("third"))
	r.Zero(c.Active())
	requireBalanced(t, c)

	r.NoError(c.Close())
	r.Len(rec.calls, 2)
}

func TestDrainNested(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 4, WithBatchSize(1))
	var rec recorder
	inner := -1

	first, err := c.Write(3, []byte("a"), 0, func(res int64, data any) {
		rec.done(res, data)
		n, err := c.Drain(context.Background())
		r.NoError(err)
		inner = n
	}, "first")
	r.NoError(err)
	second, err := c.Write(3, []byte("b"), 1, rec.done, "second")
	r.NoError(err)
	third, err := c.Write(3, []byte("c"), 2, rec.done, "third")
	r.NoError(err)
	k.finish(first, 1)
	k.finish(second, 1)
	k.finish(third, 1)

	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(2, inner)
	r.Equal(1, n)
	for _, data := range []string{"first", "second", "third"} {
		r.Equal(1, rec.count(data))
	}
	r.Zero(c.Active())
	r.Empty(k.ready)
}

func TestCallbackResubmits(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 1)
	var rec recorder
	var follow Key

	_, err := c.Write(3, []byte("a"), 0, func(res int64, data any) {
		rec.done(res, data)
		var err error
		follow, err = c.Fdatasync(3, rec.done, "sync")
		r.NoError(err)
	}, "write")
	r.NoError(err)

	k.finishAll(1)
	n, err := c.Drain(context.Background())
	r.NoError(err)
	r.Equal(1, n)
	r.Equal(1, c.Active())
	r.Equal(0, follow.Index())
	r.Equal(uint32(2), follow.Generation())

	k.finishAll(0)
	n, err = c.Drain(context.Background())
	r.NoError(err)
	r.Equal(1, n)
	r.Equal(1, rec.count("write"))
	r.Equal(1, rec.count("sync"))
}

func TestSlotReuse(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 3)
	var rec recorder

	a, err := c.Fsync(3, rec.done, nil)
	r.NoError(err)
	b, err := c.Fsync(3, rec.done, nil)
	r.NoError(err)
	r.NotEqual(a.Index(), b.Index())

	k.finish(b, 0)
	_, err = c.Drain(context.Background())
	r.NoError(err)

	again, err := c.Fsync(3, rec.done, nil)
	r.NoError(err)
	r.Equal(b.Index(), again.Index())
	r.NotEqual(b, again)
}

func TestSeqWraps(t *testing.T) {
	r := require.New(t)

	c, _ := newTestContext(t, 2)
	c.seq = seqMask
	var rec recorder

	_, err := c.Fsync(3, rec.done, nil)
	r.NoError(err)
	r.Equal(int64(0), c.Seq())
	_, err = c.Fsync(3, rec.done, nil)
	r.NoError(err)
	r.Equal(int64(1), c.Seq())
}

func TestClose(t *testing.T) {
	r := require.New(t)

	k := newFakeKernel()
	waiter := WaiterFunc(func(context.Context, int) error {
		k.finishAll(0)
		return nil
	})
	c := newContext(4, k, k.note, WithWaiter(waiter))
	var rec recorder

	_, err := c.Fsync(3, rec.done, "a")
	r.NoError(err)
	_, err = c.Fdatasync(3, rec.done, "b")
	r.NoError(err)

	r.NoError(c.Close())
	r.Equal(1, rec.count("a"))
	r.Equal(1, rec.count("b"))
	r.True(k.destroyed)
	r.True(k.note.closed)

	r.NoError(c.Close())
	r.Len(rec.calls, 2)

	_, err = c.Fsync(3, rec.done, nil)
	r.ErrorIs(err, ErrClosed)
	_, err = c.Drain(context.Background())
	r.ErrorIs(err, ErrClosed)
	r.ErrorIs(c.Cancel(makeKey(0, 1)), ErrClosed)
}

func TestCloseIdle(t *testing.T) {
	r := require.New(t)

	k := newFakeKernel()
	waiter := WaiterFunc(func(context.Context, int) error {
		r.Fail("close of an idle context must not wait")
		return nil
	})
	c := newContext(4, k, k.note, WithWaiter(waiter))
	var rec recorder

	key, err := c.Fsync(3, rec.done, nil)
	r.NoError(err)
	k.finish(key, 0)
	c.waiter = readyWaiter
	_, err = c.Drain(context.Background())
	r.NoError(err)
	r.Len(rec.calls, 1)

	c.waiter = waiter
	r.NoError(c.Close())
	r.NoError(c.Close())
	r.Len(rec.calls, 1)
}

func TestShutdownDrainFailure(t *testing.T) {
	r := require.New(t)

	c, k := newTestContext(t, 4)
	var rec recorder

	_, err := c.Fsync(3, rec.done, nil)
	r.NoError(err)
	k.note.readErr = errFake

	r.NoError(c.Close())
	r.Empty(rec.calls)
	r.True(k.destroyed)
}

func TestShutdownContext(t *testing.T) {
	r := require.New(t)

	k := newFakeKernel()
	waiter := WaiterFunc(func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c := newContext(4, k, k.note, WithWaiter(waiter))
	var rec recorder
	buf := NewBuffer(8)

	_, err := c.ReadBuffer(3, buf, 0, rec.done, nil)
	r.NoError(err)
	r.True(buf.Busy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.NoError(c.Shutdown(ctx))
	r.Empty(rec.calls)
	r.True(k.destroyed)
	r.False(buf.Busy())
}
