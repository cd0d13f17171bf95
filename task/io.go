package task

import "github.com/webriots/aio"

// request is one I/O operation a suspended task is waiting on.
type request struct {
	task  *Task
	op    aio.Op
	res   int64
	err   error
	epoch uint64
}

func (r *request) result() (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if err := aio.ResultError(r.res); err != nil {
		return 0, err
	}
	return int(r.res), nil
}

// IO submits op on behalf of t and suspends t until it completes. It
// returns the byte count, or zero for sync operations. Negative kernel
// results are returned as errors.
func (t *Task) IO(op aio.Op) (int, error) {
	t.Logf("IO %s fd=%d off=%d", op.Code, op.Fd, op.Offset)

	req := &request{task: t, op: op}
	t.sched.enqueue(req)
	t.norun = true
	t.suspend()

	return req.result()
}

// Read reads len(p) bytes from fd at off.
func (t *Task) Read(fd int, p []byte, off int64) (int, error) {
	return t.IO(aio.Op{Code: aio.OpRead, Fd: fd, Buf: p, Offset: off})
}

// Write writes p to fd at off.
func (t *Task) Write(fd int, p []byte, off int64) (int, error) {
	return t.IO(aio.Op{Code: aio.OpWrite, Fd: fd, Buf: p, Offset: off})
}

// Readv scatters a read from fd at off across iov.
func (t *Task) Readv(fd int, iov [][]byte, off int64) (int, error) {
	return t.IO(aio.Op{Code: aio.OpReadv, Fd: fd, Vec: iov, Offset: off})
}

// Writev gathers a write of iov to fd at off.
func (t *Task) Writev(fd int, iov [][]byte, off int64) (int, error) {
	return t.IO(aio.Op{Code: aio.OpWritev, Fd: fd, Vec: iov, Offset: off})
}

// Fsync flushes fd's data and metadata.
func (t *Task) Fsync(fd int) error {
	_, err := t.IO(aio.Op{Code: aio.OpFsync, Fd: fd})
	return err
}

// Fdatasync flushes fd's data.
func (t *Task) Fdatasync(fd int) error {
	_, err := t.IO(aio.Op{Code: aio.OpFdatasync, Fd: fd})
	return err
}
