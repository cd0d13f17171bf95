package aio

// Write submits a write of p to fd at off.
func (c *Context) Write(fd int, p []byte, off int64, done CompletionFunc, data any) (Key, error) {
	return c.Submit(Op{Code: OpWrite, Fd: fd, Buf: p, Offset: off}, done, data)
}

// Writev submits a gathered write of iov to fd at off.
func (c *Context) Writev(fd int, iov [][]byte, off int64, done CompletionFunc, data any) (Key, error) {
	return c.Submit(Op{Code: OpWritev, Fd: fd, Vec: iov, Offset: off}, done, data)
}

// Read submits a read from fd at off into p.
func (c *Context) Read(fd int, p []byte, off int64, done CompletionFunc, data any) (Key, error) {
	return c.Submit(Op{Code: OpRead, Fd: fd, Buf: p, Offset: off}, done, data)
}

// Readv submits a scattered read from fd at off into iov.
func (c *Context) Readv(fd int, iov [][]byte, off int64, done CompletionFunc, data any) (Key, error) {
	return c.Submit(Op{Code: OpReadv, Fd: fd, Vec: iov, Offset: off}, done, data)
}

// Fsync submits an fsync of fd.
func (c *Context) Fsync(fd int, done CompletionFunc, data any) (Key, error) {
	return c.Submit(Op{Code: OpFsync, Fd: fd}, done, data)
}

// Fdatasync submits an fdatasync of fd.
func (c *Context) Fdatasync(fd int, done CompletionFunc, data any) (Key, error) {
	return c.Submit(Op{Code: OpFdatasync, Fd: fd}, done, data)
}

// ReadBuffer submits a read into b. b stays leased, and unreadable,
// until done runs.
func (c *Context) ReadBuffer(fd int, b *Buffer, off int64, done CompletionFunc, data any) (Key, error) {
	return c.Submit(Op{Code: OpRead, Fd: fd, Buffer: b, Offset: off}, done, data)
}

// WriteBuffer submits a write of b. b stays leased until done runs.
func (c *Context) WriteBuffer(fd int, b *Buffer, off int64, done CompletionFunc, data any) (Key, error) {
	return c.Submit(Op{Code: OpWrite, Fd: fd, Buffer: b, Offset: off}, done, data)
}
