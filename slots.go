package aio

import "github.com/gammazero/deque"

// slot tracks one in-flight operation. A slot is either free (its
// index sits in the pool's free list) or active (exactly one pending
// kernel operation and a callback to run).
type slot struct {
	cb     iocb
	done   CompletionFunc
	data   any
	buf    []byte   // retained for the kernel
	vec    [][]byte // retained for the kernel
	iov    []iovec  // reused across operations
	lease  *Buffer
	seq    int64
	gen    uint32
	code   Opcode
	active bool
}

// reset drops every caller reference held by the slot.
func (s *slot) reset() {
	if s.lease != nil {
		s.lease.release()
		s.lease = nil
	}
	s.done = nil
	s.data = nil
	s.buf = nil
	s.vec = nil
	clear(s.iov)
	s.iov = s.iov[:0]
	s.active = false
}

// pool is a fixed array of slots plus a free list used as a stack,
// so the most recently released slot is handed out first.
type pool struct {
	slots []slot
	free  deque.Deque[int]
}

func newPool(capacity int) *pool {
	p := &pool{slots: make([]slot, capacity)}
	for i := capacity - 1; i >= 0; i-- {
		p.free.PushBack(i)
	}
	return p
}

func (p *pool) cap() int {
	return len(p.slots)
}

func (p *pool) active() int {
	return len(p.slots) - p.free.Len()
}

func (p *pool) full() bool {
	return p.free.Len() == 0
}

// acquire pops a free slot, bumps its generation and returns its key.
// The pool must not be full.
func (p *pool) acquire() (Key, *slot) {
	i := p.free.PopBack()
	s := &p.slots[i]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.active = true
	return makeKey(i, s.gen), s
}

// release returns the slot at index i to the free list.
func (p *pool) release(i int) {
	p.slots[i].reset()
	p.free.PushBack(i)
}

// lookup resolves key to its active slot.
func (p *pool) lookup(key Key) (*slot, error) {
	i := key.Index()
	if i < 0 || i >= len(p.slots) {
		return nil, ErrInvalidKey
	}
	s := &p.slots[i]
	if !s.active || s.gen != key.Generation() {
		return nil, ErrStaleKey
	}
	return s, nil
}
