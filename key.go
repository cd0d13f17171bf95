package aio

import "strconv"

// Key identifies one submitted operation. The low 32 bits hold the
// slot index and the high 32 bits the slot generation, which changes
// every time the slot is reused. The zero Key never identifies an
// operation.
type Key uint64

func makeKey(index int, gen uint32) Key {
	return Key(uint64(gen)<<32 | uint64(uint32(index)))
}

// Index returns the slot index, a small non-negative integer below the
// context capacity.
func (k Key) Index() int {
	return int(uint32(k))
}

// Generation returns the slot generation the key was issued for.
func (k Key) Generation() uint32 {
	return uint32(k >> 32)
}

func (k Key) String() string {
	return strconv.Itoa(k.Index()) + "#" + strconv.FormatUint(uint64(k.Generation()), 10)
}
