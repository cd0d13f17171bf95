package task

// flight is one in-progress call shared by every task that asked for
// the same key while it ran.
type flight struct {
	wg   WaitGroup
	val  any
	err  error
	dups int
}

// singleFlight coalesces concurrent calls that share a key.
type singleFlight struct {
	m map[any]*flight
}

func newSingleFlight() *singleFlight {
	return &singleFlight{m: make(map[any]*flight)}
}

func (g *singleFlight) do(task *Task, key any, fn func() (any, error)) (v any, err error, shared bool) {
	if c, ok := g.m[key]; ok {
		c.dups++
		c.wg.Wait(task)
		return c.val, c.err, true
	}

	c := new(flight)
	c.wg.Add(1)
	g.m[key] = c

	defer func() {
		if g.m[key] == c {
			delete(g.m, key)
		}
		c.wg.Done()
	}()

	c.val, c.err = fn()
	return c.val, c.err, c.dups > 0
}

// Do runs fn unless another task is already running fn for key, in
// which case t waits for that call and shares its result. shared
// reports whether the result went to more than one task.
func (t *Task) Do(key any, fn func() (any, error)) (v any, err error, shared bool) {
	t.Logf("DO %v", key)
	return t.sched.flights.do(t, key, fn)
}

type readKey struct {
	fd  int
	off int64
	n   int
}

// ReadShared reads n bytes from fd at off. Concurrent ReadShared calls
// for the same range are served by a single kernel read and receive
// the same slice, which must be treated as read-only.
func (t *Task) ReadShared(fd int, off int64, n int) ([]byte, error) {
	v, err, _ := t.Do(readKey{fd: fd, off: off, n: n}, func() (any, error) {
		p := make([]byte, n)
		m, err := t.Read(fd, p, off)
		return p[:m], err
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
