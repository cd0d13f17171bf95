package task

// WaitGroup waits for a collection of operations to finish. Unlike
// Task.Wait it is not tied to parent/child relationships.
type WaitGroup struct {
	noCopy noCopy
	v      int32 // outstanding operations
	w      uint32
	sema   sema
}

// Add adds delta to the counter. When the counter reaches zero every
// waiting task is resumed. A negative counter panics.
func (wg *WaitGroup) Add(delta int) {
	wg.v += int32(delta)

	if wg.v < 0 {
		panic("task: negative WaitGroup counter")
	}

	if wg.v > 0 {
		return
	}

	for ; wg.w != 0; wg.w-- {
		wg.sema.release()
	}
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait suspends task until the counter is zero.
func (wg *WaitGroup) Wait(task *Task) {
	if wg.v == 0 {
		return
	}

	wg.w++
	wg.sema.acquire(task)
}
