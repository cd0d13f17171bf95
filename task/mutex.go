package task

// Mutex serializes tasks, for instance a write and the fsync that
// must follow it. Ownership passes directly to the longest waiting
// task on Unlock.
type Mutex struct {
	noCopy noCopy
	owner  *Task
	sema   sema
}

// Lock acquires m for task, suspending it while another task holds m.
func (m *Mutex) Lock(task *Task) {
	if m.owner == nil {
		m.owner = task
		return
	}

	m.sema.acquire(task)
	m.owner = task
}

// Unlock releases m. It panics if m is not locked.
func (m *Mutex) Unlock() {
	if m.owner == nil {
		panic("task: unlock of unlocked Mutex")
	}
	m.owner = nil
	m.sema.release()
}

// WaitCount returns the number of tasks waiting to acquire m.
func (m *Mutex) WaitCount() int {
	return m.sema.len()
}
