package task

import "github.com/gammazero/deque"

// sema is a FIFO of tasks suspended until another task hands them
// control.
type sema struct {
	noCopy noCopy
	w      deque.Deque[*Task]
}

// acquire suspends t until a release picks it.
func (s *sema) acquire(t *Task) {
	s.w.PushBack(t)
	t.norun = true
	t.suspend()
}

// release resumes the longest waiting task, if there is one. The
// woken task runs until it next suspends before release returns.
func (s *sema) release() {
	if s.w.Len() == 0 {
		return
	}

	task := s.w.PopFront()
	task.norun = false
	task.run()
}

func (s *sema) len() int {
	return s.w.Len()
}
