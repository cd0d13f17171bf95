package task

import (
	"context"
	"fmt"
	"runtime/trace"
	"strings"

	"github.com/webriots/coro"
)

const (
	taskTraceTaskType   = "aio-task"
	taskTraceRegionType = "aio-region"
	taskTraceCategory   = "aio"
)

// Task is a cooperative unit of work run by a Scheduler.
type Task struct {
	ctx     context.Context
	suspend func() struct{}
	resume  func(struct{}) (struct{}, bool)
	cancel  func()
	sched   *Scheduler
	parent  *Task
	childn  int
	norun   bool // suspended on I/O or a primitive, not on children
	waiting bool // suspended in Wait
	done    bool
}

func newTask(
	ctx context.Context,
	fn func(context.Context, *Task),
	parent *Task,
	sched *Scheduler,
) *Task {
	task := &Task{
		parent: parent,
		sched:  sched,
	}
	if parent != nil {
		parent.childn++
	}
	task.ctx = withTaskContext(ctx, task)

	resume, cancel := coro.New(
		func(_ func(struct{}) struct{}, suspend func() struct{}) (z struct{}) {
			region := trace.StartRegion(task.ctx, taskTraceRegionType)

			defer func() {
				task.done = true
				delete(sched.tasks, task)
				if task.parent != nil {
					task.parent.childn--
				}
				region.End()
			}()

			task.suspend = suspend

			fn(task.ctx, task)
			task.Wait()

			return
		},
	)

	task.resume = resume
	task.cancel = cancel
	sched.tasks[task] = struct{}{}
	return task
}

// Context returns the task's context.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Go starts fn as a child task. The child runs until it first
// suspends before Go returns.
func (t *Task) Go(fn func(context.Context, *Task)) {
	t.goctx(t.ctx, fn)
}

func (t *Task) goctx(ctx context.Context, fn func(context.Context, *Task)) {
	child := newTask(ctx, fn, t, t.sched)
	child.Log("GO")
	child.start()
}

// Wait suspends t until every child task it started has finished.
func (t *Task) Wait() {
	t.Log("WAIT")

	for t.childn > 0 {
		t.waiting = true
		t.suspend()
		t.waiting = false
	}
}

// Group returns a new ErrGroup whose tasks are children of t.
func (t *Task) Group() *ErrGroup {
	return newErrGroup(t)
}

func (t *Task) start() {
	t.resume(struct{}{})
}

// run resumes a suspended task. If the task finishes, a parent
// blocked in Wait on its last child is resumed in turn.
func (t *Task) run() {
	t.Log("RUN")

	if _, ok := t.resume(struct{}{}); ok {
		return
	}

	p := t.parent
	if p == nil || p.norun || !p.waiting || p.childn > 0 {
		return
	}
	p.run()
}

// Log records msg as a runtime/trace log entry, prefixed with the
// task's path from the root.
func (t *Task) Log(msg string) {
	if trace.IsEnabled() {
		var sb strings.Builder
		taskpath(&sb, t)
		sb.WriteRune(' ')
		sb.WriteString(msg)
		trace.Log(t.ctx, taskTraceCategory, sb.String())
	}
}

// Logf is Log with formatting.
func (t *Task) Logf(format string, args ...any) {
	if trace.IsEnabled() {
		var sb strings.Builder
		taskpath(&sb, t)
		sb.WriteRune(' ')
		fmt.Fprintf(&sb, format, args...)
		trace.Log(t.ctx, taskTraceCategory, sb.String())
	}
}

func taskpath(sb *strings.Builder, t *Task) {
	if t == nil {
		return
	}
	taskpath(sb, t.parent)
	fmt.Fprintf(sb, "%p|", t)
}
