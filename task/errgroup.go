package task

import "context"

// ErrGroup runs child tasks and collects the first error one of them
// returns. That error cancels the context shared by the group.
type ErrGroup struct {
	task   *Task                   // parent of every task in the group
	ctx    context.Context         // cancelled by the first error
	cancel context.CancelCauseFunc // cancels ctx with the first error
	wg     WaitGroup
	err    error
}

func newErrGroup(task *Task) *ErrGroup {
	ctx, cancel := context.WithCancelCause(task.ctx)
	return &ErrGroup{task: task, ctx: ctx, cancel: cancel}
}

// Go starts f as a child task of the group's parent.
func (g *ErrGroup) Go(f func(context.Context, *Task) error) {
	g.wg.Add(1)
	g.task.goctx(g.ctx, func(ctx context.Context, t *Task) {
		defer g.wg.Done()
		if err := f(ctx, t); err != nil && g.err == nil {
			g.err = err
			g.cancel(err)
		}
	})
}

// Wait suspends task until every task in the group has finished and
// returns the first error, if any.
func (g *ErrGroup) Wait(task *Task) error {
	g.wg.Wait(task)
	g.cancel(g.err)
	return g.err
}
