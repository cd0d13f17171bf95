package task

import (
	"context"
)

// taskContextKey is the context key under which a Task is stored.
type taskContextKey struct{}

func withTaskContext(ctx context.Context, task *Task) context.Context {
	return context.WithValue(ctx, taskContextKey{}, task)
}

// TaskFromContext returns the task running with ctx, if any.
func TaskFromContext(ctx context.Context) (*Task, bool) {
	val, ok := ctx.Value(taskContextKey{}).(*Task)
	return val, ok
}

// MustTaskFromContext is TaskFromContext for callers that know ctx
// belongs to a task. It panics otherwise.
func MustTaskFromContext(ctx context.Context) *Task {
	val, ok := ctx.Value(taskContextKey{}).(*Task)
	if !ok {
		panic("task: task not found in context")
	}
	return val
}
