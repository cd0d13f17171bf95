// Package task runs cooperative, coroutine-like tasks that perform
// file I/O through an aio submission engine. Every task runs on the
// goroutine that called Scheduler.Run, so tasks never need locks to
// share state, yet any number of them can have I/O in flight at once.
//
// Key components:
//
//   - Scheduler: Owns the engine for the duration of Run. It submits
//     the I/O requested by suspended tasks, drains completions and
//     resumes each task with its result.
//
//   - Task: A unit of work. Read, Write, Readv, Writev, Fsync and
//     Fdatasync suspend the task until the operation completes. Tasks
//     can spawn child tasks with Go and wait for them with Wait; a
//     task is not finished until all of its children are.
//
//   - Engine: The submission engine interface. *aio.Context satisfies
//     it.
//
//   - Synchronization primitives: Mutex, WaitGroup and ErrGroup, plus
//     Do and ReadShared, which coalesce identical concurrent calls.
package task
