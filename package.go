// Package aio provides an asynchronous file I/O submission engine on
// top of Linux kernel AIO. A single goroutine drives many in-flight
// disk operations against open file descriptors without blocking,
// while the total number of outstanding operations is bounded by a
// fixed capacity.
//
// Key components:
//
//   - Context: The engine. It owns a fixed pool of request slots, a
//     kernel AIO queue and a single eventfd completion channel shared
//     by every operation it submits.
//
//   - Submit: Builds a kernel request from an Op and issues it. When
//     every slot is in use, Submit drains completions until a slot
//     frees up. Submission rate is throttled by completion rate, the
//     caller never sees a capacity error.
//
//   - Drain: Waits on the completion channel through the configured
//     Waiter, retrieves finished results in bounded batches and
//     invokes each operation's CompletionFunc exactly once.
//
//   - Cancel: Attempts to cancel one outstanding operation identified
//     by its Key. Keys are generation tagged, so a key whose slot has
//     since been reused is rejected instead of cancelling an
//     unrelated operation.
//
//   - Waiter: The only suspension point the engine does not implement
//     itself. It is injected so the engine composes with any event
//     loop. PollWaiter is the default.
//
//   - Buffer: A caller buffer that is leased to at most one pending
//     operation and cannot be read or resubmitted until that
//     operation completes.
//
// A Context is not safe for concurrent use. Submit, Drain, Cancel and
// Close must be called from one goroutine at a time, and completion
// callbacks run synchronously on that goroutine from within those
// calls.
package aio
