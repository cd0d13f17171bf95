package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/trace"

	"github.com/eapache/queue"
	"github.com/gammazero/deque"
	"github.com/rs/zerolog"
	"github.com/webriots/aio"
)

var (
	// ErrStalled is returned by Run when tasks remain suspended but no
	// I/O is outstanding to resume them, e.g. a Mutex deadlock.
	ErrStalled = errors.New("task: tasks suspended with no pending I/O")
	// ErrRunning is returned by a nested or concurrent call to Run.
	ErrRunning = errors.New("task: scheduler already running")
)

// Engine submits operations and dispatches their completions.
// *aio.Context implements it.
type Engine interface {
	Submit(op aio.Op, done aio.CompletionFunc, data any) (aio.Key, error)
	Drain(ctx context.Context) (int, error)
}

// Scheduler drives tasks over an Engine. It holds the engine
// exclusively while Run executes.
type Scheduler struct {
	engine   Engine
	pending  *queue.Queue // *request awaiting submission
	ready    deque.Deque[*request]
	tasks    map[*Task]struct{}
	flights  *singleFlight
	log      zerolog.Logger
	inflight int
	epoch    uint64
	running  bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger. The default discards
// everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// New returns a Scheduler that performs I/O through engine.
func New(engine Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine:  engine,
		pending: queue.New(),
		tasks:   make(map[*Task]struct{}),
		flights: newSingleFlight(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes fn as the root task and returns once it and every task
// it started have finished. It returns early if draining the engine
// fails, if ctx is done while tasks wait on I/O, or if tasks stall.
// Operations still in flight when Run returns early stay owned by the
// engine; their results are discarded.
func (s *Scheduler) Run(ctx context.Context, fn func(context.Context, *Task)) error {
	if s.running {
		return ErrRunning
	}
	s.running = true
	s.epoch++
	defer func() {
		s.running = false
		s.abort()
	}()

	ctx, tracer := trace.NewTask(ctx, taskTraceTaskType)
	defer tracer.End()

	root := newTask(ctx, fn, nil, s)
	trace.Log(ctx, taskTraceCategory, "LOOP")
	root.start()

	for !root.done {
		if s.pending.Length() == 0 && s.ready.Len() == 0 && s.inflight == 0 {
			s.log.Warn().Int("tasks", len(s.tasks)).Msg("task scheduler stalled")
			return ErrStalled
		}

		trace.Logf(ctx, taskTraceCategory, "LOOP IO_BATCH %v IO_PENDING %v", s.pending.Length(), s.inflight)
		s.submit()

		if s.ready.Len() == 0 && s.inflight > 0 {
			n, err := s.engine.Drain(ctx)
			if err != nil {
				return fmt.Errorf("task: drain: %w", err)
			}
			if n == 0 && ctx.Err() != nil {
				return context.Cause(ctx)
			}
		}

		s.wake()
	}

	trace.Log(ctx, taskTraceCategory, "LOOP DONE")
	return nil
}

func (s *Scheduler) enqueue(req *request) {
	req.epoch = s.epoch
	s.pending.Add(req)
}

// submit hands every queued request to the engine. Rejected requests
// are resumed with the submission error.
func (s *Scheduler) submit() {
	for s.pending.Length() > 0 {
		req := s.pending.Remove().(*request)
		if _, err := s.engine.Submit(req.op, s.complete, req); err != nil {
			s.log.Debug().Err(err).Stringer("op", req.op.Code).Int("fd", req.op.Fd).Msg("task io rejected")
			req.err = err
			s.ready.PushBack(req)
			continue
		}
		s.inflight++
	}
}

// complete is the engine callback for every request.
func (s *Scheduler) complete(res int64, data any) {
	req := data.(*request)
	if req.epoch != s.epoch || !s.running {
		return
	}
	req.res = res
	s.inflight--
	s.ready.PushBack(req)
}

// wake resumes the task behind every completed request.
func (s *Scheduler) wake() {
	for s.ready.Len() > 0 {
		req := s.ready.PopFront()
		req.task.Log("IO RESP")
		req.task.norun = false
		req.task.run()
	}
}

// abort cancels any task left suspended and forgets queued work.
func (s *Scheduler) abort() {
	for t := range s.tasks {
		t.cancel()
	}
	clear(s.tasks)
	for s.pending.Length() > 0 {
		s.pending.Remove()
	}
	s.ready.Clear()
	s.inflight = 0
	s.flights = newSingleFlight()
}
