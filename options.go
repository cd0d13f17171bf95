package aio

import "github.com/rs/zerolog"

// DefaultBatchSize caps how many completions one io_getevents call
// retrieves.
const DefaultBatchSize = 32

type options struct {
	log    zerolog.Logger
	waiter Waiter
	batch  int
}

// Option configures a Context.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithWaiter sets the Waiter used by Drain. The default is a
// PollWaiter.
func WithWaiter(w Waiter) Option {
	return func(o *options) { o.waiter = w }
}

// WithBatchSize sets how many completions are fetched per kernel call.
// Values below one are ignored.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batch = n
		}
	}
}

func resolveOptions(opts []Option) options {
	o := options{
		log:   zerolog.Nop(),
		batch: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.waiter == nil {
		o.waiter = defaultWaiter()
	}
	return o
}
