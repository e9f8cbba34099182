package snowflake

import "log/slog"

// Option configures a Generator.
type Option func(*options)

type options struct {
	state    State
	clock    Clock
	backends []Backend
	logger   *slog.Logger
	metrics  *Metrics
}

func newOptions(opts []Option) options {
	o := options{
		clock:  SystemClock,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.state == nil {
		o.state = NewMemoryState()
	}
	o.logger = o.logger.With("component", "snowflake")
	return o
}

// WithState shares st between every generator built with it. Pass a
// shm.State to extend uniqueness across processes.
func WithState(st State) Option {
	return func(o *options) {
		o.state = st
	}
}

// WithClock replaces SystemClock.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithBackend offers an alternate implementation. Backends are probed in the
// order given; the native algorithm is used when none opens.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backends = append(o.backends, b)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
