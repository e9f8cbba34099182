package snowflake

import (
	"errors"
	"io"
	"log/slog"
)

// Generator mints IDs for one node. It is safe for concurrent use.
type Generator struct {
	node    int64
	backend string
	impl    Provider
	logger  *slog.Logger
	metrics *Metrics
}

var _ Provider = (*Generator)(nil)

// NewGenerator resolves node (see ResolveNode) and chooses, once, between the
// configured backends and the native algorithm. It never fails: a backend
// that cannot be opened is logged and skipped.
func NewGenerator(node int64, opts ...Option) *Generator {
	o := newOptions(opts)
	node = ResolveNode(node)

	g := &Generator{
		node:    node,
		logger:  o.logger,
		metrics: o.metrics,
	}

	settings := Settings{NodeID: node, Epoch: Epoch}
	for _, b := range o.backends {
		p, err := b.Open(settings)
		if err != nil {
			g.logger.Warn("backend unavailable", "backend", b.Name(), "err", err)
			continue
		}
		g.impl, g.backend = p, b.Name()
		break
	}
	if g.impl == nil {
		g.impl = &engine{
			node:    node,
			layout:  LayoutFor(node),
			state:   o.state,
			clock:   o.clock,
			logger:  o.logger,
			metrics: o.metrics,
		}
		g.backend = NativeBackend
	}

	g.logger.Debug("generator ready", "node", node, "backend", g.backend)
	return g
}

// Node returns the resolved node id.
func (g *Generator) Node() int64 {
	return g.node
}

// Backend names the implementation serving Create.
func (g *Generator) Backend() string {
	return g.backend
}

// Create mints the next ID. It fails with a *ClockRegressionError when the
// clock reads earlier than the previous mint, and with an error wrapping
// ErrLockUnavailable when the critical section cannot be entered. Any other
// error comes from the selected backend.
func (g *Generator) Create() (ID, error) {
	id, err := g.impl.Create()
	if err != nil {
		var regression *ClockRegressionError
		switch {
		case errors.As(err, &regression):
			g.metrics.clockRegression()
			g.logger.Warn("clock regression", "backend", g.backend,
				"last", regression.Last, "now", regression.Now)
		case errors.Is(err, ErrLockUnavailable):
			g.metrics.lockFailure()
			g.logger.Error("mint failed", "backend", g.backend, "err", err)
		default:
			g.metrics.backendFailure(g.backend)
			g.logger.Error("mint failed", "backend", g.backend, "err", err)
		}
		return Nil, err
	}
	g.metrics.mint(g.backend)
	return id, nil
}

// Close releases resources held by the selected backend, if any.
func (g *Generator) Close() error {
	if c, ok := g.impl.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// engine is the native mint algorithm.
type engine struct {
	node    int64
	layout  Layout
	state   State
	clock   Clock
	logger  *slog.Logger
	metrics *Metrics
}

func (e *engine) Create() (ID, error) {
	g, err := acquire(e.state, e.logger)
	if err != nil {
		return Nil, err
	}
	defer g.release()

	last := e.state.LastTimestamp()
	now := e.clock.Now()
	if now < last {
		return Nil, &ClockRegressionError{Last: last, Now: now}
	}

	var seq uint64
	if now == last {
		seq = e.state.IncrSequence()
		if seq > e.layout.MaxSequence() {
			// Sequence exhausted for this millisecond.
			e.state.ResetSequence()
			seq = 0
			e.metrics.sequenceExhausted()
			now = waitPast(e.clock, last)
		}
	} else {
		e.state.ResetSequence()
	}
	e.state.SetLastTimestamp(now)

	return e.layout.Pack(now-Epoch, e.node, seq), nil
}
