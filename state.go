package snowflake

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the mutable (last timestamp, sequence) pair shared by every
// caller of a generator, together with the lock that serializes them.
//
// Lock must exclude all holders of the same state, including holders in
// other processes when the state lives in shared memory. The accessors are
// only called between Lock and Unlock.
type State interface {
	Lock() error
	Unlock() error

	LastTimestamp() int64
	SetLastTimestamp(ms int64)

	// IncrSequence atomically increments the sequence and returns the new value.
	IncrSequence() uint64
	ResetSequence()
	Sequence() uint64
}

// MemoryState is a State visible to one process only.
type MemoryState struct {
	mu   sync.Mutex
	last atomic.Int64
	seq  atomic.Uint64
}

var _ State = (*MemoryState)(nil)

func NewMemoryState() *MemoryState {
	return &MemoryState{}
}

func (s *MemoryState) Lock() error {
	s.mu.Lock()
	return nil
}

func (s *MemoryState) Unlock() error {
	s.mu.Unlock()
	return nil
}

func (s *MemoryState) LastTimestamp() int64      { return s.last.Load() }
func (s *MemoryState) SetLastTimestamp(ms int64) { s.last.Store(ms) }
func (s *MemoryState) IncrSequence() uint64      { return s.seq.Add(1) }
func (s *MemoryState) ResetSequence()            { s.seq.Store(0) }
func (s *MemoryState) Sequence() uint64          { return s.seq.Load() }

// guard holds a State's lock for the duration of one critical section.
type guard struct {
	state  State
	logger *slog.Logger
}

func acquire(s State, logger *slog.Logger) (guard, error) {
	if err := s.Lock(); err != nil {
		return guard{}, fmt.Errorf("%w: %w", ErrLockUnavailable, err)
	}
	return guard{state: s, logger: logger}, nil
}

func (g guard) release() {
	if err := g.state.Unlock(); err != nil {
		g.logger.Error("release critical section", "err", err)
	}
}
