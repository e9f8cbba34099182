//go:build unix

package shm

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/paraglidehq/snowflake"
)

const (
	size = 4096

	offMagic    = 0
	offEpoch    = 8
	offNodeBits = 16
	offSeqBits  = 17
	offLast     = 24
	offSeq      = 32
)

var magic = [8]byte{'S', 'N', 'O', 'W', 'F', 'L', 'K', '1'}

var _ snowflake.State = (*State)(nil)

// State is a snowflake.State backed by a shared file mapping.
type State struct {
	path   string
	layout snowflake.Layout

	mu     sync.Mutex
	file   *os.File
	data   []byte
	closed bool

	last *int64
	seq  *uint64
}

// Open maps path for generators using snowflake.StandardLayout, creating
// and initializing it if needed. Every process that opens the same path
// shares state.
func Open(path string) (*State, error) {
	return OpenLayout(path, snowflake.StandardLayout)
}

// OpenLayout is Open for generators minting with l. The layout is recorded
// in the file header; opening it with a different layout fails with
// ErrLayoutMismatch.
func OpenLayout(path string, l snowflake.Layout) (*State, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	s, err := mapFile(path, f, l)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func mapFile(path string, f *os.File, l snowflake.Layout) (*State, error) {
	fd := int(f.Fd())

	// Hold the lock while sizing and initializing so that two processes
	// racing to create the file agree on the header.
	if err := flock(fd, unix.LOCK_EX); err != nil {
		return nil, fmt.Errorf("shm: lock %s: %w", path, err)
	}
	defer flock(fd, unix.LOCK_UN)

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}
	if fi.Size() < size {
		if err := f.Truncate(size); err != nil {
			return nil, fmt.Errorf("shm: truncate %s: %w", path, err)
		}
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	if err := checkHeader(data, l); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("%w: %s: %w", ErrLayoutMismatch, path, err)
	}

	return &State{
		path:   path,
		layout: l,
		file:   f,
		data:   data,
		last:   (*int64)(unsafe.Pointer(&data[offLast])),
		seq:    (*uint64)(unsafe.Pointer(&data[offSeq])),
	}, nil
}

// checkHeader initializes a zeroed header or validates an existing one.
func checkHeader(data []byte, l snowflake.Layout) error {
	var got [8]byte
	copy(got[:], data[offMagic:offEpoch])

	if got == ([8]byte{}) {
		binary.LittleEndian.PutUint64(data[offEpoch:], uint64(snowflake.Epoch))
		data[offNodeBits] = l.NodeBits
		data[offSeqBits] = l.SequenceBits
		copy(data[offMagic:], magic[:])
		return nil
	}

	if got != magic {
		return fmt.Errorf("bad magic %q", got[:])
	}
	if epoch := int64(binary.LittleEndian.Uint64(data[offEpoch:])); epoch != snowflake.Epoch {
		return fmt.Errorf("file epoch %d, want %d", epoch, snowflake.Epoch)
	}
	if file := (snowflake.Layout{NodeBits: data[offNodeBits], SequenceBits: data[offSeqBits]}); file != l {
		return fmt.Errorf("file layout %s, want %s", file, l)
	}
	return nil
}

// Path returns the mapped file's path.
func (s *State) Path() string {
	return s.path
}

// Lock enters the critical section shared by every process mapping the file.
// Layout returns the layout recorded in the file header.
func (s *State) Layout() snowflake.Layout {
	return s.layout
}

func (s *State) Lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := flock(int(s.file.Fd()), unix.LOCK_EX); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("shm: lock %s: %w", s.path, err)
	}
	return nil
}

func (s *State) Unlock() error {
	defer s.mu.Unlock()
	if err := flock(int(s.file.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("shm: unlock %s: %w", s.path, err)
	}
	return nil
}

func (s *State) LastTimestamp() int64      { return atomic.LoadInt64(s.last) }
func (s *State) SetLastTimestamp(ms int64) { atomic.StoreInt64(s.last, ms) }
func (s *State) IncrSequence() uint64      { return atomic.AddUint64(s.seq, 1) }
func (s *State) ResetSequence()            { atomic.StoreUint64(s.seq, 0) }
func (s *State) Sequence() uint64          { return atomic.LoadUint64(s.seq) }

// Close unmaps the file. The file itself, and therefore the shared state,
// is left in place for other processes.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.last, s.seq = nil, nil
	err := unix.Munmap(s.data)
	s.data = nil
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func flock(fd, how int) error {
	for {
		err := unix.Flock(fd, how)
		if err != unix.EINTR {
			return err
		}
	}
}
