//go:build !unix

package shm

import (
	"errors"

	"github.com/paraglidehq/snowflake"
)

// State is unavailable on this platform.
type State struct {
	snowflake.MemoryState
}

// Open always fails on platforms without mmap and flock.
func Open(path string) (*State, error) {
	return nil, errors.ErrUnsupported
}

func OpenLayout(path string, l snowflake.Layout) (*State, error) {
	return nil, errors.ErrUnsupported
}

func (s *State) Path() string             { return "" }
func (s *State) Layout() snowflake.Layout { return snowflake.StandardLayout }
func (s *State) Close() error             { return nil }
