package shm

import "errors"

var (
	// ErrLayoutMismatch is returned by Open when the file was initialized
	// with a different epoch or bit layout.
	ErrLayoutMismatch = errors.New("shm: state file layout does not match")

	// ErrClosed is returned by Lock after Close.
	ErrClosed = errors.New("shm: state closed")
)
