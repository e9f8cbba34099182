// Package shm keeps generator state in a memory-mapped file so that every
// process mapping the same path shares one (last timestamp, sequence) pair
// and one critical section.
//
// The file is a single page:
//
//	offset  size  field
//	0       8     magic "SNOWFLK1"
//	8       8     epoch (Unix ms)
//	16      1     node bits
//	17      1     sequence bits
//	24      8     last timestamp (Unix ms)
//	32      8     sequence
//
// The bit widths are those of the layout the file was created for; a file
// is only opened for the same layout.
//
// Mutual exclusion across processes uses flock(2) on the file. flock is
// held per open file description, so goroutines sharing one *State are
// additionally serialized by a mutex.
package shm
