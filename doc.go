// Package snowflake generates 64-bit, time-ordered identifiers that stay
// unique across every goroutine and every OS process sharing a node.
//
// # Layout
//
//	┌─────────┬─────────────────────┬────────────┬──────────────┐
//	│ 1 bit   │      41 bits        │  10 bits   │   12 bits    │
//	│ unused  │ ms since Epoch      │  node id   │  sequence    │
//	└─────────┴─────────────────────┴────────────┴──────────────┘
//
// Two of the ten node bits are held back for a future ID type tag, so legal
// node ids are 0 through MaxNodeID (1020).
//
// # Sharing state
//
// A Generator serializes minting through a State. MemoryState covers the
// goroutines of one process; the shm package maps the same state into a file
// so that separate processes configured with the same node id never mint
// the same value.
//
//	st, err := shm.Open("/run/myapp/snowflake.state")
//	if err != nil {
//	    return err
//	}
//	gen := snowflake.NewGenerator(7, snowflake.WithState(st))
//	id, err := gen.Create()
//
// An alternate implementation can be offered with WithBackend. It is probed
// once in NewGenerator and, when available, receives every Create call.
package snowflake
