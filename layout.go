package snowflake

import (
	"fmt"
	"time"
)

// Epoch is the reference instant, in Unix milliseconds, subtracted from
// every timestamp before it is packed.
const Epoch int64 = 1514736000000

const (
	TimestampBits    = 41
	NodeBits         = 10
	ReservedNodeBits = 2
	SequenceBits     = 12

	// MaxNodeID is the largest node id a generator embeds.
	MaxNodeID int64 = 1<<NodeBits - 1<<ReservedNodeBits
	// MaxSequence is the last sequence value minted within one millisecond.
	MaxSequence uint64 = 1<<SequenceBits - 1
)

// Layout describes how (timestamp, node, sequence) share the 63 usable bits.
type Layout struct {
	NodeBits     uint8
	SequenceBits uint8
}

var (
	// StandardLayout is [41 bit ms][10 bit node][12 bit sequence].
	StandardLayout = Layout{NodeBits: NodeBits, SequenceBits: SequenceBits}

	// NoNodeLayout is [54 bit ms][10 bit sequence], used by generators
	// created with NoNode.
	NoNodeLayout = Layout{NodeBits: 0, SequenceBits: 10}
)

// ParseLayout maps "standard" (or "") and "nonode" to their layouts.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "standard":
		return StandardLayout, nil
	case "nonode":
		return NoNodeLayout, nil
	}
	return Layout{}, fmt.Errorf("snowflake: unknown layout %q", s)
}

func (l Layout) String() string {
	if l == NoNodeLayout {
		return "nonode"
	}
	if l == StandardLayout {
		return "standard"
	}
	return fmt.Sprintf("node_bits=%d seq_bits=%d", l.NodeBits, l.SequenceBits)
}

func (l Layout) nodeShift() uint8 { return l.SequenceBits }
func (l Layout) timeShift() uint8 { return l.NodeBits + l.SequenceBits }
func (l Layout) nodeMask() int64  { return 1<<l.NodeBits - 1 }

// MaxSequence is the sequence mask for this layout.
func (l Layout) MaxSequence() uint64 { return 1<<l.SequenceBits - 1 }

// Pack builds an ID from an epoch-relative millisecond count, a node id and
// a sequence number. Node and sequence are masked to their field widths.
func (l Layout) Pack(ms int64, node int64, seq uint64) ID {
	return ID(ms<<l.timeShift() |
		(node&l.nodeMask())<<l.nodeShift() |
		int64(seq&l.MaxSequence()))
}

// Millis returns the Unix millisecond timestamp carried by id.
func (l Layout) Millis(id ID) int64 {
	return int64(id)>>l.timeShift() + Epoch
}

func (l Layout) Timestamp(id ID) time.Time {
	return time.UnixMilli(l.Millis(id))
}

func (l Layout) Node(id ID) int64 {
	return int64(id) >> l.nodeShift() & l.nodeMask()
}

func (l Layout) Sequence(id ID) int64 {
	return int64(id) & int64(l.MaxSequence())
}
