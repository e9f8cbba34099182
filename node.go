package snowflake

import "math/rand/v2"

// NoNode selects NoNodeLayout: the generator packs no node field and uses a
// 10-bit sequence. Any negative node id has the same effect.
const NoNode int64 = -1

// ResolveNode maps a requested node id onto the id a generator will embed.
// Ids above MaxNodeID are replaced by a uniformly random legal id; all other
// values, negative ones included, are returned unchanged.
func ResolveNode(node int64) int64 {
	if node > MaxNodeID {
		return rand.Int64N(MaxNodeID + 1)
	}
	return node
}

// LayoutFor returns the layout a generator for node (after ResolveNode)
// mints with.
func LayoutFor(node int64) Layout {
	if node < 0 {
		return NoNodeLayout
	}
	return StandardLayout
}
