package snowflake

import "testing"

func TestResolveNode(t *testing.T) {
	t.Run("InRange", func(t *testing.T) {
		for _, n := range []int64{0, 1, 5, 512, MaxNodeID} {
			if got := ResolveNode(n); got != n {
				t.Errorf("ResolveNode(%d) = %d, want unchanged", n, got)
			}
		}
	})
	t.Run("Overflow", func(t *testing.T) {
		for _, n := range []int64{MaxNodeID + 1, 1023, 1024, 1 << 40} {
			for i := 0; i < 100; i++ {
				got := ResolveNode(n)
				if got < 0 || got > MaxNodeID {
					t.Fatalf("ResolveNode(%d) = %d, out of [0, %d]", n, got, MaxNodeID)
				}
			}
		}
	})
	t.Run("Negative", func(t *testing.T) {
		if got := ResolveNode(NoNode); got != NoNode {
			t.Errorf("ResolveNode(NoNode) = %d, want %d", got, NoNode)
		}
	})
}

func TestLayoutFor(t *testing.T) {
	if LayoutFor(0) != StandardLayout {
		t.Error("LayoutFor(0) != StandardLayout")
	}
	if LayoutFor(NoNode) != NoNodeLayout {
		t.Error("LayoutFor(NoNode) != NoNodeLayout")
	}
}
