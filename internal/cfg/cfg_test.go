package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirlean/internal/mir"
)

// whileBody builds
//
//	bb0: goto bb1
//	bb1: if c then bb2 else bb3
//	bb2: goto bb1
//	bb3: return
func whileBody() *mir.Body {
	b := mir.NewBuilder("f", mir.Unit())
	c := b.Var("c", mir.Bool())
	bb0, bb1, bb2, bb3 := b.Block(), b.Block(), b.Block(), b.Block()
	b.Goto(bb0, bb1)
	b.If(bb1, mir.Copy(mir.LocalPlace(c)), bb2, bb3)
	b.Goto(bb2, bb1)
	b.Return(bb3)
	return b.Build()
}

func TestBuildGraphWholeBody(t *testing.T) {
	g := BuildGraph(whileBody(), 0, nil)
	require.Equal(t, []mir.BlockID{0, 1, 2, 3}, g.Nodes)
	assert.Equal(t, []mir.BlockID{1}, g.Succ[0])
	assert.Equal(t, []mir.BlockID{2, 3}, g.Succ[1])
	assert.Empty(t, g.Back)
	assert.Empty(t, g.Exits)
}

func TestBuildGraphDropsEdgesLeavingRegionAndBackEdges(t *testing.T) {
	g := BuildGraph(whileBody(), 1, []mir.BlockID{1, 2})
	assert.Equal(t, []mir.BlockID{2}, g.Succ[1], "edge to bb3 leaves the region")
	assert.Empty(t, g.Succ[2], "edge back to the start is not part of the graph")
	assert.Equal(t, []mir.BlockID{2}, g.Back)
	assert.Equal(t, []mir.BlockID{3}, g.Exits)
	assert.False(t, g.Contains(3))
}

func TestFindLoopsWhile(t *testing.T) {
	loops := FindLoops(whileBody(), 0, nil)
	require.Equal(t, [][]mir.BlockID{{1, 2}}, loops)

	// Re-running on the loop with its header as start finds nothing nested.
	assert.Empty(t, FindLoops(whileBody(), 1, loops[0]))
}

func TestFindLoopsNested(t *testing.T) {
	// bb0 -> bb1 (outer header) -> bb2 (inner header) -> bb3 -> bb2
	// bb2 -> bb4 -> bb1, bb1 -> bb5 return
	b := mir.NewBuilder("nested", mir.Unit())
	c := b.Var("c", mir.Bool())
	cond := mir.Copy(mir.LocalPlace(c))
	bbs := make([]mir.BlockID, 6)
	for i := range bbs {
		bbs[i] = b.Block()
	}
	b.Goto(0, 1)
	b.If(1, cond, 2, 5)
	b.If(2, cond, 3, 4)
	b.Goto(3, 2)
	b.Goto(4, 1)
	b.Return(5)
	body := b.Build()

	outer := FindLoops(body, 0, nil)
	require.Equal(t, [][]mir.BlockID{{1, 2, 3, 4}}, outer)

	inner := FindLoops(body, 1, outer[0])
	require.Equal(t, [][]mir.BlockID{{2, 3}}, inner)

	nest := Nest(body, 0, nil, EntryOf(body))
	require.Len(t, nest, 1)
	assert.Equal(t, mir.BlockID(1), nest[0].Header)
	require.Len(t, nest[0].Inner, 1)
	assert.Equal(t, mir.BlockID(2), nest[0].Inner[0].Header)
	assert.Empty(t, nest[0].Inner[0].Inner)
}

func TestFindLoopsSelfLoop(t *testing.T) {
	b := mir.NewBuilder("spin", mir.Unit())
	c := b.Var("c", mir.Bool())
	bb0, bb1, bb2 := b.Block(), b.Block(), b.Block()
	b.Goto(bb0, bb1)
	b.If(bb1, mir.Copy(mir.LocalPlace(c)), bb1, bb2)
	b.Return(bb2)
	body := b.Build()

	loops := FindLoops(body, 0, nil)
	require.Equal(t, [][]mir.BlockID{{1}}, loops)

	// Inside the loop the self edge is a back edge to the header.
	g := BuildGraph(body, 1, loops[0])
	assert.Equal(t, []mir.BlockID{1}, g.Back)
	assert.Empty(t, g.Loops())
}

func TestFindLoopsIgnoresAcyclicSingletons(t *testing.T) {
	b := mir.NewBuilder("diamond", mir.Unit())
	c := b.Var("c", mir.Bool())
	bb0, bb1, bb2, bb3 := b.Block(), b.Block(), b.Block(), b.Block()
	b.If(bb0, mir.Copy(mir.LocalPlace(c)), bb1, bb2)
	b.Goto(bb1, bb3)
	b.Goto(bb2, bb3)
	b.Return(bb3)
	assert.Empty(t, FindLoops(b.Build(), 0, nil))
}
