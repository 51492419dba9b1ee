package region_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirlean/internal/mir"
	"mirlean/internal/region"
	"mirlean/internal/testkit"
)

// nestedBody builds
//
//	for i in 0..n { for j in 0..i { s += j } } return s
func nestedBody() *mir.Body {
	u32 := mir.Uint(32)
	b := mir.NewBuilder("nested", u32)
	n := b.Arg("n", u32)
	i := b.Var("i", u32)
	j := b.Var("j", u32)
	s := b.Var("s", u32)
	c := b.Temp(mir.Bool())
	one := mir.ConstOperand(mir.UintConst(1, 32))
	zero := mir.ConstOperand(mir.UintConst(0, 32))
	bb0, bb1, bb2, bb3, bb4, bb5, bb6 := b.Block(), b.Block(), b.Block(), b.Block(), b.Block(), b.Block(), b.Block()

	b.Assign(bb0, mir.LocalPlace(i), mir.Use(zero))
	b.Assign(bb0, mir.LocalPlace(s), mir.Use(zero))
	b.Goto(bb0, bb1)

	b.Assign(bb1, mir.LocalPlace(c), mir.Binary(mir.BinLt, mir.Copy(mir.LocalPlace(i)), mir.Copy(mir.LocalPlace(n))))
	b.If(bb1, mir.Copy(mir.LocalPlace(c)), bb2, bb6)

	b.Assign(bb2, mir.LocalPlace(j), mir.Use(zero))
	b.Goto(bb2, bb3)

	b.Assign(bb3, mir.LocalPlace(c), mir.Binary(mir.BinLt, mir.Copy(mir.LocalPlace(j)), mir.Copy(mir.LocalPlace(i))))
	b.If(bb3, mir.Copy(mir.LocalPlace(c)), bb4, bb5)

	b.Assign(bb4, mir.LocalPlace(s), mir.Binary(mir.BinAdd, mir.Copy(mir.LocalPlace(s)), mir.Copy(mir.LocalPlace(j))))
	b.Assign(bb4, mir.LocalPlace(j), mir.Binary(mir.BinAdd, mir.Copy(mir.LocalPlace(j)), one))
	b.Goto(bb4, bb3)

	b.Assign(bb5, mir.LocalPlace(i), mir.Binary(mir.BinAdd, mir.Copy(mir.LocalPlace(i)), one))
	b.Goto(bb5, bb1)

	b.Assign(bb6, mir.LocalPlace(mir.ReturnLocal), mir.Use(mir.Copy(mir.LocalPlace(s))))
	b.Return(bb6)
	return b.Build()
}

func TestNestedComponentsKeepInvariants(t *testing.T) {
	body := nestedBody()
	require.NoError(t, mir.Validate(body))
	a, err := region.NewAnalyzer(body)
	require.NoError(t, err)

	var comps []*region.Component
	err = testkit.WalkComponents(body, a, func(c *region.Component) error {
		comps = append(comps, c)
		return testkit.CheckComponentInvariants(body, c)
	})
	require.NoError(t, err)
	require.Len(t, comps, 3)

	outer, inner := comps[1], comps[2]
	assert.Equal(t, mir.BlockID(1), outer.Header)
	assert.Equal(t, []mir.BlockID{6}, outer.Exits)
	assert.Equal(t, mir.BlockID(3), inner.Header)
	assert.Equal(t, []mir.BlockID{5}, inner.Exits)
	assert.Same(t, outer, inner.Outer)
	// i is only read by the inner loop.
	assert.Contains(t, inner.Params, mir.LocalID(2))
	assert.Contains(t, inner.State, mir.LocalID(4))
}

func TestInvariantCheckerFlagsBrokenComponent(t *testing.T) {
	body := nestedBody()
	a, err := region.NewAnalyzer(body)
	require.NoError(t, err)
	fn, err := a.Function()
	require.NoError(t, err)

	broken := *fn
	broken.Loops = append([][]mir.BlockID{{3, 1}}, fn.Loops...)
	err = testkit.CheckComponentInvariants(body, &broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not sorted")
	assert.Contains(t, err.Error(), "belongs to loops")
}
