package lens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirlean/internal/diag"
	"mirlean/internal/mir"
)

// sample is {a: 1, b: {c: 2, d: [10, 20, 30]}}.
func sample() Value {
	return Record(
		Scalar(1),
		Record(Scalar(2), Seq(Scalar(10), Scalar(20), Scalar(30))),
	)
}

var (
	fieldB = FieldOf("S", "b", 1)
	fieldD = FieldOf("T", "d", 1)
	atI    = IndexBy("i")
	env    = Env{"i": 2}
)

func TestLensRoundTrip(t *testing.T) {
	chains := []Chain{nil, {fieldB}, {fieldB, fieldD}, {fieldB, fieldD, atI}}
	for _, c := range chains {
		t.Run(c.String(), func(t *testing.T) {
			v := sample()
			x := Scalar(99)
			if !c.IsIdentity() {
				cur, err := c.Get(v, env)
				require.NoError(t, err)
				if cur.Kind != ValScalar {
					x = cur
					x.Elems = append([]Value(nil), cur.Elems...)
				}
			}

			updated, err := c.Set(v, env, x)
			require.NoError(t, err)
			got, err := c.Get(updated, env)
			require.NoError(t, err)
			assert.True(t, got.Equal(x), "get(set(v, x)) = %s, want %s", got, x)

			cur, err := c.Get(v, env)
			require.NoError(t, err)
			same, err := c.Set(v, env, cur)
			require.NoError(t, err)
			assert.True(t, same.Equal(v), "set(v, get(v)) changed the value")
		})
	}
}

func TestLensPreservesSiblings(t *testing.T) {
	v := sample()
	c := Chain{fieldB, fieldD, atI}
	updated, err := c.Set(v, env, Scalar(7))
	require.NoError(t, err)

	assert.True(t, updated.Elems[0].Equal(v.Elems[0]))
	assert.True(t, updated.Elems[1].Elems[0].Equal(v.Elems[1].Elems[0]))
	seq := updated.Elems[1].Elems[1]
	assert.Equal(t, int64(10), seq.Elems[0].Scalar)
	assert.Equal(t, int64(20), seq.Elems[1].Scalar)
	assert.Equal(t, int64(7), seq.Elems[2].Scalar)

	// The original is untouched.
	assert.Equal(t, int64(30), v.Elems[1].Elems[1].Elems[2].Scalar)
}

func TestLensCompositionIsSequentialAccess(t *testing.T) {
	v := sample()
	outer := Chain{fieldB}
	inner := Chain{fieldD, atI}

	step, err := outer.Get(v, env)
	require.NoError(t, err)
	want, err := inner.Get(step, env)
	require.NoError(t, err)
	got, err := outer.Then(inner...).Get(v, env)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))

	// Setting through the composition equals set-inner-then-set-outer.
	innerSet, err := inner.Set(step, env, Scalar(5))
	require.NoError(t, err)
	wantSet, err := outer.Set(v, env, innerSet)
	require.NoError(t, err)
	gotSet, err := outer.Then(inner...).Set(v, env, Scalar(5))
	require.NoError(t, err)
	assert.True(t, gotSet.Equal(wantSet))
}

func TestLensOutOfRange(t *testing.T) {
	_, err := Chain{fieldB, fieldD, IndexBy("j")}.Get(sample(), Env{"j": 3})
	require.ErrorIs(t, err, ErrOutOfRange)

	_, err = Chain{Opaque("f_lens")}.Get(sample(), nil)
	require.Error(t, err)
}

func TestChainRender(t *testing.T) {
	assert.Equal(t, "lens.id", Chain(nil).Render())
	assert.Equal(t, "(lens.index _ i)", Chain{atI}.Render())
	assert.Equal(t,
		"(lens.index _ i ∘ₗ lens.mk (return ∘ S.b) (λ (o : S) i, return ⦃ S, b := i, o ⦄))",
		Chain{fieldB, atI}.Render())
	assert.Equal(t, "lens.set (lens.proj 2 0) p v", Chain{TupleField(0, 2)}.RenderSet("p", "v"))
}

func TestTableReborrowSplicesChains(t *testing.T) {
	tab := NewTable()
	_, err := tab.Borrow(3, 1, Chain{fieldB})
	require.NoError(t, err)
	e, err := tab.Borrow(4, 3, Chain{fieldD})
	require.NoError(t, err)

	assert.Equal(t, mir.LocalID(1), e.Source)
	assert.Equal(t, mir.LocalID(3), e.Parent)
	assert.Equal(t, Chain{fieldB, fieldD}, e.Chain)
	assert.Equal(t, []mir.LocalID{3, 4}, tab.Borrowers(1))

	// Branches see independent tables.
	branch := tab.Clone()
	_, ok := branch.Release(4)
	require.True(t, ok)
	_, ok = tab.Lookup(4)
	assert.True(t, ok)

	released, ok := tab.Release(3)
	require.True(t, ok)
	assert.Equal(t, mir.NoLocalID, released.Parent)
	child, _ := tab.Lookup(4)
	assert.Equal(t, mir.NoLocalID, child.Parent, "orphaned reborrow is reparented")
}

func TestTableMoveAndCycles(t *testing.T) {
	tab := NewTable()
	_, err := tab.Borrow(3, 1, nil)
	require.NoError(t, err)
	_, err = tab.Borrow(4, 3, Chain{atI})
	require.NoError(t, err)

	require.True(t, tab.Move(3, 5))
	child, _ := tab.Lookup(4)
	assert.Equal(t, mir.LocalID(5), child.Parent)
	assert.Equal(t, []mir.LocalID{4, 5}, tab.Active())

	_, err = tab.Borrow(1, 1, nil)
	require.Error(t, err)
	assert.True(t, diag.IsCode(err, diag.TransAliasCycle))

	_, err = tab.Borrow(5, 5, Chain{fieldB})
	require.Error(t, err)
	assert.True(t, diag.IsCode(err, diag.TransAliasCycle))
}

// The emitter renders a borrow of p.x.1, with P.x a pair, through this
// chain. The laws below hold for exactly the text it writes.
func TestRenderedChainObeysLaws(t *testing.T) {
	c := Chain{FieldOf("P", "x", 0), TupleField(1, 2)}
	const focus = "(lens.proj 2 1 ∘ₗ lens.mk (return ∘ P.x) (λ (o : P) i, return ⦃ P, x := i, o ⦄))"
	assert.Equal(t, "lens.get "+focus+" p", c.RenderGet("p"))
	assert.Equal(t, "lens.set "+focus+" p r", c.RenderSet("p", "r"))

	p := Record(Record(Scalar(1), Scalar(2)), Scalar(3))
	cur, err := c.Get(p, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cur.Scalar)

	updated, err := c.Set(p, nil, Scalar(9))
	require.NoError(t, err)
	got, err := c.Get(updated, nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(Scalar(9)))
	assert.True(t, updated.Elems[1].Equal(Scalar(3)), "P.y is untouched")
	assert.True(t, updated.Elems[0].Elems[0].Equal(Scalar(1)), "P.x.0 is untouched")

	same, err := c.Set(p, nil, cur)
	require.NoError(t, err)
	assert.True(t, same.Equal(p))
}
