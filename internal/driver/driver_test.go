package driver

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirlean/internal/buildpipeline"
	"mirlean/internal/depgraph"
	"mirlean/internal/diag"
	"mirlean/internal/mir"
)

var u32 = mir.Uint(32)

func constBody(name string, v uint64) *mir.Body {
	b := mir.NewBuilder(name, u32)
	bb0 := b.Block()
	b.Assign(bb0, mir.LocalPlace(mir.ReturnLocal), mir.Use(mir.ConstOperand(mir.UintConst(v, 32))))
	b.Return(bb0)
	return b.Build()
}

func callBody(name, callee string) *mir.Body {
	b := mir.NewBuilder(name, u32)
	x := b.Arg("x", u32)
	bb0, bb1 := b.Block(), b.Block()
	b.Call(bb0, mir.ConstOperand(mir.ItemConst(callee)), []mir.Operand{mir.Copy(mir.LocalPlace(x))}, mir.ReturnLocal, bb1)
	b.Return(bb1)
	return b.Build()
}

func badBody() *mir.Body {
	b := mir.NewBuilder("bad", mir.Unit())
	x := b.Var("x", mir.Adt("Color"))
	bb0 := b.Block()
	b.Return(bb0)
	body := b.Build()
	body.Blocks[0].Stmts = append(body.Blocks[0].Stmts, mir.Statement{
		Kind:    mir.StmtSetDiscriminant,
		Place:   mir.LocalPlace(x),
		Variant: 1,
	})
	return body
}

func sampleCrate() *mir.Crate {
	return &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
		{Name: "Color", Kind: mir.DefEnum, Variants: []mir.Variant{{Name: "Red"}, {Name: "Green"}}},
		{Name: "bad", Kind: mir.DefFn, Body: badBody()},
		{Name: "user", Kind: mir.DefFn, Body: callBody("user", "bad")},
		{Name: "ping", Kind: mir.DefFn, Body: callBody("ping", "pong")},
		{Name: "pong", Kind: mir.DefFn, Body: callBody("pong", "ping")},
		{Name: "A", Kind: mir.DefStruct, Variants: []mir.Variant{{Name: "A", Fields: []mir.Field{{Name: "b", Ty: mir.Adt("B")}}}}},
		{Name: "B", Kind: mir.DefStruct, Variants: []mir.Variant{{Name: "B", Fields: []mir.Field{{Name: "a", Ty: mir.Adt("A")}}}}},
		{Name: "ext.helper", Kind: mir.DefFn, Crate: "ext"},
	}}
}

func resultNames(out *Output) []string {
	names := make([]string, len(out.Results))
	for i, r := range out.Results {
		names[i] = r.Name
	}
	return names
}

func TestTranslateSchedulesAndPropagatesFailures(t *testing.T) {
	out, err := Translate(context.Background(), sampleCrate(), Options{Jobs: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "Color", "bad", "one", "ping", "pong", "user"}, resultNames(out))
	assert.Equal(t, 4, out.Failed())

	one, ok := out.Result("one")
	require.True(t, ok)
	require.NoError(t, one.Err)
	assert.Equal(t, "definition one : sem u32 :=\nlet' ret ← (1 : u32);\nreturn ret\n", one.Text)

	bad, ok := out.Result("bad")
	require.True(t, ok)
	assert.Equal(t, diag.TransUnsupportedConstruct, bad.Code)
	assert.True(t, strings.HasPrefix(bad.Text, "-- bad: not translated: "))

	user, ok := out.Result("user")
	require.True(t, ok)
	assert.Equal(t, diag.TransFailedDependency, user.Code)
	assert.Equal(t, []string{"bad"}, user.FailedDeps)
	assert.Equal(t, "-- user: failed dependency (bad)", user.Text)

	for _, name := range []string{"ping", "pong"} {
		res, ok := out.Result(name)
		require.True(t, ok)
		assert.Equal(t, diag.TransCircularDependency, res.Code, name)
	}

	_, ok = out.Result("ext.helper")
	assert.False(t, ok, "definitions of other crates are not translated")

	require.NotEmpty(t, out.Units)
	assert.Equal(t, []string{"A", "B"}, out.Units[0].Members)
	assert.True(t, strings.HasPrefix(out.Units[0].Text, "mutual\nstructure A :=\n"))
	assert.True(t, strings.HasSuffix(out.Units[0].Text, "\nend"))

	assert.Contains(t, out.Edges, depgraph.Edge{From: "user", To: "bad"})
	assert.True(t, out.Bag.HasErrors())
	assert.True(t, strings.HasSuffix(out.Text(), "-- user: failed dependency (bad)\n"))
}

func TestTranslateSkipsConfiguredDefinitions(t *testing.T) {
	out, err := Translate(context.Background(), sampleCrate(), Options{Skip: []string{"one", "ping"}})
	require.NoError(t, err)

	_, ok := out.Result("one")
	assert.False(t, ok)

	// pong's dependency is gone, so it is no longer part of a cycle.
	pong, ok := out.Result("pong")
	require.True(t, ok)
	assert.NoError(t, pong.Err)

	var skipped []string
	for _, d := range out.Bag.Items() {
		if d.Code == diag.TransSkipped {
			skipped = append(skipped, d.Primary.Def)
		}
	}
	assert.ElementsMatch(t, []string{"one", "ping"}, skipped)
}

func TestTranslateReportsProgress(t *testing.T) {
	sink := &buildpipeline.RecordingSink{}
	_, err := Translate(context.Background(), sampleCrate(), Options{Progress: sink})
	require.NoError(t, err)

	status := map[string]buildpipeline.Status{}
	queued := 0
	for _, evt := range sink.Events() {
		if evt.Def == "" {
			continue
		}
		if evt.Status == buildpipeline.StatusQueued {
			queued++
			continue
		}
		if evt.Status != buildpipeline.StatusWorking {
			status[evt.Def] = evt.Status
		}
	}
	assert.Equal(t, 8, queued)
	assert.Equal(t, buildpipeline.StatusDone, status["one"])
	assert.Equal(t, buildpipeline.StatusError, status["bad"])
}

func TestTranslateReusesCache(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)

	first, err := Translate(context.Background(), sampleCrate(), Options{Cache: cache})
	require.NoError(t, err)
	second, err := Translate(context.Background(), sampleCrate(), Options{Cache: cache})
	require.NoError(t, err)

	a, _ := first.Result("one")
	b, ok := second.Result("one")
	require.True(t, ok)
	assert.False(t, a.Cached)
	assert.True(t, b.Cached)
	assert.Equal(t, a.Text, b.Text)

	// Failures are never cached.
	bad, _ := second.Result("bad")
	assert.False(t, bad.Cached)
	assert.Equal(t, first.Text(), second.Text())
}

func TestCacheEntryIsStaleWhenDependencyChanges(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	require.NoError(t, err)
	c := &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
		{Name: "caller", Kind: mir.DefFn, Body: callBody("caller", "one")},
	}}
	_, err = Translate(context.Background(), c, Options{Cache: cache})
	require.NoError(t, err)

	changed := &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 2)},
		{Name: "caller", Kind: mir.DefFn, Body: callBody("caller", "one")},
	}}
	out, err := Translate(context.Background(), changed, Options{Cache: cache})
	require.NoError(t, err)
	caller, ok := out.Result("caller")
	require.True(t, ok)
	assert.False(t, caller.Cached)
}

func TestTranslateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Translate(ctx, sampleCrate(), Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSelectedListsLocalDefinitions(t *testing.T) {
	names := Selected(sampleCrate(), Options{Skip: []string{"ping"}})
	assert.Equal(t, []string{"one", "Color", "bad", "user", "pong", "A", "B"}, names)
}
