package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirlean/internal/config"
	"mirlean/internal/mir"
	"mirlean/internal/version"
)

var u32 = mir.Uint(32)

func constBody(name string, v uint64) *mir.Body {
	b := mir.NewBuilder(name, u32)
	bb0 := b.Block()
	b.Assign(bb0, mir.LocalPlace(mir.ReturnLocal), mir.Use(mir.ConstOperand(mir.UintConst(v, 32))))
	b.Return(bb0)
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

func writeBundle(t *testing.T, name string, c *mir.Crate) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, mir.WriteBundle(f, c, mir.FormatForPath(path)))
	require.NoError(t, f.Close())
	return path
}

// run executes the CLI with the progress UI, colors and cache off.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp()
	a.root.SetOut(&out)
	a.root.SetErr(&errOut)
	a.root.SetArgs(append([]string{"--ui=off", "--color=off"}, args...))
	err = a.root.Execute()
	a.close()
	return out.String(), errOut.String(), err
}

func TestTranslateWritesDefinitions(t *testing.T) {
	path := writeBundle(t, "demo.json", &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
	}})

	stdout, stderr, err := run(t, "translate", "--no-cache", path)
	require.NoError(t, err)
	assert.Equal(t, "definition one : sem u32 :=\nlet' ret ← (1 : u32);\nreturn ret\n", stdout)
	assert.Empty(t, stderr)
}

func TestTranslateReportsFailures(t *testing.T) {
	path := writeBundle(t, "demo.mp", &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
		{Name: "Color", Kind: mir.DefEnum, Variants: []mir.Variant{{Name: "Red"}, {Name: "Green"}}},
		{Name: "bad", Kind: mir.DefFn, Body: badBody()},
	}})
	outFile := filepath.Join(t.TempDir(), "demo.lean")

	_, stderr, err := run(t, "translate", "--no-cache", "--timings", "-o", outFile, path)
	require.ErrorIs(t, err, errNotTranslated)
	assert.Contains(t, stderr, "ERROR TRN5001")
	assert.Contains(t, stderr, "timings:\n")

	text, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), "-- bad: not translated: ")
	assert.Contains(t, string(text), "definition one : sem u32 :=")
}

func TestTranslateRecordsFailedValidation(t *testing.T) {
	broken := constBody("broken", 2)
	broken.Blocks[0].Term = mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: 5}}
	path := writeBundle(t, "broken.mp", &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
		{Name: "broken", Kind: mir.DefFn, Body: broken},
	}})
	outFile := filepath.Join(t.TempDir(), "demo.lean")

	_, stderr, err := run(t, "translate", "--no-cache", "--timings", "-o", outFile, path)
	require.ErrorIs(t, err, errNotTranslated)
	assert.Regexp(t, `(?m)^  validate .*// failed: `, stderr)

	text, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(text), "definition one : sem u32 :=")
	assert.Contains(t, string(text), "-- broken: not translated: ")
}

func TestTranslateJSON(t *testing.T) {
	path := writeBundle(t, "demo.mp", &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
		{Name: "skipme", Kind: mir.DefFn, Body: constBody("skipme", 2)},
	}})

	stdout, _, err := run(t, "translate", "--no-cache", "--format=json", "--skip", "skipme", path)
	require.NoError(t, err)

	var payload translatePayload
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "demo", payload.Crate)
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "one", payload.Results[0].Name)
	assert.Equal(t, "fn", payload.Results[0].Kind)
	require.Equal(t, 1, payload.Diagnostics.Count)
	assert.Equal(t, "TRN5008", payload.Diagnostics.Diagnostics[0].Code)
}

func TestTranslateRejectsBadFlags(t *testing.T) {
	path := writeBundle(t, "demo.mp", &mir.Crate{Name: "demo"})
	_, _, err := run(t, "translate", "--format=xml", path)
	require.Error(t, err)
	_, _, err = run(t, "translate", "--multi-exit=maybe", "--no-cache", path)
	require.Error(t, err)
	_, _, err = run(t, "translate", "--min-severity=fatal", "--no-cache", path)
	require.Error(t, err)
}

func TestTranslateUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("[translate]\ncache = false\n[skip]\ndefs = [\"one\"]\n"), 0o644))
	path := writeBundle(t, "demo.mp", &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
	}})

	stdout, stderr, err := run(t, "--config", cfgPath, "translate", path)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "one: WARNING TRN5008: skipped by configuration")

	_, stderr, err = run(t, "--config", cfgPath, "translate", "--min-severity=error", path)
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestCheckAndDump(t *testing.T) {
	good := writeBundle(t, "good.mp", &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
	}})
	stdout, _, err := run(t, "check", good)
	require.NoError(t, err)
	assert.Equal(t, "demo: 1 definitions ok\n", stdout)

	broken := constBody("one", 1)
	broken.Blocks[0].Term = mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: 5}}
	bad := writeBundle(t, "bad.mp", &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: broken},
	}})
	_, stderr, err := run(t, "check", bad)
	require.ErrorIs(t, err, errInvalidBundle)
	assert.Contains(t, stderr, "target bb5 does not exist")

	stdout, _, err = run(t, "dump", good)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "crate demo defs=1\n"))

	stdout, _, err = run(t, "dump", "--json", good)
	require.NoError(t, err)
	c, err := mir.ReadBundle(strings.NewReader(stdout), mir.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "demo", c.Name)
}

// countBody counts i up to 10 in a while loop at bb1.
func countBody() *mir.Body {
	b := mir.NewBuilder("count", u32)
	i := b.Var("i", u32)
	c := b.Temp(mir.Bool())
	bb0, bb1, bb2, bb3 := b.Block(), b.Block(), b.Block(), b.Block()
	b.Assign(bb0, mir.LocalPlace(i), mir.Use(mir.ConstOperand(mir.UintConst(0, 32))))
	b.Goto(bb0, bb1)
	b.Assign(bb1, mir.LocalPlace(c), mir.Binary(mir.BinLt, mir.Copy(mir.LocalPlace(i)), mir.ConstOperand(mir.UintConst(10, 32))))
	b.If(bb1, mir.Copy(mir.LocalPlace(c)), bb2, bb3)
	b.Assign(bb2, mir.LocalPlace(i), mir.Binary(mir.BinAdd, mir.Copy(mir.LocalPlace(i)), mir.ConstOperand(mir.UintConst(1, 32))))
	b.Goto(bb2, bb1)
	b.Assign(bb3, mir.LocalPlace(mir.ReturnLocal), mir.Use(mir.Copy(mir.LocalPlace(i))))
	b.Return(bb3)
	return b.Build()
}

func TestDumpLoops(t *testing.T) {
	path := writeBundle(t, "loops.mp", &mir.Crate{Name: "demo", Defs: []mir.Def{
		{Name: "one", Kind: mir.DefFn, Body: constBody("one", 1)},
		{Name: "count", Kind: mir.DefFn, Body: countBody()},
	}})
	stdout, _, err := run(t, "dump", "--loops", path)
	require.NoError(t, err)
	assert.Equal(t, "one: 0 loops\ncount: 1 loops\n  bb1 [1 2]\n", stdout)

	stdout, _, err = run(t, "dump", "--loops", "--def", "count", path)
	require.NoError(t, err)
	assert.Equal(t, "count: 1 loops\n  bb1 [1 2]\n", stdout)
}

func TestInitWritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	stdout, _, err := run(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, config.FileName)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.MaxDiagnostics)
	assert.True(t, cfg.Cache)
	assert.Empty(t, cfg.Skip)

	_, _, err = run(t, "init", dir)
	require.Error(t, err)
}

func TestVersionJSON(t *testing.T) {
	stdout, _, err := run(t, "version", "--format=json", "--hash")
	require.NoError(t, err)
	var payload versionPayload
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "mirlean", payload.Tool)
	assert.Equal(t, version.Tagline, payload.Tagline)
	assert.Equal(t, version.Plain(), payload.Version)
	assert.Equal(t, "unknown", payload.GitCommit)
	assert.Empty(t, payload.BuildDate)
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{"": uiModeAuto, "AUTO": uiModeAuto, " on ": uiModeOn, "off": uiModeOff} {
		got, err := readUIMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := readUIMode("sometimes")
	require.Error(t, err)
	assert.True(t, shouldUseTUI(uiModeOn))
	assert.False(t, shouldUseTUI(uiModeOff))
}

func TestMemProfileFlag(t *testing.T) {
	memPath := filepath.Join(t.TempDir(), "mem.pprof")
	_, _, err := run(t, "--memprofile", memPath, "version")
	require.NoError(t, err)
	info, err := os.Stat(memPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
