package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xyproto/env/v2"

	"mirlean/internal/emit"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func setEnv(t *testing.T, name, value string) {
	t.Helper()
	require.NoError(t, env.Set(name, value))
	t.Cleanup(func() { _ = env.Unset(name) })
}

func TestLoadReadsAllSections(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[translate]
jobs = 3
max-diagnostics = 20
cache = false

[loops]
multi-exit = "tag"

[traits."core.ops.Add"]
only = ["add"]

[traits."core.fmt.Display"]
only = []

[skip]
defs = ["core.fmt.Debug", "  "]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 3, cfg.Jobs)
	assert.Equal(t, 20, cfg.MaxDiagnostics)
	assert.False(t, cfg.Cache)
	assert.Equal(t, emit.ExitTag, cfg.MultiExit)
	assert.Equal(t, map[string][]string{"core.ops.Add": {"add"}, "core.fmt.Display": {}}, cfg.TraitOnly)
	assert.Equal(t, []string{"core.fmt.Debug"}, cfg.Skip)

	opts := cfg.EmitOptions()
	assert.Equal(t, emit.ExitTag, opts.MultiExit)
	assert.Equal(t, cfg.TraitOnly, opts.TraitOnly)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), "[translate]\njobs = 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Jobs)
	assert.Equal(t, 100, cfg.MaxDiagnostics)
	assert.True(t, cfg.Cache)
	assert.Equal(t, emit.ExitReject, cfg.MultiExit)
	assert.Nil(t, cfg.TraitOnly)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"negative jobs":    "[translate]\njobs = -1\n",
		"zero diagnostics": "[translate]\nmax-diagnostics = 0\n",
		"unknown key":      "[translate]\nthreads = 4\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), body))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Load(writeConfig(t, t.TempDir(), "[loops]\nmulti-exit = \"maybe\"\n"))
	require.Error(t, err)
	_, err = Load(writeConfig(t, t.TempDir(), "[translate\n"))
	require.Error(t, err)
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestResolveAppliesEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[translate]\njobs = 2\n")
	setEnv(t, EnvJobs, "7")
	setEnv(t, EnvMultiExit, "tag")

	cfg, err := Resolve("", dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Jobs)
	assert.Equal(t, emit.ExitTag, cfg.MultiExit)
}

func TestApplyEnvRejectsBadJobs(t *testing.T) {
	setEnv(t, EnvJobs, "lots")
	cfg := Default()
	require.ErrorIs(t, cfg.ApplyEnv(), ErrInvalid)
}
