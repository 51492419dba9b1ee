package depgraph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupNames(groups []Group) [][]string {
	out := make([][]string, len(groups))
	for i, gr := range groups {
		out[i] = gr.Members
	}
	return out
}

func TestBuildIndexSortsAndDedups(t *testing.T) {
	idx := BuildIndex([]string{"b", "a", "", "b", "c"})
	require.Equal(t, []string{"a", "b", "c"}, idx.IDToName)
	for i, name := range idx.IDToName {
		id, ok := idx.NameToID[name]
		require.True(t, ok)
		assert.Equal(t, NodeID(i), id)
	}
}

func TestAddEdgeIgnoresSelfAndUnknown(t *testing.T) {
	g := New(BuildIndex([]string{"a", "b"}))
	assert.True(t, g.AddEdge("a", "b"))
	assert.False(t, g.AddEdge("a", "b"), "duplicate edge")
	assert.False(t, g.AddEdge("a", "a"), "self edge")
	assert.False(t, g.AddEdge("a", "zzz"))
	assert.False(t, g.AddEdge("zzz", "a"))
	assert.Equal(t, []Edge{{From: "a", To: "b"}}, g.Edges())
	assert.Equal(t, []string{"b"}, g.Deps("a"))
	assert.Empty(t, g.Deps("b"))
}

func TestScheduleRespectsDependencies(t *testing.T) {
	// main -> lib -> util, main -> util, tool -> util
	g := New(BuildIndex([]string{"main", "lib", "util", "tool"}))
	g.AddEdge("main", "lib")
	g.AddEdge("lib", "util")
	g.AddEdge("main", "util")
	g.AddEdge("tool", "util")

	s := g.Schedule()
	assert.Equal(t, [][]string{{"util"}, {"lib"}, {"tool"}, {"main"}}, groupNames(s.Order))
	require.Len(t, s.Batches, 3)
	assert.Equal(t, [][]string{{"util"}}, groupNames(s.Batches[0]))
	assert.Equal(t, [][]string{{"lib"}, {"tool"}}, groupNames(s.Batches[1]))
	assert.Equal(t, [][]string{{"main"}}, groupNames(s.Batches[2]))
	assert.Empty(t, s.Cycles())
}

func TestScheduleCondensesCycles(t *testing.T) {
	// even <-> odd, both use base; top uses even
	g := New(BuildIndex([]string{"even", "odd", "base", "top"}))
	g.AddEdge("even", "odd")
	g.AddEdge("odd", "even")
	g.AddEdge("even", "base")
	g.AddEdge("odd", "base")
	g.AddEdge("top", "even")

	s := g.Schedule()
	assert.Equal(t, [][]string{{"base"}, {"even", "odd"}, {"top"}}, groupNames(s.Order))
	assert.Equal(t, []string{"base", "even", "odd", "top"}, s.Names())
	cycles := s.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "even -> odd", cycles[0].Summary())
}

func TestSchedulePlacesEveryDefinitionAfterItsDependencies(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f"}
	g := New(BuildIndex(names))
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"c", "b"}, {"d", "a"}, {"e", "f"}, {"f", "d"}}
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}

	s := g.Schedule()
	pos := map[string]int{}
	for i, gr := range s.Order {
		for _, m := range gr.Members {
			pos[m] = i
		}
	}
	require.Len(t, pos, len(names))
	for _, e := range edges {
		if pos[e[0]] == pos[e[1]] {
			continue
		}
		assert.Greater(t, pos[e[0]], pos[e[1]], "%s must follow %s", e[0], e[1])
	}
}

func TestAddEdgeIsSafeForConcurrentUse(t *testing.T) {
	g := New(BuildIndex([]string{"a", "b", "c", "d"}))
	var wg sync.WaitGroup
	for _, from := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, to := range []string{"a", "b", "c", "d"} {
				g.AddEdge(from, to)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, g.Edges(), 12)
	require.Len(t, g.Schedule().Order, 1)
}
