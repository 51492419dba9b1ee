package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func adjacency(edges map[int][]int) func(int) []int {
	return func(n int) []int { return edges[n] }
}

func TestSCCFindsCycles(t *testing.T) {
	// 0 -> 1 -> 2 -> 1, 2 -> 3, 3 -> 4 -> 3
	succ := adjacency(map[int][]int{
		0: {1},
		1: {2},
		2: {1, 3},
		3: {4},
		4: {3},
	})
	got := SCC(5, succ)
	require.Equal(t, [][]int{{0}, {1, 2}, {3, 4}}, got)
}

func TestSCCIsDeterministicUnderEdgeOrder(t *testing.T) {
	a := adjacency(map[int][]int{0: {1, 2}, 1: {0}, 2: {3}, 3: {2}})
	b := adjacency(map[int][]int{0: {2, 1}, 1: {0}, 2: {3}, 3: {2}})
	require.Equal(t, SCC(4, a), SCC(4, b))
}

func TestSCCSingletons(t *testing.T) {
	succ := adjacency(map[int][]int{0: {1}, 1: {2}})
	require.Equal(t, [][]int{{0}, {1}, {2}}, SCC(3, succ))
}

func TestSCCLongChainDoesNotRecurse(t *testing.T) {
	const n = 200000
	succ := func(i int) []int {
		if i+1 < n {
			return []int{i + 1}
		}
		return []int{0}
	}
	got := SCC(n, succ)
	require.Len(t, got, 1)
	require.Len(t, got[0], n)
}

func TestHasSelfEdge(t *testing.T) {
	succ := adjacency(map[int][]int{0: {0, 1}, 1: {0}})
	require.True(t, HasSelfEdge(0, succ))
	require.False(t, HasSelfEdge(1, succ))
}
