// Package graph holds small algorithms over dense integer-indexed digraphs.
package graph

import "slices"

// SCC returns the strongly connected components of the graph with nodes
// 0..n-1, using an iterative form of Tarjan's algorithm.
//
// Members of each component are sorted ascending, and components are
// ordered by their smallest member, so the output does not depend on the
// order in which succ lists edges.
func SCC(n int, succ func(int) []int) [][]int {
	const unvisited = -1
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}

	type frame struct {
		node int
		next int
	}
	var (
		stack   []int
		call    []frame
		counter int
		out     [][]int
	)

	for root := 0; root < n; root++ {
		if index[root] != unvisited {
			continue
		}
		call = append(call, frame{node: root})
		index[root] = counter
		low[root] = counter
		counter++
		stack = append(stack, root)
		onStack[root] = true

		for len(call) > 0 {
			top := &call[len(call)-1]
			edges := succ(top.node)
			if top.next < len(edges) {
				w := edges[top.next]
				top.next++
				if w < 0 || w >= n {
					continue
				}
				if index[w] == unvisited {
					index[w] = counter
					low[w] = counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					call = append(call, frame{node: w})
				} else if onStack[w] && index[w] < low[top.node] {
					low[top.node] = index[w]
				}
				continue
			}

			v := top.node
			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := call[len(call)-1].node
				if low[v] < low[parent] {
					low[parent] = low[v]
				}
			}
			if low[v] != index[v] {
				continue
			}
			var comp []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			slices.Sort(comp)
			out = append(out, comp)
		}
	}

	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}

// HasSelfEdge reports whether node lists itself as a successor.
func HasSelfEdge(node int, succ func(int) []int) bool {
	return slices.Contains(succ(node), node)
}
