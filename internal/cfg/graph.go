// Package cfg builds the control-flow graph of a block region and finds the
// loops inside it.
package cfg

import (
	"slices"

	"mirlean/internal/graph"
	"mirlean/internal/mir"
)

// Graph is the control-flow graph restricted to one region.
//
// Edges leaving the region are dropped. Edges back to Start are the region's
// back edges; they are not part of the graph and are reported separately.
type Graph struct {
	Start  mir.BlockID
	Nodes  []mir.BlockID // sorted
	Succ   map[mir.BlockID][]mir.BlockID
	Back   []mir.BlockID // blocks with an edge to Start
	Exits  []mir.BlockID // distinct targets outside the region, sorted
	member map[mir.BlockID]int
}

// BuildGraph builds the graph of blocks, starting at start. A nil blocks
// slice means the whole body.
func BuildGraph(body *mir.Body, start mir.BlockID, blocks []mir.BlockID) *Graph {
	if blocks == nil {
		blocks = body.AllBlocks()
	}
	nodes := slices.Clone(blocks)
	slices.Sort(nodes)
	nodes = slices.Compact(nodes)

	g := &Graph{
		Start:  start,
		Nodes:  nodes,
		Succ:   make(map[mir.BlockID][]mir.BlockID, len(nodes)),
		member: make(map[mir.BlockID]int, len(nodes)),
	}
	for i, b := range nodes {
		g.member[b] = i
	}

	exits := make(map[mir.BlockID]struct{})
	for _, b := range nodes {
		bb := body.Block(b)
		if bb == nil {
			continue
		}
		var succ []mir.BlockID
		for _, t := range bb.Term.Successors() {
			if t == start {
				if !slices.Contains(g.Back, b) {
					g.Back = append(g.Back, b)
				}
				continue
			}
			if _, ok := g.member[t]; !ok {
				exits[t] = struct{}{}
				continue
			}
			if !slices.Contains(succ, t) {
				succ = append(succ, t)
			}
		}
		g.Succ[b] = succ
	}
	for b := range exits {
		g.Exits = append(g.Exits, b)
	}
	slices.Sort(g.Exits)
	return g
}

func (g *Graph) Contains(b mir.BlockID) bool {
	_, ok := g.member[b]
	return ok
}

// SCC returns the strongly connected components of the graph. Members are
// sorted by block id and components by their first member.
func (g *Graph) SCC() [][]mir.BlockID {
	comps := graph.SCC(len(g.Nodes), g.denseSucc)
	out := make([][]mir.BlockID, len(comps))
	for i, comp := range comps {
		blocks := make([]mir.BlockID, len(comp))
		for j, n := range comp {
			blocks[j] = g.Nodes[n]
		}
		out[i] = blocks
	}
	return out
}

func (g *Graph) denseSucc(n int) []int {
	succ := g.Succ[g.Nodes[n]]
	out := make([]int, 0, len(succ))
	for _, s := range succ {
		out = append(out, g.member[s])
	}
	return out
}

// HasSelfEdge reports whether b jumps to itself inside the graph.
func (g *Graph) HasSelfEdge(b mir.BlockID) bool {
	n, ok := g.member[b]
	return ok && graph.HasSelfEdge(n, g.denseSucc)
}
