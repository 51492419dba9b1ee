package depgraph

import (
	"slices"
	"sync"

	"mirlean/internal/graph"
)

// Graph has a node per definition and an edge A→B when the translation of
// A referred to B. Edges only accumulate.
type Graph struct {
	idx Index

	mu    sync.Mutex
	edges [][]NodeID // edges[from] = sorted, distinct
}

// Edge is a dependency by name.
type Edge struct {
	From string
	To   string
}

func New(idx Index) *Graph {
	return &Graph{idx: idx, edges: make([][]NodeID, idx.Len())}
}

func (g *Graph) Index() Index { return g.idx }

// AddEdge records that from depends on to. Self edges and names outside
// the index are ignored; the result reports whether an edge was added.
func (g *Graph) AddEdge(from, to string) bool {
	f, ok := g.idx.NameToID[from]
	if !ok {
		return false
	}
	t, ok := g.idx.NameToID[to]
	if !ok || f == t {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.edges[int(f)]
	pos, found := slices.BinarySearch(out, t)
	if found {
		return false
	}
	g.edges[int(f)] = slices.Insert(out, pos, t)
	return true
}

// Deps returns the direct dependencies of name, sorted.
func (g *Graph) Deps(name string) []string {
	id, ok := g.idx.NameToID[name]
	if !ok {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idx.Names(g.edges[int(id)])
}

// Edges lists every edge ordered by source then target.
func (g *Graph) Edges() []Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Edge
	for from, tos := range g.edges {
		for _, to := range tos {
			out = append(out, Edge{From: g.idx.IDToName[from], To: g.idx.Name(to)})
		}
	}
	return out
}

// Group is a strongly connected set of definitions, members sorted by name.
type Group struct {
	Members []string
}

// Cyclic reports whether the members depend on each other.
func (gr Group) Cyclic() bool { return len(gr.Members) > 1 }

// Condensation is the acyclic graph of groups.
type Condensation struct {
	Groups []Group
	// Edges[i] are the groups group i depends on.
	Edges  [][]int
	OfNode []int
}

// Condense collapses the strongly connected components of g.
func (g *Graph) Condense() *Condensation {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.idx.Len()
	succ := func(i int) []int {
		out := make([]int, len(g.edges[i]))
		for k, id := range g.edges[i] {
			out[k] = int(id)
		}
		return out
	}
	comps := graph.SCC(n, succ)

	c := &Condensation{
		Groups: make([]Group, len(comps)),
		Edges:  make([][]int, len(comps)),
		OfNode: make([]int, n),
	}
	for gi, comp := range comps {
		members := make([]string, len(comp))
		for k, node := range comp {
			c.OfNode[node] = gi
			members[k] = g.idx.IDToName[node]
		}
		c.Groups[gi] = Group{Members: members}
	}
	for from := range n {
		gf := c.OfNode[from]
		for _, to := range g.edges[from] {
			gt := c.OfNode[int(to)]
			if gt == gf {
				continue
			}
			if pos, found := slices.BinarySearch(c.Edges[gf], gt); !found {
				c.Edges[gf] = slices.Insert(c.Edges[gf], pos, gt)
			}
		}
	}
	return c
}
