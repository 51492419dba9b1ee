package depgraph

import (
	"fmt"
	"slices"
	"strings"
)

type Schedule struct {
	Order   []Group   // dependencies first
	Batches [][]Group // waves of groups with no dependency between them
}

// Names flattens the order into definition names.
func (s *Schedule) Names() []string {
	var out []string
	for _, gr := range s.Order {
		out = append(out, gr.Members...)
	}
	return out
}

// Cycles returns the groups whose members depend on each other.
func (s *Schedule) Cycles() []Group {
	var out []Group
	for _, gr := range s.Order {
		if gr.Cyclic() {
			out = append(out, gr)
		}
	}
	return out
}

// Summary renders a cycle as a -> b -> c.
func (gr Group) Summary() string {
	return strings.Join(gr.Members, " -> ")
}

// ToposortKahn orders the condensation so every group follows the groups
// it depends on. Groups in a batch are sorted by their first member.
func ToposortKahn(c *Condensation) *Schedule {
	n := len(c.Groups)
	// pending[i] counts the dependencies of group i not yet scheduled.
	pending := make([]int, n)
	dependents := make([][]int, n)
	for from, tos := range c.Edges {
		pending[from] = len(tos)
		for _, to := range tos {
			dependents[to] = append(dependents[to], from)
		}
	}

	byName := func(a, b int) int {
		return strings.Compare(c.Groups[a].Members[0], c.Groups[b].Members[0])
	}

	current := make([]int, 0, n)
	for i := range n {
		if pending[i] == 0 {
			current = append(current, i)
		}
	}
	slices.SortFunc(current, byName)

	s := &Schedule{Order: make([]Group, 0, n)}
	visited := 0
	for len(current) > 0 {
		batch := make([]Group, len(current))
		next := make([]int, 0)
		for k, gi := range current {
			batch[k] = c.Groups[gi]
			s.Order = append(s.Order, c.Groups[gi])
			visited++
			for _, d := range dependents[gi] {
				pending[d]--
				if pending[d] == 0 {
					next = append(next, d)
				}
			}
		}
		s.Batches = append(s.Batches, batch)
		slices.SortFunc(next, byName)
		current = next
	}

	if visited != n {
		// The condensation is acyclic by construction.
		panic(fmt.Errorf("condensation has a cycle: scheduled %d of %d groups", visited, n))
	}
	return s
}

// Schedule condenses g and orders the groups.
func (g *Graph) Schedule() *Schedule {
	return ToposortKahn(g.Condense())
}
