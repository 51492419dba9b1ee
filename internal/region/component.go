// Package region computes, for a function body or one of its loops, which
// blocks belong together, which locals escape, and what state a loop carries.
package region

import (
	"slices"

	"mirlean/internal/cfg"
	"mirlean/internal/diag"
	"mirlean/internal/mir"
)

// Component is a loop or the full function body.
type Component struct {
	Header mir.BlockID
	Blocks []mir.BlockID
	Loops  [][]mir.BlockID
	// Exits are the blocks outside a loop it can leave to, minus blocks
	// that only diverge.
	Exits []mir.BlockID

	Defs  mir.LocalSet
	Uses  mir.LocalSet
	Drops mir.LocalSet

	// NonlocalDefs = Defs − Drops, NonlocalUses = Uses − {return} − Drops,
	// both in canonical local order.
	NonlocalDefs []mir.LocalID
	NonlocalUses []mir.LocalID

	// State are the locals a loop threads through its iterations, Params
	// the ones it only reads. Empty for a function body.
	State  []mir.LocalID
	Params []mir.LocalID

	Outer *Component

	member map[mir.BlockID]struct{}
}

func (c *Component) IsLoop() bool { return c.Outer != nil }

func (c *Component) Contains(b mir.BlockID) bool {
	_, ok := c.member[b]
	return ok
}

// LoopContaining returns the loop of this component that b belongs to.
func (c *Component) LoopContaining(b mir.BlockID) ([]mir.BlockID, bool) {
	for _, l := range c.Loops {
		if _, found := slices.BinarySearch(l, b); found {
			return l, true
		}
	}
	return nil, false
}

// ExitIndex returns the position of b among the loop's exits.
func (c *Component) ExitIndex(b mir.BlockID) int {
	return slices.Index(c.Exits, b)
}

// Analyzer computes components for one body. The borrow prescan and the
// liveness fixpoint run once and are shared by every component.
type Analyzer struct {
	body    *mir.Body
	sources borrowSources
	live    []blockLiveness
}

func NewAnalyzer(body *mir.Body) (*Analyzer, error) {
	sources := computeBorrowSources(body)
	live, err := computeLiveness(body, sources)
	if err != nil {
		return nil, err
	}
	return &Analyzer{body: body, sources: sources, live: live}, nil
}

// LiveIn returns the locals live on entry to b.
func (a *Analyzer) LiveIn(b mir.BlockID) mir.LocalSet {
	if b < 0 || int(b) >= len(a.live) {
		return nil
	}
	return a.live[b].in
}

// BorrowOwners returns the locals a borrow held in l may write back to.
func (a *Analyzer) BorrowOwners(l mir.LocalID) []mir.LocalID {
	s, ok := a.sources[l]
	if !ok {
		return nil
	}
	return s.Sorted()
}

// Function returns the component of the whole body.
func (a *Analyzer) Function() (*Component, error) {
	g := cfg.BuildGraph(a.body, a.body.Start, nil)
	if len(g.Back) > 0 {
		return nil, diag.Errorf(diag.TransUnsupportedConstruct, "loop through the entry block bb%d", a.body.Start).
			At(int32(g.Back[0]), -1)
	}
	c := &Component{
		Header: a.body.Start,
		Blocks: g.Nodes,
		Loops:  g.Loops(),
	}
	if err := a.fill(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Loop returns the component of a loop of outer entered at header.
func (a *Analyzer) Loop(outer *Component, header mir.BlockID, blocks []mir.BlockID) (*Component, error) {
	g := cfg.BuildGraph(a.body, header, blocks)
	c := &Component{
		Header: header,
		Blocks: g.Nodes,
		Loops:  g.Loops(),
		Outer:  outer,
	}
	for _, e := range g.Exits {
		if a.body.Block(e).DeadEnd() {
			continue
		}
		c.Exits = append(c.Exits, e)
	}
	if err := a.fill(c); err != nil {
		return nil, err
	}
	// A borrow taken inside the loop and still held when it is left is
	// written back on the way out, so the loop writes its owners.
	for _, l := range a.borrowsTakenIn(c.Blocks) {
		for _, o := range a.BorrowOwners(l) {
			c.Defs.Add(o)
		}
	}
	c.NonlocalDefs = c.Defs.Minus(c.Drops).Sorted()

	across := a.LiveIn(header).Clone()
	for _, e := range c.Exits {
		across = across.Union(a.LiveIn(e))
	}
	nonlocalDefs := mir.NewLocalSet(c.NonlocalDefs...)
	c.State = nonlocalDefs.Intersect(across).Sorted()
	c.Params = mir.NewLocalSet(c.NonlocalUses...).Minus(c.Defs).Sorted()
	return c, nil
}

// borrowsTakenIn lists the borrow locals assigned a new borrow in blocks.
func (a *Analyzer) borrowsTakenIn(blocks []mir.BlockID) []mir.LocalID {
	taken := mir.LocalSet{}
	mark := func(p mir.Place) {
		if !p.IsPlainLocal() {
			return
		}
		if _, ok := a.sources[p.Local]; ok {
			taken.Add(p.Local)
		}
	}
	for _, id := range blocks {
		bb := a.body.Block(id)
		if bb == nil {
			continue
		}
		for i := range bb.Stmts {
			if bb.Stmts[i].Kind == mir.StmtAssign {
				mark(bb.Stmts[i].Assign.Dst)
			}
		}
		if bb.Term.Kind == mir.TermCall && bb.Term.Call.HasDest {
			mark(bb.Term.Call.Dest)
		}
	}
	return taken.Sorted()
}

func (a *Analyzer) fill(c *Component) error {
	c.member = make(map[mir.BlockID]struct{}, len(c.Blocks))
	for _, b := range c.Blocks {
		c.member[b] = struct{}{}
	}
	defs, uses, drops, err := a.Scan(c.Blocks)
	if err != nil {
		return err
	}
	c.Defs, c.Uses, c.Drops = defs, uses, drops

	nonlocalUses := uses.Minus(drops)
	nonlocalUses.Delete(mir.ReturnLocal)
	c.NonlocalDefs = defs.Minus(drops).Sorted()
	c.NonlocalUses = nonlocalUses.Sorted()
	return nil
}

// Scan classifies every local touched by blocks into defs, uses and drops.
func (a *Analyzer) Scan(blocks []mir.BlockID) (defs, uses, drops mir.LocalSet, err error) {
	defs, uses, drops = mir.LocalSet{}, mir.LocalSet{}, mir.LocalSet{}
	v := &visitor{use: uses.Add, def: defs.Add, drop: drops.Add}
	for _, b := range blocks {
		if err := scanBlock(a.body, a.sources, b, v); err != nil {
			return nil, nil, nil, err
		}
	}
	return defs, uses, drops, nil
}
