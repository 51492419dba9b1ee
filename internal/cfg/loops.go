package cfg

import (
	"mirlean/internal/mir"
)

// FindLoops returns the loops of the region: every strongly connected
// component with more than one block, plus single blocks that jump to
// themselves. The start block never belongs to a loop since edges back to
// it are removed.
func FindLoops(body *mir.Body, start mir.BlockID, blocks []mir.BlockID) [][]mir.BlockID {
	return BuildGraph(body, start, blocks).Loops()
}

func (g *Graph) Loops() [][]mir.BlockID {
	var loops [][]mir.BlockID
	for _, comp := range g.SCC() {
		if len(comp) > 1 || g.HasSelfEdge(comp[0]) {
			loops = append(loops, comp)
		}
	}
	return loops
}

// LoopNest is a loop together with the loops nested inside it.
type LoopNest struct {
	Header mir.BlockID
	Blocks []mir.BlockID
	Inner  []LoopNest
}

// Nest discovers the full loop forest of a region by re-running the
// detector on each loop with its header as start. header picks the entry
// block of a loop; the emitter uses the first block reached, callers
// without that context can pass EntryOf.
func Nest(body *mir.Body, start mir.BlockID, blocks []mir.BlockID, header func(loop []mir.BlockID) mir.BlockID) []LoopNest {
	var out []LoopNest
	for _, loop := range FindLoops(body, start, blocks) {
		h := header(loop)
		out = append(out, LoopNest{
			Header: h,
			Blocks: loop,
			Inner:  Nest(body, h, loop, header),
		})
	}
	return out
}

// EntryOf returns a function choosing the loop block with a predecessor
// outside the loop, falling back to the smallest block id.
func EntryOf(body *mir.Body) func([]mir.BlockID) mir.BlockID {
	return func(loop []mir.BlockID) mir.BlockID {
		in := make(map[mir.BlockID]struct{}, len(loop))
		for _, b := range loop {
			in[b] = struct{}{}
		}
		for i := range body.Blocks {
			from := mir.BlockAt(i)
			if _, inside := in[from]; inside {
				continue
			}
			for _, t := range body.Blocks[i].Term.Successors() {
				if _, ok := in[t]; ok {
					return t
				}
			}
		}
		return loop[0]
	}
}
