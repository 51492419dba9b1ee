package region

import (
	"mirlean/internal/mir"
)

// blockLiveness holds use/def/in/out sets for liveness analysis.
type blockLiveness struct {
	use mir.LocalSet
	def mir.LocalSet
	in  mir.LocalSet
	out mir.LocalSet
}

// computeLiveness computes liveness information for all blocks of a body,
// with drops of borrows counted as reads and writes of their owners.
func computeLiveness(body *mir.Body, sources borrowSources) ([]blockLiveness, error) {
	info := make([]blockLiveness, len(body.Blocks))
	for i := range body.Blocks {
		use, def, err := computeBlockUseDef(body, sources, mir.BlockAt(i))
		if err != nil {
			return nil, err
		}
		info[i].use = use
		info[i].def = def
	}

	changed := true
	for changed {
		changed = false
		for i := len(body.Blocks) - 1; i >= 0; i-- {
			out := mir.LocalSet{}
			for _, succ := range body.Blocks[i].Term.Successors() {
				out = out.Union(info[succ].in)
			}
			in := info[i].use.Clone().Union(out.Minus(info[i].def))

			if !out.Equal(info[i].out) || !in.Equal(info[i].in) {
				info[i].out = out
				info[i].in = in
				changed = true
			}
		}
	}
	return info, nil
}

func computeBlockUseDef(body *mir.Body, sources borrowSources, id mir.BlockID) (use, def mir.LocalSet, err error) {
	use = mir.LocalSet{}
	def = mir.LocalSet{}
	v := &visitor{
		use: func(l mir.LocalID) {
			if def.Has(l) {
				return
			}
			use.Add(l)
		},
		def: def.Add,
	}
	err = scanBlock(body, sources, id, v)
	return use, def, err
}
