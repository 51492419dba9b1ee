package mir

type Block struct {
	ID    BlockID
	Stmts []Statement
	Term  Terminator
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// DeadEnd reports whether the block does nothing but diverge.
func (b *Block) DeadEnd() bool {
	if b == nil {
		return false
	}
	if b.Term.Kind != TermResume && b.Term.Kind != TermUnreachable {
		return false
	}
	for i := range b.Stmts {
		switch b.Stmts[i].Kind {
		case StmtStorageLive, StmtStorageDead, StmtNop:
		default:
			return false
		}
	}
	return true
}

// Body is the control-flow graph of a function, static or constant.
// Locals[0] is the return slot; arguments follow it.
type Body struct {
	Name     string
	Locals   []Local
	Blocks   []Block
	Start    BlockID
	ArgCount int
	Promoted []Body
}

func (b *Body) Block(id BlockID) *Block {
	if b == nil || id < 0 || int(id) >= len(b.Blocks) {
		return nil
	}
	return &b.Blocks[id]
}

func (b *Body) HasBlock(id BlockID) bool {
	return id >= 0 && int(id) < len(b.Blocks)
}

func (b *Body) HasLocal(id LocalID) bool {
	return id >= 0 && int(id) < len(b.Locals)
}

// Args returns the argument locals in declaration order.
func (b *Body) Args() []LocalID {
	out := make([]LocalID, 0, b.ArgCount)
	for i := 1; i <= b.ArgCount && i < len(b.Locals); i++ {
		out = append(out, LocalAt(i))
	}
	return out
}

// MutRefArgs returns the arguments whose type is a mutable reference.
func (b *Body) MutRefArgs() []LocalID {
	var out []LocalID
	for _, id := range b.Args() {
		if b.Locals[id].Ty.IsMutRef() {
			out = append(out, id)
		}
	}
	return out
}

// AllBlocks lists every block id in order.
func (b *Body) AllBlocks() []BlockID {
	out := make([]BlockID, len(b.Blocks))
	for i := range b.Blocks {
		out[i] = BlockAt(i)
	}
	return out
}

// LocalTy returns the declared type of a local.
func (b *Body) LocalTy(id LocalID) Ty {
	if !b.HasLocal(id) {
		return Unit()
	}
	return b.Locals[id].Ty
}
