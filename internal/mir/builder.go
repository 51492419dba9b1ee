package mir

import "fmt"

// Builder assembles a Body block by block. Front-ends and tests use it to
// avoid spelling out nested literals.
type Builder struct {
	body Body
}

// NewBuilder starts a body whose return slot has type ret.
func NewBuilder(name string, ret Ty) *Builder {
	b := &Builder{body: Body{Name: name, Start: 0}}
	b.body.Locals = append(b.body.Locals, Local{Name: "ret", Kind: LocalReturn, Ty: ret})
	return b
}

// Arg declares the next argument. Arguments must precede other locals.
func (b *Builder) Arg(name string, ty Ty) LocalID {
	if len(b.body.Locals) != b.body.ArgCount+1 {
		panic(fmt.Sprintf("argument %q declared after non-argument locals", name))
	}
	b.body.ArgCount++
	return b.local(name, LocalArg, ty)
}

func (b *Builder) Var(name string, ty Ty) LocalID { return b.local(name, LocalVar, ty) }

func (b *Builder) Temp(ty Ty) LocalID { return b.local("", LocalTemp, ty) }

func (b *Builder) local(name string, kind LocalKind, ty Ty) LocalID {
	b.body.Locals = append(b.body.Locals, Local{Name: name, Kind: kind, Ty: ty})
	return LocalAt(len(b.body.Locals) - 1)
}

// Block appends an empty block.
func (b *Builder) Block() BlockID {
	id := BlockAt(len(b.body.Blocks))
	b.body.Blocks = append(b.body.Blocks, Block{ID: id})
	return id
}

func (b *Builder) Assign(bb BlockID, dst Place, src RValue) {
	b.stmt(bb, Statement{Kind: StmtAssign, Assign: AssignStmt{Dst: dst, Src: src}})
}

func (b *Builder) StorageDead(bb BlockID, l LocalID) {
	b.stmt(bb, Statement{Kind: StmtStorageDead, Local: l})
}

func (b *Builder) stmt(bb BlockID, st Statement) {
	blk := &b.body.Blocks[bb]
	blk.Stmts = append(blk.Stmts, st)
}

func (b *Builder) Goto(bb, target BlockID) {
	b.body.Blocks[bb].Term = Terminator{Kind: TermGoto, Goto: GotoTerm{Target: target}}
}

func (b *Builder) If(bb BlockID, cond Operand, then, els BlockID) {
	b.body.Blocks[bb].Term = Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: then, Else: els}}
}

func (b *Builder) Switch(bb BlockID, discr Place, adt string, targets ...BlockID) {
	b.body.Blocks[bb].Term = Terminator{Kind: TermSwitch, Switch: SwitchTerm{Discr: discr, Adt: adt, Targets: targets}}
}

func (b *Builder) SwitchInt(bb BlockID, discr Operand, values []Const, targets ...BlockID) {
	b.body.Blocks[bb].Term = Terminator{Kind: TermSwitchInt, SwitchInt: SwitchIntTerm{Discr: discr, Values: values, Targets: targets}}
}

// Call terminates bb with a call. A NoLocalID dest means no destination.
func (b *Builder) Call(bb BlockID, fn Operand, args []Operand, dest LocalID, target BlockID) {
	call := CallTerm{Func: fn, Args: args, Target: target}
	if dest != NoLocalID {
		call.HasDest = true
		call.Dest = LocalPlace(dest)
	}
	b.body.Blocks[bb].Term = Terminator{Kind: TermCall, Call: call}
}

func (b *Builder) Drop(bb BlockID, place Place, target BlockID) {
	b.body.Blocks[bb].Term = Terminator{Kind: TermDrop, Drop: DropTerm{Place: place, Target: target}}
}

func (b *Builder) Assert(bb BlockID, cond Operand, expected bool, target BlockID) {
	b.body.Blocks[bb].Term = Terminator{Kind: TermAssert, Assert: AssertTerm{Cond: cond, Expected: expected, Target: target}}
}

func (b *Builder) Return(bb BlockID) {
	b.body.Blocks[bb].Term = Terminator{Kind: TermReturn}
}

func (b *Builder) Unreachable(bb BlockID) {
	b.body.Blocks[bb].Term = Terminator{Kind: TermUnreachable}
}

// Build returns the assembled body.
func (b *Builder) Build() *Body {
	out := b.body
	return &out
}

// Use is shorthand for an RValueUse.
func Use(op Operand) RValue { return RValue{Kind: RValueUse, Use: op} }

// Binary is shorthand for an RValueBinaryOp.
func Binary(op BinOp, l, r Operand) RValue {
	return RValue{Kind: RValueBinaryOp, Binary: BinaryOp{Op: op, Left: l, Right: r}}
}

// Ref is shorthand for an RValueRef.
func Ref(p Place, mut bool) RValue {
	return RValue{Kind: RValueRef, Ref: RefOp{Mut: mut, Place: p}}
}
