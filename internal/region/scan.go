package region

import (
	"mirlean/internal/diag"
	"mirlean/internal/mir"
)

// borrowSources maps every local that ever holds a mutable borrow to the
// owning locals it may write back to. Mutable-reference arguments are their
// own owners and never appear as keys.
type borrowSources map[mir.LocalID]mir.LocalSet

func computeBorrowSources(body *mir.Body) borrowSources {
	src := borrowSources{}
	ownersOf := func(p mir.Place) mir.LocalSet {
		root := p.Root()
		if root == mir.NoLocalID {
			return nil
		}
		if len(p.Proj) > 0 && p.Proj[0].Kind == mir.PlaceProjDeref {
			if s, ok := src[root]; ok {
				return s
			}
		}
		return mir.NewLocalSet(root)
	}
	merge := func(dst mir.LocalID, owners mir.LocalSet) bool {
		if len(owners) == 0 || owners.Has(dst) {
			return false
		}
		cur, ok := src[dst]
		if !ok {
			cur = mir.LocalSet{}
			src[dst] = cur
		}
		before := len(cur)
		cur.Union(owners)
		return len(cur) != before || !ok
	}

	// Reborrows may appear before the borrow they extend in block order.
	changed := true
	for changed {
		changed = false
		for i := range body.Blocks {
			bb := &body.Blocks[i]
			for j := range bb.Stmts {
				st := &bb.Stmts[j]
				if st.Kind != mir.StmtAssign || !st.Assign.Dst.IsPlainLocal() {
					continue
				}
				dst := st.Assign.Dst.Local
				rv := &st.Assign.Src
				switch {
				case rv.Kind == mir.RValueRef && rv.Ref.Mut:
					if merge(dst, ownersOf(rv.Ref.Place)) {
						changed = true
					}
				case rv.Kind == mir.RValueUse && body.LocalTy(dst).IsMutRef():
					if p, ok := rv.Use.UsedPlace(); ok && p.IsPlainLocal() {
						if s, aliased := src[p.Local]; aliased && merge(dst, s) {
							changed = true
						}
					}
				}
			}
			call := &bb.Term.Call
			if bb.Term.Kind == mir.TermCall && call.HasDest && call.Dest.IsPlainLocal() &&
				body.LocalTy(call.Dest.Local).IsMutRef() && len(call.Args) > 0 {
				if p, ok := call.Args[0].UsedPlace(); ok && p.IsPlainLocal() {
					owners := src[p.Local]
					if owners == nil && body.LocalTy(p.Local).IsMutRef() {
						owners = mir.NewLocalSet(p.Local)
					}
					if merge(call.Dest.Local, owners) {
						changed = true
					}
				}
			}
		}
	}
	return src
}

// visitor receives the classification of each touched local in program
// order. A nil callback ignores that class.
type visitor struct {
	use  func(mir.LocalID)
	def  func(mir.LocalID)
	drop func(mir.LocalID)
}

func (v *visitor) addUse(id mir.LocalID) {
	if v.use != nil && id != mir.NoLocalID {
		v.use(id)
	}
}

func (v *visitor) addDef(id mir.LocalID) {
	if v.def != nil && id != mir.NoLocalID {
		v.def(id)
	}
}

func (v *visitor) addUsesFromPlace(p mir.Place) {
	v.addUse(p.Root())
	v.addIndexUses(p)
}

func (v *visitor) addIndexUses(p mir.Place) {
	for _, proj := range p.Proj {
		if proj.Kind == mir.PlaceProjIndex {
			v.addUse(proj.IndexLocal)
		}
	}
}

func (v *visitor) addUsesFromOperand(op *mir.Operand) {
	if p, ok := op.UsedPlace(); ok {
		v.addUsesFromPlace(p)
	}
}

// addUsesFromPlaceWrite records what a write to p reads: the root when only
// part of it is replaced.
func (v *visitor) addUsesFromPlaceWrite(body *mir.Body, p mir.Place) {
	v.addIndexUses(p)
	if isWholeWrite(body, p) {
		return
	}
	v.addUse(p.Root())
}

// isWholeWrite reports whether writing p replaces the root local entirely:
// a plain local, or a dereference of a reference-typed local.
func isWholeWrite(body *mir.Body, p mir.Place) bool {
	if len(p.Proj) == 0 {
		return true
	}
	return len(p.Proj) == 1 && p.Proj[0].Kind == mir.PlaceProjDeref && body.LocalTy(p.Local).Kind == mir.TyRef
}

func (v *visitor) addUsesFromRValue(rv *mir.RValue) error {
	switch rv.Kind {
	case mir.RValueUse:
		v.addUsesFromOperand(&rv.Use)
	case mir.RValueRef:
		v.addUsesFromPlace(rv.Ref.Place)
	case mir.RValueUnaryOp:
		v.addUsesFromOperand(&rv.Unary.Operand)
	case mir.RValueBinaryOp, mir.RValueCheckedBinaryOp:
		v.addUsesFromOperand(&rv.Binary.Left)
		v.addUsesFromOperand(&rv.Binary.Right)
	case mir.RValueCast:
		v.addUsesFromOperand(&rv.Cast.Value)
	case mir.RValueAggregate:
		for i := range rv.Aggregate.Elems {
			v.addUsesFromOperand(&rv.Aggregate.Elems[i])
		}
	case mir.RValueLen, mir.RValueDiscriminant:
		v.addUsesFromPlace(rv.Place)
	default:
		return diag.Errorf(diag.TransUnsupportedConstruct, "rvalue %s", mir.FormatRValue(rv))
	}
	return nil
}

// scanBlock classifies the locals touched by one block.
func scanBlock(body *mir.Body, sources borrowSources, id mir.BlockID, v *visitor) error {
	bb := body.Block(id)
	if bb == nil {
		return diag.Errorf(diag.TransInvalidIR, "block bb%d does not exist", id)
	}
	for i := range bb.Stmts {
		st := &bb.Stmts[i]
		switch st.Kind {
		case mir.StmtAssign:
			if err := v.addUsesFromRValue(&st.Assign.Src); err != nil {
				return diag.Locate(err, "", int32(id), i)
			}
			dst := st.Assign.Dst
			if dst.Kind == mir.PlaceStatic {
				return diag.Errorf(diag.TransUnsupportedConstruct, "write to static %s", dst.Static).At(int32(id), i)
			}
			v.addUsesFromPlaceWrite(body, dst)
			v.addDef(dst.Root())
		case mir.StmtStorageLive, mir.StmtStorageDead, mir.StmtNop:
		case mir.StmtSetDiscriminant:
			return diag.Errorf(diag.TransUnsupportedConstruct, "in-place discriminant write to %s", mir.FormatPlace(st.Place)).At(int32(id), i)
		default:
			return diag.Errorf(diag.TransUnsupportedConstruct, "statement kind %d", st.Kind).At(int32(id), i)
		}
	}

	term := &bb.Term
	switch term.Kind {
	case mir.TermIf:
		v.addUsesFromOperand(&term.If.Cond)
	case mir.TermSwitch:
		v.addUsesFromPlace(term.Switch.Discr)
	case mir.TermSwitchInt:
		v.addUsesFromOperand(&term.SwitchInt.Discr)
	case mir.TermAssert:
		v.addUsesFromOperand(&term.Assert.Cond)
	case mir.TermCall:
		v.addUsesFromOperand(&term.Call.Func)
		for i := range term.Call.Args {
			v.addUsesFromOperand(&term.Call.Args[i])
		}
		// &mut arguments come back rebound from the callee's result tuple.
		for i := range term.Call.Args {
			if p, ok := term.Call.Args[i].UsedPlace(); ok && p.IsPlainLocal() && body.LocalTy(p.Local).IsMutRef() {
				v.addDef(p.Local)
			}
		}
		if term.Call.HasDest {
			v.addUsesFromPlaceWrite(body, term.Call.Dest)
			v.addDef(term.Call.Dest.Root())
		}
	case mir.TermDrop:
		root := term.Drop.Place.Root()
		if owners, ok := sources[root]; ok {
			v.addUse(root)
			for _, o := range owners.Sorted() {
				v.addUse(o)
			}
			for _, o := range owners.Sorted() {
				v.addDef(o)
			}
		}
		if v.drop != nil && root != mir.NoLocalID {
			v.drop(root)
		}
	case mir.TermReturn:
		v.addUse(mir.ReturnLocal)
		for _, a := range body.MutRefArgs() {
			v.addUse(a)
		}
	case mir.TermGoto, mir.TermResume, mir.TermUnreachable:
	default:
		return diag.Errorf(diag.TransUnsupportedConstruct, "terminator kind %d", term.Kind).At(int32(id), -1)
	}
	return nil
}
