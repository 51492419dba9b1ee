package mir

import (
	"errors"
	"fmt"
)

// ValidateCrate checks every body of the crate. Returns error if any
// invariant is violated.
func ValidateCrate(c *Crate) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := range c.Defs {
		d := &c.Defs[i]
		if d.Body == nil {
			continue
		}
		if err := Validate(d.Body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks body invariants.
func Validate(b *Body) error {
	if b == nil {
		return nil
	}

	var errs []error

	if len(b.Blocks) == 0 {
		return errors.New("body has no blocks")
	}
	if !b.HasBlock(b.Start) {
		errs = append(errs, fmt.Errorf("start block bb%d does not exist", b.Start))
	}
	if len(b.Locals) == 0 || b.Locals[0].Kind != LocalReturn {
		errs = append(errs, errors.New("local L0 must be the return slot"))
	}
	if b.ArgCount < 0 || b.ArgCount > len(b.Locals)-1 {
		errs = append(errs, fmt.Errorf("argument count %d exceeds local count %d", b.ArgCount, len(b.Locals)))
	}

	if err := validateBlocksTerminated(b); err != nil {
		errs = append(errs, err)
	}
	if err := validateBlockTargets(b); err != nil {
		errs = append(errs, err)
	}
	if err := validateLocalIDs(b); err != nil {
		errs = append(errs, err)
	}
	for i := range b.Promoted {
		if err := Validate(&b.Promoted[i]); err != nil {
			errs = append(errs, fmt.Errorf("promoted %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

// validateBlocksTerminated checks that every block ends with a terminator.
func validateBlocksTerminated(b *Body) error {
	var errs []error
	for i := range b.Blocks {
		if b.Blocks[i].Term.Kind == TermNone {
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		}
		if int(b.Blocks[i].ID) != i {
			errs = append(errs, fmt.Errorf("bb%d: block carries id bb%d", i, b.Blocks[i].ID))
		}
	}
	return errors.Join(errs...)
}

// validateBlockTargets checks that all block target IDs exist.
func validateBlockTargets(b *Body) error {
	var errs []error

	for i := range b.Blocks {
		bb := &b.Blocks[i]
		for _, succ := range bb.Term.Successors() {
			if !b.HasBlock(succ) {
				errs = append(errs, fmt.Errorf("bb%d: target bb%d does not exist", i, succ))
			}
		}
		switch bb.Term.Kind {
		case TermSwitchInt:
			sw := &bb.Term.SwitchInt
			if len(sw.Targets) != len(sw.Values)+1 {
				errs = append(errs, fmt.Errorf("bb%d: switch_int has %d values but %d targets",
					i, len(sw.Values), len(sw.Targets)))
			}
		case TermSwitch:
			if len(bb.Term.Switch.Targets) == 0 {
				errs = append(errs, fmt.Errorf("bb%d: switch without targets", i))
			}
		}
	}
	return errors.Join(errs...)
}

// validateLocalIDs checks that all LocalID references are valid.
func validateLocalIDs(b *Body) error {
	var errs []error

	checkPlace := func(p Place, context string) {
		if p.Kind == PlaceLocal && !b.HasLocal(p.Local) {
			errs = append(errs, fmt.Errorf("%s: local L%d does not exist", context, p.Local))
		}
		for _, proj := range p.Proj {
			if proj.Kind == PlaceProjIndex && !b.HasLocal(proj.IndexLocal) {
				errs = append(errs, fmt.Errorf("%s: index local L%d does not exist", context, proj.IndexLocal))
			}
		}
	}

	checkOperand := func(op Operand, context string) {
		if place, ok := op.UsedPlace(); ok {
			checkPlace(place, context)
		}
	}

	checkRValue := func(rv *RValue, context string) {
		switch rv.Kind {
		case RValueUse:
			checkOperand(rv.Use, context)
		case RValueRef:
			checkPlace(rv.Ref.Place, context)
		case RValueUnaryOp:
			checkOperand(rv.Unary.Operand, context)
		case RValueBinaryOp, RValueCheckedBinaryOp:
			checkOperand(rv.Binary.Left, context)
			checkOperand(rv.Binary.Right, context)
		case RValueCast:
			checkOperand(rv.Cast.Value, context)
		case RValueAggregate:
			for _, elem := range rv.Aggregate.Elems {
				checkOperand(elem, context)
			}
		case RValueLen, RValueDiscriminant:
			checkPlace(rv.Place, context)
		}
	}

	for i := range b.Blocks {
		bb := &b.Blocks[i]
		for j := range bb.Stmts {
			st := &bb.Stmts[j]
			ctx := fmt.Sprintf("bb%d stmt %d", i, j)

			switch st.Kind {
			case StmtAssign:
				checkPlace(st.Assign.Dst, ctx)
				checkRValue(&st.Assign.Src, ctx)
			case StmtStorageLive, StmtStorageDead:
				if !b.HasLocal(st.Local) {
					errs = append(errs, fmt.Errorf("%s: local L%d does not exist", ctx, st.Local))
				}
			case StmtSetDiscriminant:
				checkPlace(st.Place, ctx)
			}
		}

		// Check terminator operands
		ctx := fmt.Sprintf("bb%d terminator", i)
		switch bb.Term.Kind {
		case TermIf:
			checkOperand(bb.Term.If.Cond, ctx)
		case TermSwitch:
			checkPlace(bb.Term.Switch.Discr, ctx)
		case TermSwitchInt:
			checkOperand(bb.Term.SwitchInt.Discr, ctx)
		case TermCall:
			checkOperand(bb.Term.Call.Func, ctx)
			for _, arg := range bb.Term.Call.Args {
				checkOperand(arg, ctx)
			}
			if bb.Term.Call.HasDest {
				checkPlace(bb.Term.Call.Dest, ctx)
			}
		case TermDrop:
			checkPlace(bb.Term.Drop.Place, ctx)
		case TermAssert:
			checkOperand(bb.Term.Assert.Cond, ctx)
		}
	}

	return errors.Join(errs...)
}
