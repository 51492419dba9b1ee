package mir

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

// DumpOptions configures crate dumping.
type DumpOptions struct {
	// Only dumps the named definitions when non-empty.
	Only []string
}

// DumpCrate writes a human-readable representation of a crate bundle.
func DumpCrate(w io.Writer, c *Crate, opts DumpOptions) error {
	if w == nil || c == nil {
		return nil
	}
	defs := make([]*Def, 0, len(c.Defs))
	for i := range c.Defs {
		if len(opts.Only) > 0 && !slices.Contains(opts.Only, c.Defs[i].Name) {
			continue
		}
		defs = append(defs, &c.Defs[i])
	}
	slices.SortStableFunc(defs, func(a, b *Def) int {
		return strings.Compare(a.Name, b.Name)
	})

	fmt.Fprintf(w, "crate %s defs=%d\n", c.Name, len(defs))
	for _, d := range defs {
		if err := dumpDef(w, d); err != nil {
			return err
		}
	}
	return nil
}

func dumpDef(w io.Writer, d *Def) error {
	fmt.Fprintf(w, "\n%s %s", d.Kind, d.Name)
	if len(d.Generics.Params) > 0 {
		fmt.Fprintf(w, "<%s>", strings.Join(d.Generics.Params, ", "))
	}
	if d.Crate != "" {
		fmt.Fprintf(w, " (crate %s)", d.Crate)
	}
	fmt.Fprintln(w)
	for _, b := range d.Generics.Bounds {
		fmt.Fprintf(w, "  where %s\n", b)
	}
	switch d.Kind {
	case DefStruct, DefEnum:
		for _, v := range d.Variants {
			fmt.Fprintf(w, "  variant %s\n", v.Name)
			for _, f := range v.Fields {
				fmt.Fprintf(w, "    %s: %s\n", f.Name, f.Ty)
			}
		}
	case DefTrait:
		for _, s := range d.Supers {
			fmt.Fprintf(w, "  super %s\n", s)
		}
		for _, m := range d.Methods {
			fmt.Fprintf(w, "  method %s\n", m)
		}
	case DefImpl:
		if d.Impl != nil {
			fmt.Fprintf(w, "  for %s\n", d.Impl.Trait)
			names := make([]string, 0, len(d.Impl.Methods))
			for m := range d.Impl.Methods {
				names = append(names, m)
			}
			slices.Sort(names)
			for _, m := range names {
				fmt.Fprintf(w, "  method %s = %s\n", m, d.Impl.Methods[m])
			}
		}
	case DefTypeAlias:
		fmt.Fprintf(w, "  = %s\n", d.Alias)
	}
	if d.Body != nil {
		return DumpBody(w, d.Body)
	}
	return nil
}

// DumpBody writes the locals and blocks of a body.
func DumpBody(w io.Writer, b *Body) error {
	if w == nil || b == nil {
		return nil
	}
	fmt.Fprintf(w, "  locals:\n")
	for i := range b.Locals {
		l := b.Locals[i]
		name := l.Name
		if name == "" {
			name = "_"
		}
		fmt.Fprintf(w, "    L%d: %s %s name=%s\n", i, l.Ty, localKindStr(l.Kind), name)
	}
	fmt.Fprintf(w, "  start: bb%d\n", b.Start)
	for i := range b.Blocks {
		bb := &b.Blocks[i]
		fmt.Fprintf(w, "  bb%d:\n", i)
		for j := range bb.Stmts {
			fmt.Fprintf(w, "    %s\n", FormatStmt(&bb.Stmts[j]))
		}
		fmt.Fprintf(w, "    %s\n", FormatTerm(&bb.Term))
	}
	return nil
}

func localKindStr(k LocalKind) string {
	switch k {
	case LocalReturn:
		return "ret"
	case LocalArg:
		return "arg"
	case LocalVar:
		return "var"
	default:
		return "tmp"
	}
}

// FormatPlace renders a place such as (*L1).0[L2].
func FormatPlace(p Place) string {
	var s string
	if p.Kind == PlaceStatic {
		s = p.Static
	} else {
		s = fmt.Sprintf("L%d", p.Local)
	}
	for _, proj := range p.Proj {
		switch proj.Kind {
		case PlaceProjDeref:
			s = "(*" + s + ")"
		case PlaceProjField:
			s = fmt.Sprintf("%s.%d", s, proj.Field)
		case PlaceProjIndex:
			s = fmt.Sprintf("%s[L%d]", s, proj.IndexLocal)
		case PlaceProjDowncast:
			s = fmt.Sprintf("(%s as #%d)", s, proj.Variant)
		}
	}
	return s
}

func FormatOperand(op Operand) string {
	switch op.Kind {
	case OperandCopy:
		return "copy " + FormatPlace(op.Place)
	case OperandMove:
		return "move " + FormatPlace(op.Place)
	default:
		return FormatConst(op.Const)
	}
}

func FormatConst(c Const) string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d_%s", c.Int, c.Ty)
	case ConstUint:
		return fmt.Sprintf("%d_%s", c.Uint, c.Ty)
	case ConstBool:
		return fmt.Sprintf("%t", c.Bool)
	case ConstStr:
		return fmt.Sprintf("%q", c.Str)
	case ConstUnit:
		return "()"
	case ConstItem:
		if len(c.Substs) == 0 {
			return c.Item
		}
		parts := make([]string, len(c.Substs))
		for i, t := range c.Substs {
			parts[i] = t.String()
		}
		return c.Item + "::<" + strings.Join(parts, ", ") + ">"
	case ConstPromoted:
		return fmt.Sprintf("promoted[%d]", c.Promoted)
	}
	return "?"
}

var binOpStr = map[BinOp]string{
	BinAdd: "+", BinSub: "-", BinMul: "*", BinDiv: "/", BinRem: "%",
	BinBitAnd: "&", BinBitOr: "|", BinBitXor: "^", BinShl: "<<", BinShr: ">>",
	BinEq: "==", BinNe: "!=", BinLt: "<", BinLe: "<=", BinGt: ">", BinGe: ">=",
}

func FormatRValue(rv *RValue) string {
	switch rv.Kind {
	case RValueUse:
		return FormatOperand(rv.Use)
	case RValueRef:
		if rv.Ref.Mut {
			return "&mut " + FormatPlace(rv.Ref.Place)
		}
		return "&" + FormatPlace(rv.Ref.Place)
	case RValueUnaryOp:
		op := "!"
		if rv.Unary.Op == UnNeg {
			op = "-"
		}
		return op + FormatOperand(rv.Unary.Operand)
	case RValueBinaryOp, RValueCheckedBinaryOp:
		prefix := ""
		if rv.Kind == RValueCheckedBinaryOp {
			prefix = "checked "
		}
		return fmt.Sprintf("%s%s %s %s", prefix, FormatOperand(rv.Binary.Left), binOpStr[rv.Binary.Op], FormatOperand(rv.Binary.Right))
	case RValueCast:
		return fmt.Sprintf("%s as %s", FormatOperand(rv.Cast.Value), rv.Cast.To)
	case RValueAggregate:
		elems := make([]string, len(rv.Aggregate.Elems))
		for i, e := range rv.Aggregate.Elems {
			elems[i] = FormatOperand(e)
		}
		switch rv.Aggregate.Kind {
		case AggArray:
			return "[" + strings.Join(elems, ", ") + "]"
		case AggAdt:
			return fmt.Sprintf("%s#%d{%s}", rv.Aggregate.Adt, rv.Aggregate.Variant, strings.Join(elems, ", "))
		default:
			return "(" + strings.Join(elems, ", ") + ")"
		}
	case RValueLen:
		return "len " + FormatPlace(rv.Place)
	case RValueDiscriminant:
		return "discriminant " + FormatPlace(rv.Place)
	}
	return "?"
}

func FormatStmt(st *Statement) string {
	switch st.Kind {
	case StmtAssign:
		return fmt.Sprintf("%s = %s", FormatPlace(st.Assign.Dst), FormatRValue(&st.Assign.Src))
	case StmtStorageLive:
		return fmt.Sprintf("storage_live L%d", st.Local)
	case StmtStorageDead:
		return fmt.Sprintf("storage_dead L%d", st.Local)
	case StmtSetDiscriminant:
		return fmt.Sprintf("discriminant(%s) = %d", FormatPlace(st.Place), st.Variant)
	default:
		return "nop"
	}
}

func FormatTerm(t *Terminator) string {
	switch t.Kind {
	case TermGoto:
		return fmt.Sprintf("goto bb%d", t.Goto.Target)
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d", FormatOperand(t.If.Cond), t.If.Then, t.If.Else)
	case TermSwitch:
		return fmt.Sprintf("switch %s: %s", FormatPlace(t.Switch.Discr), formatTargets(t.Switch.Targets))
	case TermSwitchInt:
		vals := make([]string, len(t.SwitchInt.Values))
		for i, v := range t.SwitchInt.Values {
			vals[i] = FormatConst(v)
		}
		return fmt.Sprintf("switch_int %s [%s]: %s", FormatOperand(t.SwitchInt.Discr), strings.Join(vals, ", "), formatTargets(t.SwitchInt.Targets))
	case TermCall:
		args := make([]string, len(t.Call.Args))
		for i, a := range t.Call.Args {
			args[i] = FormatOperand(a)
		}
		s := fmt.Sprintf("call %s(%s)", FormatOperand(t.Call.Func), strings.Join(args, ", "))
		if t.Call.HasDest {
			s = FormatPlace(t.Call.Dest) + " = " + s
		}
		if t.Call.Target == NoBlockID {
			return s + " -> !"
		}
		return fmt.Sprintf("%s -> bb%d", s, t.Call.Target)
	case TermReturn:
		return "return"
	case TermDrop:
		return fmt.Sprintf("drop %s -> bb%d", FormatPlace(t.Drop.Place), t.Drop.Target)
	case TermAssert:
		return fmt.Sprintf("assert %s == %t -> bb%d", FormatOperand(t.Assert.Cond), t.Assert.Expected, t.Assert.Target)
	case TermResume:
		return "resume"
	case TermUnreachable:
		return "unreachable"
	}
	return "<unterminated>"
}

func formatTargets(ts []BlockID) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = fmt.Sprintf("bb%d", t)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
