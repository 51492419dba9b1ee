package emit

import (
	"fmt"
	"strings"

	"mirlean/internal/mir"
	"mirlean/internal/target"
)

var infixOps = map[mir.BinOp]string{
	mir.BinAdd: "+",
	mir.BinMul: "*",
	mir.BinEq:  "=ᵇ",
	mir.BinNe:  "≠ᵇ",
	mir.BinLt:  "<ᵇ",
	mir.BinLe:  "≤ᵇ",
	mir.BinGt:  ">ᵇ",
	mir.BinGe:  "≥ᵇ",
}

// checkedOps fail instead of wrapping or trapping.
var checkedOps = map[mir.BinOp]string{
	mir.BinDiv: "checked.div",
	mir.BinRem: "checked.mod",
	mir.BinShl: "checked.shl",
	mir.BinShr: "checked.shr",
}

func (f *fnTranslator) operand(op *mir.Operand) (target.Value, error) {
	if p, ok := op.UsedPlace(); ok {
		return f.readPlace(p)
	}
	return f.constValue(op.Const), nil
}

func (f *fnTranslator) operands(ops []mir.Operand) ([]target.Value, error) {
	out := make([]target.Value, len(ops))
	for i := range ops {
		v, err := f.operand(&ops[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fnTranslator) constValue(c mir.Const) target.Value {
	if c.Kind != mir.ConstItem {
		return target.Total(target.Const(c))
	}
	f.deps.Add(c.Item)
	if d, ok := f.t.crate.Lookup(c.Item); ok && (d.Kind == mir.DefStatic || d.Kind == mir.DefConst) {
		return target.Partial(target.Ident(c.Item))
	}
	return target.Total(target.Ident(c.Item))
}

func (f *fnTranslator) rvalue(rv *mir.RValue) (target.Value, error) {
	switch rv.Kind {
	case mir.RValueUse:
		return f.operand(&rv.Use)
	case mir.RValueRef:
		if rv.Ref.Mut {
			return target.Value{}, unsupported("mutable borrow outside an assignment to a local")
		}
		return f.readPlace(rv.Ref.Place)
	case mir.RValueUnaryOp:
		return f.unary(&rv.Unary)
	case mir.RValueBinaryOp:
		return f.binary(&rv.Binary)
	case mir.RValueCheckedBinaryOp:
		v, err := f.binary(&rv.Binary)
		if err != nil {
			return target.Value{}, err
		}
		if v.Partial {
			return target.Partial(fmt.Sprintf("sem.map (λx, (x, bool.tt)) %s", target.Paren(v.Text))), nil
		}
		return target.Total(fmt.Sprintf("(%s, bool.tt)", v.Text)), nil
	case mir.RValueCast:
		return f.cast(&rv.Cast)
	case mir.RValueAggregate:
		return f.aggregate(&rv.Aggregate)
	case mir.RValueLen:
		v, err := f.readPlace(rv.Place)
		if err != nil {
			return target.Value{}, err
		}
		return target.Seq(0, []target.Value{v}, func(args []string) target.Value {
			return target.Total("list.length " + args[0])
		}), nil
	case mir.RValueDiscriminant:
		ty, err := f.placeTy(rv.Place)
		if err != nil {
			return target.Value{}, err
		}
		v, err := f.readPlace(rv.Place)
		if err != nil {
			return target.Value{}, err
		}
		return f.discr(ty.Deref(), v)
	}
	return target.Value{}, unsupported("rvalue %s", mir.FormatRValue(rv))
}

func (f *fnTranslator) discr(ty mir.Ty, v target.Value) (target.Value, error) {
	d, ok := f.t.crate.Lookup(ty.Name)
	if ty.Kind != mir.TyAdt || !ok || d.Kind != mir.DefEnum {
		return target.Value{}, unsupported("discriminant of %s", ty)
	}
	f.deps.Add(d.Name)
	return target.Seq(0, []target.Value{v}, func(args []string) target.Value {
		return target.Total(fmt.Sprintf("(%s.discr %s)", target.Ident(d.Name), args[0]))
	}), nil
}

func (f *fnTranslator) unary(u *mir.UnaryOp) (target.Value, error) {
	v, err := f.operand(&u.Operand)
	if err != nil {
		return target.Value{}, err
	}
	ty := f.operandTy(&u.Operand).Deref()
	switch {
	case u.Op == mir.UnNot && ty.Kind == mir.TyBool:
		return target.Seq(0, []target.Value{v}, func(args []string) target.Value {
			return target.Total("bool.bnot " + args[0])
		}), nil
	case u.Op == mir.UnNeg && ty.Kind == mir.TyInt:
		return target.Seq(0, []target.Value{v}, func(args []string) target.Value {
			return target.Total("-" + args[0])
		}), nil
	}
	return target.Value{}, unsupported("unary operator on %s", ty)
}

func (f *fnTranslator) binary(b *mir.BinaryOp) (target.Value, error) {
	vals, err := f.operands([]mir.Operand{b.Left, b.Right})
	if err != nil {
		return target.Value{}, err
	}
	ty := f.operandTy(&b.Left).Deref()
	infix := func(op string) target.Value {
		return target.Seq(0, vals, func(args []string) target.Value {
			return target.Total(fmt.Sprintf("%s %s %s", args[0], op, args[1]))
		})
	}
	prefix := func(fn string, partial bool) target.Value {
		return target.Seq(0, vals, func(args []string) target.Value {
			text := fmt.Sprintf("%s %s %s", fn, args[0], args[1])
			if partial {
				return target.Partial(text)
			}
			return target.Total(text)
		})
	}

	if op, ok := infixOps[b.Op]; ok {
		return infix(op), nil
	}
	if fn, ok := checkedOps[b.Op]; ok {
		return prefix(fn, true), nil
	}
	switch b.Op {
	case mir.BinSub:
		if ty.Kind == mir.TyUint {
			return prefix("checked.sub", true), nil
		}
		return infix("-"), nil
	case mir.BinBitAnd:
		if ty.Kind == mir.TyBool {
			return infix("&&"), nil
		}
		return prefix("land", false), nil
	case mir.BinBitOr:
		if ty.Kind == mir.TyBool {
			return infix("||"), nil
		}
		return prefix("lor", false), nil
	case mir.BinBitXor:
		if ty.Kind == mir.TyBool {
			return prefix("xor", false), nil
		}
		return prefix("lxor", false), nil
	}
	return target.Value{}, unsupported("binary operator %d", b.Op)
}

func intBits(t mir.Ty) int {
	if t.Bits == 0 {
		return 64
	}
	return int(t.Bits)
}

// narrowing reports whether some value of from has no counterpart in to.
func narrowing(from, to mir.Ty) bool {
	if !from.IsInteger() || !to.IsInteger() {
		return false
	}
	fb, tb := intBits(from), intBits(to)
	switch {
	case from.Kind == to.Kind:
		return tb < fb
	case from.Kind == mir.TyInt:
		return true
	default:
		return tb <= fb
	}
}

func tyKey(t mir.Ty) string {
	return strings.Trim(strings.ReplaceAll(target.Ty(t), " ", "_"), "()")
}

func (f *fnTranslator) cast(c *mir.CastOp) (target.Value, error) {
	v, err := f.operand(&c.Value)
	if err != nil {
		return target.Value{}, err
	}
	from := c.From
	if from.IsUnit() {
		from = f.operandTy(&c.Value)
	}
	from = from.Deref()
	switch c.Kind {
	case mir.CastUnsize, mir.CastReifyFnPointer:
		return v, nil
	}
	if from.Equal(c.To) {
		return v, nil
	}
	if from.Kind == mir.TyAdt {
		disc, err := f.discr(from, v)
		if err != nil {
			return target.Value{}, err
		}
		return f.convert(mir.Int(0), c.To, disc)
	}
	if (from.Kind != mir.TyBool && !from.IsInteger()) || !c.To.IsInteger() {
		return target.Value{}, unsupported("cast from %s to %s", from, c.To)
	}
	return f.convert(from, c.To, v)
}

func (f *fnTranslator) convert(from, to mir.Ty, v target.Value) (target.Value, error) {
	fn := tyKey(from) + "_to_" + tyKey(to)
	partial := narrowing(from, to)
	return target.Seq(0, []target.Value{v}, func(args []string) target.Value {
		text := fmt.Sprintf("(%s %s)", fn, args[0])
		if partial {
			return target.Partial(text)
		}
		return target.Total(text)
	}), nil
}

func (f *fnTranslator) aggregate(a *mir.Aggregate) (target.Value, error) {
	vals, err := f.operands(a.Elems)
	if err != nil {
		return target.Value{}, err
	}
	switch a.Kind {
	case mir.AggTuple:
		return target.Seq(0, vals, func(args []string) target.Value {
			return target.Total(target.MkTuple(args))
		}), nil
	case mir.AggArray:
		return target.Seq(0, vals, func(args []string) target.Value {
			return target.Total("[" + strings.Join(args, ", ") + "]")
		}), nil
	}

	d, ok := f.t.crate.Lookup(a.Adt)
	if !ok || !d.Kind.IsDataType() {
		return target.Value{}, unsupported("aggregate of unknown type %s", a.Adt)
	}
	if a.Variant < 0 || a.Variant >= len(d.Variants) {
		return target.Value{}, unsupported("%s has no variant #%d", a.Adt, a.Variant)
	}
	f.deps.Add(d.Name)
	ctor := target.Ident(d.Name + ".mk")
	if d.Kind == mir.DefEnum {
		ctor = target.Ident(d.Name + "." + d.Variants[a.Variant].Name)
	}
	return target.Seq(0, vals, func(args []string) target.Value {
		return target.Total(strings.Join(append([]string{ctor}, args...), " "))
	}), nil
}
