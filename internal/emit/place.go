package emit

import (
	"fmt"
	"strings"

	"mirlean/internal/diag"
	"mirlean/internal/lens"
	"mirlean/internal/mir"
	"mirlean/internal/target"
)

// wrap prefixes a continuation with bindings.
type wrap func(cont string) string

func unsupported(format string, args ...any) error {
	return diag.Errorf(diag.TransUnsupportedConstruct, format, args...)
}

// adtFields returns the fields of variant of the ADT ty, with generic
// arguments substituted.
func (f *fnTranslator) adtFields(ty mir.Ty, variant int) (*mir.Def, []mir.Field, error) {
	d, ok := f.t.crate.Lookup(ty.Name)
	if !ok || !d.Kind.IsDataType() {
		return nil, nil, unsupported("unknown data type %s", ty.Name)
	}
	if variant < 0 || variant >= len(d.Variants) {
		return nil, nil, unsupported("%s has no variant #%d", ty.Name, variant)
	}
	subst := map[string]mir.Ty{}
	for i, p := range d.Generics.Params {
		if i < len(ty.Args) {
			subst[p] = ty.Args[i]
		}
	}
	fields := make([]mir.Field, len(d.Variants[variant].Fields))
	for i, fl := range d.Variants[variant].Fields {
		fields[i] = mir.Field{Name: fl.Name, Ty: fl.Ty.Subst(subst)}
	}
	return d, fields, nil
}

// placeTy computes the type of p.
func (f *fnTranslator) placeTy(p mir.Place) (mir.Ty, error) {
	if p.Kind == mir.PlaceStatic {
		d, ok := f.t.crate.Lookup(p.Static)
		if !ok {
			return mir.Ty{}, unsupported("unknown static %s", p.Static)
		}
		return d.Sig.Ret, nil
	}
	ty := f.body.LocalTy(p.Local)
	variant := 0
	for _, proj := range p.Proj {
		switch proj.Kind {
		case mir.PlaceProjDeref:
			ty = ty.Elem()
		case mir.PlaceProjIndex:
			ty = ty.Elem()
		case mir.PlaceProjDowncast:
			variant = proj.Variant
			continue
		case mir.PlaceProjField:
			switch ty.Kind {
			case mir.TyTuple:
				if proj.Field >= len(ty.Args) {
					return mir.Ty{}, unsupported("field %d of %s", proj.Field, ty)
				}
				ty = ty.Args[proj.Field]
			case mir.TyAdt:
				_, fields, err := f.adtFields(ty, variant)
				if err != nil {
					return mir.Ty{}, err
				}
				if proj.Field >= len(fields) {
					return mir.Ty{}, unsupported("field %d of %s", proj.Field, ty)
				}
				ty = fields[proj.Field].Ty
			default:
				return mir.Ty{}, unsupported("field of %s", ty)
			}
		}
		variant = 0
	}
	return ty, nil
}

func (f *fnTranslator) operandTy(op *mir.Operand) mir.Ty {
	if p, ok := op.UsedPlace(); ok {
		ty, err := f.placeTy(p)
		if err != nil {
			return mir.Unit()
		}
		return ty
	}
	return op.Const.Ty
}

// tupleElem reads element idx of an n-tuple; tuples nest to the right.
func tupleElem(val string, idx, n int) string {
	var b strings.Builder
	b.WriteString(val)
	for range idx {
		b.WriteString(".2")
	}
	if idx < n-1 {
		b.WriteString(".1")
	}
	return b.String()
}

func isPositional(fields []mir.Field) bool {
	for _, fl := range fields {
		if fl.Name == "" {
			return true
		}
		if fl.Name[0] >= '0' && fl.Name[0] <= '9' {
			return true
		}
	}
	return false
}

// downcastBase returns the local a downcast applies to. Only references may
// be looked through, so the match in front of it bound the payload names.
func downcastBase(p mir.Place, upto int) (mir.LocalID, bool) {
	for _, proj := range p.Proj[:upto] {
		if proj.Kind != mir.PlaceProjDeref {
			return mir.NoLocalID, false
		}
	}
	return p.Local, p.Kind == mir.PlaceLocal
}

// readPlace renders a read of p. Borrows carry values, so a dereference is
// the borrow itself.
func (f *fnTranslator) readPlace(p mir.Place) (target.Value, error) {
	if p.Kind == mir.PlaceStatic {
		if len(p.Proj) > 0 {
			return target.Value{}, unsupported("projection of static %s", p.Static)
		}
		f.deps.Add(p.Static)
		return target.Partial(target.Ident(p.Static)), nil
	}
	return f.readProj(p, len(p.Proj))
}

func (f *fnTranslator) readProj(p mir.Place, n int) (target.Value, error) {
	if n == 0 {
		return target.Total(f.names[p.Local]), nil
	}
	proj := p.Proj[n-1]
	prefix := mir.Place{Kind: p.Kind, Local: p.Local, Proj: p.Proj[:n-1]}
	switch proj.Kind {
	case mir.PlaceProjDeref:
		return f.readProj(p, n-1)
	case mir.PlaceProjDowncast:
		return target.Value{}, unsupported("downcast of %s outside a field read", mir.FormatPlace(p))
	case mir.PlaceProjIndex:
		base, err := f.readProj(p, n-1)
		if err != nil {
			return target.Value{}, err
		}
		idx := f.names[proj.IndexLocal]
		return target.Seq(0, []target.Value{base}, func(args []string) target.Value {
			return target.Partial(fmt.Sprintf("list.nth %s %s", args[0], idx))
		}), nil
	}

	// Field
	if n >= 2 && p.Proj[n-2].Kind == mir.PlaceProjDowncast {
		local, ok := downcastBase(p, n-2)
		if !ok {
			return target.Value{}, unsupported("variant field of %s", mir.FormatPlace(p))
		}
		return target.Total(fmt.Sprintf("%s_%d", f.names[local], proj.Field)), nil
	}
	baseTy, err := f.placeTy(prefix)
	if err != nil {
		return target.Value{}, err
	}
	baseTy = baseTy.Deref()
	base, err := f.readProj(p, n-1)
	if err != nil {
		return target.Value{}, err
	}
	switch baseTy.Kind {
	case mir.TyTuple:
		return target.Seq(0, []target.Value{base}, func(args []string) target.Value {
			return target.Total(tupleElem(args[0], proj.Field, len(baseTy.Args)))
		}), nil
	case mir.TyAdt:
		d, fields, err := f.adtFields(baseTy, 0)
		if err != nil {
			return target.Value{}, err
		}
		if d.Kind != mir.DefStruct || proj.Field >= len(fields) {
			return target.Value{}, unsupported("field %d of %s", proj.Field, baseTy)
		}
		f.deps.Add(d.Name)
		adt := target.Ident(d.Name)
		if isPositional(fields) {
			vars := make([]string, len(fields))
			for i := range vars {
				vars[i] = fmt.Sprintf("x%d", i)
			}
			return target.Seq(0, []target.Value{base}, func(args []string) target.Value {
				return target.Total(fmt.Sprintf("match %s with %s.mk %s := x%d end", args[0], adt, strings.Join(vars, " "), proj.Field))
			}), nil
		}
		field := target.Ident(fields[proj.Field].Name)
		return target.Seq(0, []target.Value{base}, func(args []string) target.Value {
			return target.Total(fmt.Sprintf("(%s.%s %s)", adt, field, args[0]))
		}), nil
	}
	return target.Value{}, unsupported("field of %s", baseTy)
}

// writePlace binds the new value of p. Writing a projection rebuilds the
// enclosing value and writes that back to the root.
func (f *fnTranslator) writePlace(st *state, p mir.Place, v target.Value) (wrap, error) {
	if p.Kind == mir.PlaceStatic {
		return nil, unsupported("write to static %s", p.Static)
	}
	return f.writeProj(st, p, len(p.Proj), v)
}

func (f *fnTranslator) writeProj(st *state, p mir.Place, n int, v target.Value) (wrap, error) {
	if n == 0 {
		st.bound.Add(p.Local)
		name := f.names[p.Local]
		return func(cont string) string { return target.Bind(name, v, cont) }, nil
	}
	proj := p.Proj[n-1]
	prefix := mir.Place{Kind: p.Kind, Local: p.Local, Proj: p.Proj[:n-1]}
	if proj.Kind == mir.PlaceProjDeref {
		return f.writeProj(st, p, n-1, v)
	}
	base, err := f.readProj(p, n-1)
	if err != nil {
		return nil, err
	}

	var updated target.Value
	switch proj.Kind {
	case mir.PlaceProjIndex:
		idx := f.names[proj.IndexLocal]
		updated = target.Seq(0, []target.Value{v, base}, func(args []string) target.Value {
			return target.Total(fmt.Sprintf("list.update %s %s %s", args[1], idx, args[0]))
		})
	case mir.PlaceProjField:
		baseTy, err := f.placeTy(prefix)
		if err != nil {
			return nil, err
		}
		baseTy = baseTy.Deref()
		switch baseTy.Kind {
		case mir.TyTuple:
			arity := len(baseTy.Args)
			updated = target.Seq(0, []target.Value{v, base}, func(args []string) target.Value {
				elems := make([]string, arity)
				for i := range elems {
					elems[i] = tupleElem(args[1], i, arity)
				}
				elems[proj.Field] = args[0]
				return target.Total(target.MkTuple(elems))
			})
		case mir.TyAdt:
			d, fields, err := f.adtFields(baseTy, 0)
			if err != nil {
				return nil, err
			}
			if d.Kind != mir.DefStruct || isPositional(fields) || proj.Field >= len(fields) {
				return nil, unsupported("write to field %d of %s", proj.Field, baseTy)
			}
			f.deps.Add(d.Name)
			adt, field := target.Ident(d.Name), target.Ident(fields[proj.Field].Name)
			updated = target.Seq(0, []target.Value{v, base}, func(args []string) target.Value {
				return target.Total(fmt.Sprintf("⦃ %s, %s := %s, %s ⦄", adt, field, args[0], args[1]))
			})
		default:
			return nil, unsupported("write to field of %s", baseTy)
		}
	default:
		return nil, unsupported("write to %s", mir.FormatPlace(p))
	}
	return f.writeProj(st, p, n-1, updated)
}

// lensPath splits the target of a mutable borrow into the local it starts
// from and the accessors applied after it.
func (f *fnTranslator) lensPath(p mir.Place) (mir.LocalID, lens.Chain, error) {
	if p.Kind != mir.PlaceLocal {
		return mir.NoLocalID, nil, unsupported("borrow of static %s", p.Static)
	}
	var chain lens.Chain
	ty := f.body.LocalTy(p.Local)
	for i, proj := range p.Proj {
		switch proj.Kind {
		case mir.PlaceProjDeref:
			if i != 0 {
				return mir.NoLocalID, nil, unsupported("borrow through nested reference %s", mir.FormatPlace(p))
			}
			ty = ty.Elem()
		case mir.PlaceProjIndex:
			chain = append(chain, lens.IndexBy(f.names[proj.IndexLocal]))
			ty = ty.Elem()
		case mir.PlaceProjField:
			switch ty.Kind {
			case mir.TyTuple:
				chain = append(chain, lens.TupleField(proj.Field, len(ty.Args)))
				ty = ty.Args[proj.Field]
			case mir.TyAdt:
				d, fields, err := f.adtFields(ty, 0)
				if err != nil {
					return mir.NoLocalID, nil, err
				}
				if d.Kind != mir.DefStruct || isPositional(fields) || proj.Field >= len(fields) {
					return mir.NoLocalID, nil, unsupported("lens on field %d of %s", proj.Field, ty)
				}
				f.deps.Add(d.Name)
				chain = append(chain, lens.FieldOf(target.Ident(d.Name), target.Ident(fields[proj.Field].Name), proj.Field))
				ty = fields[proj.Field].Ty
			default:
				return mir.NoLocalID, nil, unsupported("lens on field of %s", ty)
			}
		default:
			return mir.NoLocalID, nil, unsupported("lens on %s", mir.FormatPlace(p))
		}
	}
	return p.Local, chain, nil
}
